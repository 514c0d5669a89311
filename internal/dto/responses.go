package dto

import (
	"time"

	"eventpass/internal/model"
)

type EventResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Date                time.Time `json:"date"`
	Venue               string    `json:"venue"`
	ConfirmationMessage string    `json:"confirmation_message"`
	TaskPdfURL          *string   `json:"task_pdf_url"`
	IsLive              bool      `json:"is_live"`
	AllowedYears        []int64   `json:"allowed_years"`
	PrimaryColor        string    `json:"primary_color,omitempty"`
	BackgroundColor     string    `json:"background_color,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// EventAdminResponse adds the templates and counters only organizers see.
type EventAdminResponse struct {
	EventResponse
	MailSubject   string         `json:"mail_subject"`
	MailBody      string         `json:"mail_body"`
	PassSubject   string         `json:"pass_subject"`
	PassBody      string         `json:"pass_body"`
	Registrations int            `json:"registrations"`
	ByStatus      map[string]int `json:"by_status,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type RegistrationResponse struct {
	ID              string       `json:"id"`
	EventID         string       `json:"event_id"`
	StudentName     string       `json:"student_name"`
	StudentEmail    string       `json:"student_email"`
	RollNumber      string       `json:"roll_number"`
	Gender          string       `json:"gender"`
	Branch          string       `json:"branch"`
	YearOfStudy     int          `json:"year_of_study"`
	MobileNumber    string       `json:"mobile_number"`
	Laptop          bool         `json:"laptop"`
	Status          model.Status `json:"status"`
	TaskSubmission  *string      `json:"task_submission"`
	TaskSubmittedAt *time.Time   `json:"task_submitted_at"`
	RegisteredAt    time.Time    `json:"registered_at"`
	Attended        bool         `json:"attended"`
	AttendedAt      *time.Time   `json:"attended_at"`
	CanCheckIn      bool         `json:"can_check_in"`
}

type PassResponse struct {
	Registration RegistrationResponse `json:"registration"`
	Event        EventResponse        `json:"event"`
	QRData       string               `json:"qr_data,omitempty"`
	QRImageURL   string               `json:"qr_image_url,omitempty"`
}

type AttendanceResponse struct {
	EventID   string                 `json:"event_id"`
	Booked    int                    `json:"booked"`
	Attended  int                    `json:"attended"`
	Attendees []RegistrationResponse `json:"attendees"`
}

const (
	ScanRegistration = "registration"
	ScanManual       = "manual"
	ScanNotFound     = "not_found"
	ScanInvalid      = "invalid"
	ScanNoCode       = "no_code"
)

// ScanResult is the outcome of resolving scanned text. Not-found is a normal
// outcome, distinct from a malformed payload.
type ScanResult struct {
	Kind         string                `json:"kind"`
	Message      string                `json:"message,omitempty"`
	Registration *RegistrationResponse `json:"registration,omitempty"`
	Manual       *ManualPassResponse   `json:"manual,omitempty"`
}

type ManualPassResponse struct {
	StudentName  string            `json:"student_name"`
	StudentEmail string            `json:"student_email"`
	EventName    string            `json:"event_name"`
	EventDate    time.Time         `json:"event_date"`
	EventVenue   string            `json:"event_venue"`
	Extra        map[string]string `json:"extra,omitempty"`
}

type EmailSuggestionResponse struct {
	Email      string  `json:"email"`
	Suggestion *string `json:"suggestion"`
}

func NewEventResponse(e *model.Event) EventResponse {
	years := e.AllowedYears
	if years == nil {
		years = []int64{}
	}
	return EventResponse{
		ID:                  e.ID,
		Name:                e.Name,
		Description:         e.Description,
		Date:                e.Date,
		Venue:               e.Venue,
		ConfirmationMessage: e.ConfirmationMessage,
		TaskPdfURL:          e.TaskPdfURL,
		IsLive:              e.IsLive,
		AllowedYears:        years,
		PrimaryColor:        e.PrimaryColor,
		BackgroundColor:     e.BackgroundColor,
		CreatedAt:           e.CreatedAt,
	}
}

func NewRegistrationResponse(r *model.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:              r.ID,
		EventID:         r.EventID,
		StudentName:     r.StudentName,
		StudentEmail:    r.StudentEmail,
		RollNumber:      r.RollNumber,
		Gender:          r.Gender,
		Branch:          r.Branch,
		YearOfStudy:     r.YearOfStudy,
		MobileNumber:    r.MobileNumber,
		Laptop:          r.Laptop,
		Status:          r.Status,
		TaskSubmission:  r.TaskSubmission,
		TaskSubmittedAt: r.TaskSubmittedAt,
		RegisteredAt:    r.RegisteredAt,
		Attended:        r.Attended,
		AttendedAt:      r.AttendedAt,
		CanCheckIn:      r.Status.Approved() && !r.Attended,
	}
}

func NewManualPassResponse(m *model.ManualPass) *ManualPassResponse {
	return &ManualPassResponse{
		StudentName:  m.StudentName,
		StudentEmail: m.StudentEmail,
		EventName:    m.EventName,
		EventDate:    m.EventDate,
		EventVenue:   m.EventVenue,
		Extra:        m.Extra,
	}
}
