package model

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusBooked     Status = "booked"
	StatusWaitlisted Status = "waitlisted"
	StatusDenied     Status = "denied"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusBooked, StatusWaitlisted, StatusDenied:
		return true
	}
	return false
}

// Approved reports whether the status entitles the attendee to a pass.
func (s Status) Approved() bool {
	return s == StatusBooked || s == StatusWaitlisted
}

type Event struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Description         string    `db:"description" json:"description"`
	Date                time.Time `db:"date" json:"date"`
	Venue               string    `db:"venue" json:"venue"`
	ConfirmationMessage string    `db:"confirmation_message" json:"confirmation_message"`
	TaskPdfURL          *string   `db:"task_pdf_url" json:"task_pdf_url"`
	MailSubject         string    `db:"mail_subject" json:"mail_subject"`
	MailBody            string    `db:"mail_body" json:"mail_body"`
	PassSubject         string    `db:"pass_subject" json:"pass_subject"`
	PassBody            string    `db:"pass_body" json:"pass_body"`
	AppMail             string    `db:"app_mail" json:"-"`
	AppPass             string    `db:"app_pass" json:"-"`
	IsLive              bool      `db:"is_live" json:"is_live"`
	AllowedYears        []int64   `db:"allowed_years" json:"allowed_years"`
	PrimaryColor        string    `db:"primary_color" json:"primary_color,omitempty"`
	BackgroundColor     string    `db:"background_color" json:"background_color,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// RequiresTask is true when attendees must submit a task before approval.
func (e *Event) RequiresTask() bool {
	return e.TaskPdfURL != nil && *e.TaskPdfURL != ""
}

// AcceptsYear checks the allowed-years gate. An empty set admits everyone.
func (e *Event) AcceptsYear(year int) bool {
	if len(e.AllowedYears) == 0 {
		return true
	}
	for _, y := range e.AllowedYears {
		if int(y) == year {
			return true
		}
	}
	return false
}

// OpenAt reports whether registration is open at the given moment.
func (e *Event) OpenAt(now time.Time) bool {
	return e.IsLive && !now.After(e.Date)
}

type Registration struct {
	ID              string     `db:"id" json:"id"`
	EventID         string     `db:"event_id" json:"event_id"`
	StudentName     string     `db:"student_name" json:"student_name"`
	StudentEmail    string     `db:"student_email" json:"student_email"`
	RollNumber      string     `db:"roll_number" json:"roll_number"`
	Gender          string     `db:"gender" json:"gender"`
	Branch          string     `db:"branch" json:"branch"`
	YearOfStudy     int        `db:"year_of_study" json:"year_of_study"`
	MobileNumber    string     `db:"mobile_number" json:"mobile_number"`
	Laptop          bool       `db:"laptop" json:"laptop"`
	Status          Status     `db:"status" json:"status"`
	TaskSubmission  *string    `db:"task_submission" json:"task_submission"`
	TaskSubmittedAt *time.Time `db:"task_submitted_at" json:"task_submitted_at"`
	RegisteredAt    time.Time  `db:"registered_at" json:"registered_at"`
	Attended        bool       `db:"attended" json:"attended"`
	AttendedAt      *time.Time `db:"attended_at" json:"attended_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ManualPass is a one-off pass that has no backing registration.
type ManualPass struct {
	StudentName  string            `json:"studentName"`
	StudentEmail string            `json:"studentEmail"`
	EventName    string            `json:"eventName"`
	EventDate    time.Time         `json:"eventDate"`
	EventVenue   string            `json:"eventVenue"`
	Extra        map[string]string `json:"-"`
}
