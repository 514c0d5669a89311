package dto

import (
	"time"

	"eventpass/internal/model"
)

type CreateEventRequest struct {
	Name                string    `json:"name" validate:"required,min=3,max=255"`
	Description         string    `json:"description" validate:"required,min=10"`
	Date                time.Time `json:"date" validate:"required,future"`
	Venue               string    `json:"venue" validate:"max=255"`
	ConfirmationMessage string    `json:"confirmation_message" validate:"required,min=10"`
	TaskPdfURL          string    `json:"task_pdf_url" validate:"omitempty,url"`
	MailSubject         string    `json:"mail_subject" validate:"required,min=5"`
	MailBody            string    `json:"mail_body" validate:"required,min=20"`
	PassSubject         string    `json:"pass_subject" validate:"required,min=5"`
	PassBody            string    `json:"pass_body" validate:"required,min=20"`
	AppMail             string    `json:"app_mail" validate:"omitempty,email"`
	AppPass             string    `json:"app_pass"`
	IsLive              bool      `json:"is_live"`
	AllowedYears        []int64   `json:"allowed_years" validate:"dive,gte=1,lte=10"`
	PrimaryColor        string    `json:"primary_color" validate:"omitempty,hexcolor"`
	BackgroundColor     string    `json:"background_color" validate:"omitempty,hexcolor"`
}

type PassTemplateRequest struct {
	PassSubject string `json:"pass_subject" validate:"required,min=5"`
	PassBody    string `json:"pass_body" validate:"required,min=20"`
}

type SetLiveRequest struct {
	IsLive *bool `json:"is_live" validate:"required"`
}

type RegistrationRequest struct {
	StudentName  string `json:"student_name" validate:"required,min=2,max=255"`
	StudentEmail string `json:"student_email" validate:"required,email"`
	RollNumber   string `json:"roll_number" validate:"required,min=1,max=64"`
	Gender       string `json:"gender" validate:"required,gender"`
	Branch       string `json:"branch" validate:"required,min=1,max=128"`
	YearOfStudy  int    `json:"year_of_study" validate:"required,positive"`
	MobileNumber string `json:"mobile_number" validate:"required,min=10,max=20"`
	Laptop       *bool  `json:"laptop" validate:"required"`
}

type TaskSubmissionRequest struct {
	Email          string `json:"email" validate:"required,email"`
	TaskSubmission string `json:"task_submission" validate:"required,taskurl"`
}

type StatusRequest struct {
	Status model.Status `json:"status" validate:"required"`
}

type ScanRequest struct {
	Data string `json:"data" validate:"required"`
}

type CheckInRequest struct {
	RegistrationID string `json:"registration_id" validate:"required"`
}

type ManualPassRequest struct {
	StudentName     string            `json:"student_name" validate:"required,min=2"`
	StudentEmail    string            `json:"student_email" validate:"required,email"`
	EventName       string            `json:"event_name" validate:"required"`
	EventDate       time.Time         `json:"event_date" validate:"required"`
	EventVenue      string            `json:"event_venue" validate:"required"`
	EmailSubject    string            `json:"email_subject" validate:"required"`
	EmailBody       string            `json:"email_body" validate:"required"`
	SendWithoutPass bool              `json:"send_without_pass"`
	Extra           map[string]string `json:"extra"`
}

// MailJob is queued for the mail worker. Kind selects the template.
type MailJob struct {
	Kind           string            `json:"kind"`
	RegistrationID string            `json:"registration_id,omitempty"`
	EventID        string            `json:"event_id,omitempty"`
	BaseURL        string            `json:"base_url"`
	Manual         *ManualMail       `json:"manual,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
}

const (
	MailRegistration = "registration"
	MailPass         = "pass"
	MailManual       = "manual"
)

type ManualMail struct {
	Pass     model.ManualPass  `json:"pass"`
	Extra    map[string]string `json:"extra,omitempty"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	WithPass bool              `json:"with_pass"`
}
