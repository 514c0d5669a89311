package repo

import (
	"context"
	"errors"
	"time"

	"eventpass/internal/model"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrDuplicateRegistration = errors.New("duplicate registration")
)

// Repository is the event and registration store. Every mutation is a single
// field-level update; concurrent organizer edits resolve last-write-wins.
type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.Event, error)
	GetLiveEvents(ctx context.Context, now time.Time) ([]model.Event, error)
	SetEventLive(ctx context.Context, id string, live bool) error
	UpdatePassTemplate(ctx context.Context, id, subject, body string) error
	CloseEndedEvents(ctx context.Context, now time.Time) (int64, error)

	CreateRegistrationTx(ctx context.Context, reg *model.Registration) error
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	GetRegistrationsByEventID(ctx context.Context, eventID string) ([]model.Registration, error)
	CountRegistrationsByStatus(ctx context.Context, eventID string) (map[model.Status]int, error)
	UpdateRegistrationStatus(ctx context.Context, id string, status model.Status) error
	SaveTaskSubmission(ctx context.Context, id, link string, at time.Time) error
	SaveAttendance(ctx context.Context, id string, status model.Status, at time.Time) error

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}
