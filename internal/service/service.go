package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventpass/internal/dto"
	"eventpass/internal/notify"
	"eventpass/internal/pass"
	"eventpass/internal/repo"
)

type Service interface {
	// attendee-facing
	ListEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	Register(ctx *ginext.Context)
	GetPass(ctx *ginext.Context)
	PassImage(ctx *ginext.Context)
	SubmitTask(ctx *ginext.Context)
	EmailSuggestion(ctx *ginext.Context)

	// organizer
	CreateEvent(ctx *ginext.Context)
	ListAllEvents(ctx *ginext.Context)
	ListRegistrations(ctx *ginext.Context)
	Attendance(ctx *ginext.Context)
	SetLive(ctx *ginext.Context)
	UpdatePassTemplate(ctx *ginext.Context)
	SetStatus(ctx *ginext.Context)
	ResendEmail(ctx *ginext.Context)
	Scan(ctx *ginext.Context)
	ScanImage(ctx *ginext.Context)
	CheckIn(ctx *ginext.Context)
	SendManualPass(ctx *ginext.Context)
	ScanManualPass(ctx *ginext.Context)
}

type service struct {
	repo     repo.Repository
	log      *zerolog.Logger
	queue    notify.Queue
	renderer pass.Renderer
	now      func() time.Time
	newID    func() string
}

func NewService(repo repo.Repository, logger *zerolog.Logger, queue notify.Queue, renderer pass.Renderer) Service {
	return newService(repo, logger, queue, renderer)
}

func newService(repo repo.Repository, logger *zerolog.Logger, queue notify.Queue, renderer pass.Renderer) *service {
	return &service{
		repo:     repo,
		log:      logger,
		queue:    queue,
		renderer: renderer,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// recoverAction turns a panic inside an action into a failure result.
func (s *service) recoverAction(op string, res *dto.ActionResult) {
	if r := recover(); r != nil {
		s.log.Error().Str("op", op).Interface("panic", r).Msg("action panicked")
		*res = dto.Fail(fmt.Sprintf("Unexpected error: %v", r))
	}
}

// enqueue hands a job to the mail queue. Failures are logged only: the state
// change that triggered the email stands.
func (s *service) enqueue(ctx context.Context, job dto.MailJob) bool {
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.Warn().Err(err).
			Str("kind", job.Kind).
			Str("registration_id", job.RegistrationID).
			Msg("failed to queue email")
		return false
	}
	return true
}

func baseURL(ctx *ginext.Context) string {
	return ctx.GetString(dto.BaseURLKey)
}
