package notify

//go:generate mockgen -destination=../mocks/mock_queue.go -package=mocks eventpass/internal/notify Queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"eventpass/internal/dto"
	"eventpass/internal/mailer"
	"eventpass/internal/model"
	"eventpass/internal/pass"
	"eventpass/internal/repo"
)

var ErrUnknownJob = errors.New("unknown mail job")

// Queue accepts mail jobs. Implementations never block the caller on delivery.
type Queue interface {
	Enqueue(ctx context.Context, job dto.MailJob) error
}

type Handler interface {
	Handle(ctx context.Context, job dto.MailJob) error
}

// Dispatcher turns a MailJob into a rendered email and hands it to the sender.
type Dispatcher struct {
	repo     repo.Repository
	sender   mailer.Sender
	renderer pass.Renderer
	log      *zerolog.Logger
}

func NewDispatcher(r repo.Repository, sender mailer.Sender, renderer pass.Renderer, log *zerolog.Logger) *Dispatcher {
	return &Dispatcher{repo: r, sender: sender, renderer: renderer, log: log}
}

func (d *Dispatcher) Handle(ctx context.Context, job dto.MailJob) error {
	switch job.Kind {
	case dto.MailRegistration:
		return d.registration(ctx, job)
	case dto.MailPass:
		return d.pass(ctx, job)
	case dto.MailManual:
		return d.manual(ctx, job)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, job.Kind)
	}
}

func (d *Dispatcher) load(ctx context.Context, job dto.MailJob) (*model.Registration, *model.Event, error) {
	reg, err := d.repo.GetRegistrationByID(ctx, job.RegistrationID)
	if err != nil {
		return nil, nil, err
	}
	event, err := d.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, nil, err
	}
	return reg, event, nil
}

func (d *Dispatcher) registration(ctx context.Context, job dto.MailJob) error {
	reg, event, err := d.load(ctx, job)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, mailer.RegistrationEmail(reg, event, job.BaseURL))
}

func (d *Dispatcher) pass(ctx context.Context, job dto.MailJob) error {
	reg, event, err := d.load(ctx, job)
	if err != nil {
		return err
	}
	// the status may have moved on between enqueue and delivery
	if !reg.Status.Approved() {
		d.log.Info().Str("registration_id", reg.ID).Str("status", string(reg.Status)).
			Msg("registration no longer approved, pass email skipped")
		return nil
	}
	data, err := pass.Encode(reg, event)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, mailer.PassEmail(reg, event, job.BaseURL, d.renderer.ImageURL(data)))
}

func (d *Dispatcher) manual(ctx context.Context, job dto.MailJob) error {
	if job.Manual == nil {
		return fmt.Errorf("%w: manual job without payload", ErrUnknownJob)
	}
	p := job.Manual.Pass
	p.Extra = job.Manual.Extra

	var qr string
	if job.Manual.WithPass {
		data, err := pass.EncodeManual(&p)
		if err != nil {
			return err
		}
		qr = d.renderer.ImageURL(data)
	}
	return d.sender.Send(ctx, mailer.ManualEmail(&p, job.Manual.Subject, job.Manual.Body, qr))
}
