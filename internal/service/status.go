package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/ginext"

	"eventpass/internal/dto"
	"eventpass/internal/lifecycle"
	"eventpass/internal/model"
	"eventpass/internal/repo"
)

// loadPair fetches a registration together with its event and checks that the
// registration belongs to eventID.
func (s *service) loadPair(ctx context.Context, eventID, registrationID string) (*model.Registration, *model.Event, *dto.ActionResult) {
	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) {
			res := dto.Fail("Registration not found.")
			return nil, nil, &res
		}
		s.log.Error().Err(err).Str("registration_id", registrationID).Msg("failed to get registration")
		res := dto.Fail(fmt.Sprintf("Failed to load registration: %v", err))
		return nil, nil, &res
	}
	if reg.EventID != eventID {
		res := dto.Fail("Registration not found for this event.")
		return nil, nil, &res
	}
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			res := dto.Fail("Event not found.")
			return nil, nil, &res
		}
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to get event")
		res := dto.Fail(fmt.Sprintf("Failed to load event: %v", err))
		return nil, nil, &res
	}
	return reg, event, nil
}

// setStatus persists the organizer's decision, then queues the pass email for
// approvals. A queueing failure does not undo the status change.
func (s *service) setStatus(ctx context.Context, eventID, registrationID string, to model.Status, base string) (res dto.ActionResult) {
	defer s.recoverAction("set_status", &res)

	if !to.Valid() {
		return dto.Fail(fmt.Sprintf("Invalid status %q.", to))
	}
	reg, event, fail := s.loadPair(ctx, eventID, registrationID)
	if fail != nil {
		return *fail
	}

	from := reg.Status
	if err := lifecycle.Transition(reg, event, to); err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrUnchanged):
			return dto.Ok(fmt.Sprintf("Status is already %s.", to))
		case errors.Is(err, lifecycle.ErrAlreadyAttended):
			return dto.Fail(fmt.Sprintf("Attendee has already checked in and cannot be %s.", to))
		case errors.Is(err, lifecycle.ErrTaskRequired):
			return dto.Fail("The task has not been submitted yet, so this registration cannot be approved.")
		case errors.Is(err, lifecycle.ErrIllegalTransition):
			return dto.Fail(fmt.Sprintf("Cannot change status from %s to %s.", from, to))
		default:
			return dto.Fail(err.Error())
		}
	}

	if err := s.repo.UpdateRegistrationStatus(ctx, reg.ID, reg.Status); err != nil {
		s.log.Error().Err(err).Str("registration_id", reg.ID).Msg("failed to update registration status")
		return dto.Fail(fmt.Sprintf("Failed to update status: %v", err))
	}

	s.log.Info().
		Str("registration_id", reg.ID).
		Str("event_id", event.ID).
		Str("from", string(from)).
		Str("status", string(reg.Status)).
		Msg("registration status updated")

	if !lifecycle.SendsPass(reg.Status) {
		return dto.Ok(fmt.Sprintf("Status updated to %s.", reg.Status))
	}
	if !s.enqueue(ctx, dto.MailJob{Kind: dto.MailPass, RegistrationID: reg.ID, EventID: event.ID, BaseURL: base}) {
		return dto.Ok(fmt.Sprintf("Status updated to %s, but the pass email could not be sent.", reg.Status))
	}
	return dto.Ok(fmt.Sprintf("Status updated to %s. The pass email is on its way.", reg.Status))
}

// resendEmail re-sends whichever email matches the current status: the pass
// for approved registrations, the registration email otherwise.
func (s *service) resendEmail(ctx context.Context, eventID, registrationID, base string) (res dto.ActionResult) {
	defer s.recoverAction("resend_email", &res)

	reg, event, fail := s.loadPair(ctx, eventID, registrationID)
	if fail != nil {
		return *fail
	}
	if reg.Status == model.StatusDenied {
		return dto.Fail("This registration was denied; no email is sent.")
	}

	kind, what := dto.MailRegistration, "Registration email"
	if reg.Status.Approved() {
		kind, what = dto.MailPass, "Pass email"
	}
	if !s.enqueue(ctx, dto.MailJob{Kind: kind, RegistrationID: reg.ID, EventID: event.ID, BaseURL: base}) {
		return dto.Fail(what + " could not be sent.")
	}
	return dto.Ok(what + " sent to " + reg.StudentEmail + ".")
}

func (s *service) SetStatus(ctx *ginext.Context) {
	var req dto.StatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	dto.ActionResponse(ctx, s.setStatus(ctx.Request.Context(), ctx.Param("id"), ctx.Param("regId"), req.Status, baseURL(ctx)))
}

func (s *service) ResendEmail(ctx *ginext.Context) {
	dto.ActionResponse(ctx, s.resendEmail(ctx.Request.Context(), ctx.Param("id"), ctx.Param("regId"), baseURL(ctx)))
}
