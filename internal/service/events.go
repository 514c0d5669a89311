package service

import (
	"context"
	"errors"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"eventpass/internal/dto"
	"eventpass/internal/model"
	"eventpass/internal/repo"
	"eventpass/pkg/validator"
)

func (s *service) createEvent(ctx context.Context, req dto.CreateEventRequest) (res dto.ActionResult) {
	defer s.recoverAction("create_event", &res)

	if fields := validator.ValidateFields(ctx, req); fields != nil {
		return dto.Invalid(fields)
	}

	now := s.now()
	event := &model.Event{
		ID:                  s.newID(),
		Name:                strings.TrimSpace(req.Name),
		Description:         strings.TrimSpace(req.Description),
		Date:                req.Date,
		Venue:               strings.TrimSpace(req.Venue),
		ConfirmationMessage: req.ConfirmationMessage,
		MailSubject:         req.MailSubject,
		MailBody:            req.MailBody,
		PassSubject:         req.PassSubject,
		PassBody:            req.PassBody,
		AppMail:             req.AppMail,
		AppPass:             req.AppPass,
		IsLive:              req.IsLive,
		AllowedYears:        req.AllowedYears,
		PrimaryColor:        req.PrimaryColor,
		BackgroundColor:     req.BackgroundColor,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if link := strings.TrimSpace(req.TaskPdfURL); link != "" {
		event.TaskPdfURL = &link
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		return dto.Fail("Failed to create event.")
	}

	s.log.Info().Str("event_id", event.ID).Msg("event created successfully")
	res = dto.Ok("Event created successfully.")
	res.Data = dto.NewEventResponse(event)
	return res
}

func (s *service) setLive(ctx context.Context, eventID string, live bool) (res dto.ActionResult) {
	defer s.recoverAction("set_live", &res)

	if err := s.repo.SetEventLive(ctx, eventID, live); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			return dto.Fail("Event not found.")
		}
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to toggle event")
		return dto.Fail("Failed to update event.")
	}

	s.log.Info().Str("event_id", eventID).Bool("is_live", live).Msg("event live flag updated")
	if live {
		return dto.Ok("Event is now live.")
	}
	return dto.Ok("Event is now closed for registration.")
}

func (s *service) updatePassTemplate(ctx context.Context, eventID string, req dto.PassTemplateRequest) (res dto.ActionResult) {
	defer s.recoverAction("update_pass_template", &res)

	if fields := validator.ValidateFields(ctx, req); fields != nil {
		return dto.Invalid(fields)
	}
	if err := s.repo.UpdatePassTemplate(ctx, eventID, req.PassSubject, req.PassBody); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			return dto.Fail("Event not found.")
		}
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to update pass template")
		return dto.Fail("Failed to update pass template.")
	}
	return dto.Ok("Pass template updated.")
}

func (s *service) adminEvents(ctx context.Context) ([]dto.EventAdminResponse, error) {
	events, err := s.repo.GetAllEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EventAdminResponse, 0, len(events))
	for i := range events {
		counts, err := s.repo.CountRegistrationsByStatus(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		item := dto.EventAdminResponse{
			EventResponse: dto.NewEventResponse(&events[i]),
			MailSubject:   events[i].MailSubject,
			MailBody:      events[i].MailBody,
			PassSubject:   events[i].PassSubject,
			PassBody:      events[i].PassBody,
			ByStatus:      make(map[string]int, len(counts)),
			UpdatedAt:     events[i].UpdatedAt,
		}
		for st, n := range counts {
			item.ByStatus[string(st)] = n
			item.Registrations += n
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	dto.ActionCreatedResponse(ctx, s.createEvent(ctx.Request.Context(), req))
}

func (s *service) SetLive(ctx *ginext.Context) {
	var req dto.SetLiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.IsLive == nil {
		dto.ActionResponse(ctx, dto.Invalid(map[string]string{"is_live": "is_live is required"}))
		return
	}
	dto.ActionResponse(ctx, s.setLive(ctx.Request.Context(), ctx.Param("id"), *req.IsLive))
}

func (s *service) UpdatePassTemplate(ctx *ginext.Context) {
	var req dto.PassTemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	dto.ActionResponse(ctx, s.updatePassTemplate(ctx.Request.Context(), ctx.Param("id"), req))
}

func (s *service) ListEvents(ctx *ginext.Context) {
	events, err := s.repo.GetLiveEvents(ctx.Request.Context(), s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get live events")
		dto.InternalServerError(ctx)
		return
	}
	out := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		out = append(out, dto.NewEventResponse(&events[i]))
	}
	dto.SuccessResponse(ctx, out)
}

func (s *service) ListAllEvents(ctx *ginext.Context) {
	out, err := s.adminEvents(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get events")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, out)
}

func (s *service) GetEvent(ctx *ginext.Context) {
	event, err := s.repo.GetEventByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NewEventResponse(event))
}
