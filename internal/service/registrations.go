package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"eventpass/internal/dto"
	"eventpass/internal/lifecycle"
	"eventpass/internal/model"
	"eventpass/internal/pass"
	"eventpass/internal/repo"
	"eventpass/pkg/emailhint"
	"eventpass/pkg/validator"
)

func (s *service) register(ctx context.Context, eventID string, req dto.RegistrationRequest, base string) (res dto.ActionResult) {
	defer s.recoverAction("register", &res)

	if fields := validator.ValidateFields(ctx, req); fields != nil {
		return dto.Invalid(fields)
	}

	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			return dto.Fail("Event not found.")
		}
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to get event for registration")
		return dto.Fail("Registration failed. Please try again later.")
	}

	now := s.now()
	if !event.OpenAt(now) {
		return dto.Fail("Registration for this event has closed.")
	}
	if !event.AcceptsYear(req.YearOfStudy) {
		return dto.Invalid(map[string]string{
			"year_of_study": fmt.Sprintf("This event is not open to year %d students.", req.YearOfStudy),
		})
	}

	reg := &model.Registration{
		ID:           s.newID(),
		EventID:      event.ID,
		StudentName:  strings.TrimSpace(req.StudentName),
		StudentEmail: strings.TrimSpace(req.StudentEmail),
		RollNumber:   strings.TrimSpace(req.RollNumber),
		Gender:       req.Gender,
		Branch:       strings.TrimSpace(req.Branch),
		YearOfStudy:  req.YearOfStudy,
		MobileNumber: strings.TrimSpace(req.MobileNumber),
		Laptop:       *req.Laptop,
		Status:       lifecycle.SeedStatus(event),
		RegisteredAt: now,
	}

	if err := s.repo.CreateRegistrationTx(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateRegistration):
			return dto.Fail("You have already registered for this event.")
		case errors.Is(err, repo.ErrEventNotFound):
			return dto.Fail("Event not found.")
		default:
			s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to create registration")
			return dto.Fail("Registration failed. Please try again later.")
		}
	}

	s.log.Info().
		Str("registration_id", reg.ID).
		Str("event_id", event.ID).
		Str("status", string(reg.Status)).
		Msg("registration created successfully")

	kind := dto.MailRegistration
	if reg.Status.Approved() {
		kind = dto.MailPass
	}
	s.enqueue(ctx, dto.MailJob{Kind: kind, RegistrationID: reg.ID, EventID: event.ID, BaseURL: base})

	msg := event.ConfirmationMessage
	if msg == "" {
		msg = "Registration successful."
	}
	res = dto.Ok(msg)
	res.Data = dto.NewRegistrationResponse(reg)
	return res
}

func (s *service) submitTask(ctx context.Context, registrationID string, req dto.TaskSubmissionRequest) (res dto.ActionResult) {
	defer s.recoverAction("submit_task", &res)

	if fields := validator.ValidateFields(ctx, req); fields != nil {
		return dto.Invalid(fields)
	}

	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) {
			return dto.Fail("Registration not found.")
		}
		s.log.Error().Err(err).Str("registration_id", registrationID).Msg("failed to get registration")
		return dto.Fail("Task submission failed. Please try again later.")
	}

	if !strings.EqualFold(strings.TrimSpace(req.Email), strings.TrimSpace(reg.StudentEmail)) {
		return dto.Invalid(map[string]string{
			"email": "Email does not match the one used for this registration.",
		})
	}

	link := strings.TrimSpace(req.TaskSubmission)
	if err := s.repo.SaveTaskSubmission(ctx, reg.ID, link, s.now()); err != nil {
		s.log.Error().Err(err).Str("registration_id", reg.ID).Msg("failed to save task submission")
		return dto.Fail("Task submission failed. Please try again later.")
	}

	s.log.Info().Str("registration_id", reg.ID).Msg("task submitted")
	return dto.Ok("Task submitted successfully.")
}

// passView builds the attendee pass page. The QR payload is only exposed for
// approved registrations.
func (s *service) passView(ctx context.Context, registrationID string) (*dto.PassResponse, error) {
	reg, err := s.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	event, err := s.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	out := &dto.PassResponse{
		Registration: dto.NewRegistrationResponse(reg),
		Event:        dto.NewEventResponse(event),
	}
	if reg.Status.Approved() {
		data, err := pass.Encode(reg, event)
		if err != nil {
			return nil, err
		}
		out.QRData = data
		out.QRImageURL = s.renderer.ImageURL(data)
	}
	return out, nil
}

func (s *service) Register(ctx *ginext.Context) {
	var req dto.RegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	dto.ActionCreatedResponse(ctx, s.register(ctx.Request.Context(), ctx.Param("id"), req, baseURL(ctx)))
}

func (s *service) SubmitTask(ctx *ginext.Context) {
	var req dto.TaskSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	dto.ActionResponse(ctx, s.submitTask(ctx.Request.Context(), ctx.Param("id"), req))
}

func (s *service) GetPass(ctx *ginext.Context) {
	view, err := s.passView(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrRegistrationNotFound):
			dto.RegistrationNotFoundError(ctx)
		case errors.Is(err, repo.ErrEventNotFound):
			dto.EventNotFoundError(ctx)
		default:
			s.log.Error().Err(err).Msg("failed to build pass")
			dto.InternalServerError(ctx)
		}
		return
	}
	dto.SuccessResponse(ctx, view)
}

func (s *service) PassImage(ctx *ginext.Context) {
	view, err := s.passView(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) || errors.Is(err, repo.ErrEventNotFound) {
			dto.RegistrationNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to build pass")
		dto.InternalServerError(ctx)
		return
	}
	if view.QRData == "" {
		dto.NotFoundError(ctx, dto.RegistrationNotFound, "No pass has been issued for this registration")
		return
	}

	png, err := s.renderer.PNG(view.QRData)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to render pass image")
		dto.InternalServerError(ctx)
		return
	}
	ctx.Header("Cache-Control", "no-store")
	ctx.Data(http.StatusOK, "image/png", png)
}

func (s *service) EmailSuggestion(ctx *ginext.Context) {
	email := ctx.Query("email")
	if email == "" {
		dto.FieldBadFormatError(ctx, "email")
		return
	}
	out := dto.EmailSuggestionResponse{Email: email}
	if suggestion, ok := emailhint.Suggest(email); ok {
		out.Suggestion = &suggestion
	}
	dto.SuccessResponse(ctx, out)
}
