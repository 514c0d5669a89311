package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/wb-go/wbf/ginext"

	"eventpass/internal/dto"
	"eventpass/internal/lifecycle"
	"eventpass/internal/model"
	"eventpass/internal/pass"
	"eventpass/internal/repo"
)

const maxScanImageBytes = 8 << 20

// resolveScan decodes scanned text and looks it up with the strategy of its
// payload kind. An empty eventID accepts registrations of any event.
func (s *service) resolveScan(ctx context.Context, eventID, raw string) dto.ScanResult {
	p, err := pass.Decode(raw)
	if err != nil {
		return dto.ScanResult{Kind: dto.ScanInvalid, Message: "This code is not a valid event pass."}
	}

	switch p.Kind {
	case pass.ManualSnapshot:
		return dto.ScanResult{
			Kind:    dto.ScanManual,
			Message: "Manual pass for " + p.Manual.StudentName + ".",
			Manual:  dto.NewManualPassResponse(p.Manual),
		}
	default:
		reg, err := s.repo.GetRegistrationByID(ctx, p.RegistrationID)
		if err != nil || (eventID != "" && reg.EventID != eventID) {
			if err != nil && !errors.Is(err, repo.ErrRegistrationNotFound) {
				s.log.Error().Err(err).Str("registration_id", p.RegistrationID).Msg("scan lookup failed")
			}
			return dto.ScanResult{Kind: dto.ScanNotFound, Message: "No matching registration found."}
		}
		out := dto.NewRegistrationResponse(reg)
		return dto.ScanResult{Kind: dto.ScanRegistration, Message: reg.StudentName + " (" + string(reg.Status) + ")", Registration: &out}
	}
}

func (s *service) scanImage(ctx context.Context, eventID string, r io.Reader) (res dto.ActionResult) {
	defer s.recoverAction("scan_image", &res)

	img, _, err := image.Decode(io.LimitReader(r, maxScanImageBytes))
	if err != nil {
		return dto.Fail("Unsupported image. Upload a PNG or JPEG frame.")
	}
	text, err := pass.ReadImage(img)
	if err != nil {
		res = dto.Ok("No QR code found in the image.")
		res.Data = dto.ScanResult{Kind: dto.ScanNoCode, Message: res.Message}
		return res
	}
	scan := s.resolveScan(ctx, eventID, text)
	res = dto.Ok(scan.Message)
	res.Data = scan
	return res
}

// checkIn is idempotent: a second call reports the attendee as already
// checked in and keeps the original timestamp.
func (s *service) checkIn(ctx context.Context, eventID, registrationID string) (res dto.ActionResult) {
	defer s.recoverAction("check_in", &res)

	reg, _, fail := s.loadPair(ctx, eventID, registrationID)
	if fail != nil {
		return *fail
	}

	changed, err := lifecycle.CheckIn(reg, s.now())
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotApproved) {
			return dto.Fail(fmt.Sprintf("Only booked or waitlisted attendees can be checked in (status is %s).", reg.Status))
		}
		return dto.Fail(err.Error())
	}

	if changed {
		if err := s.repo.SaveAttendance(ctx, reg.ID, reg.Status, *reg.AttendedAt); err != nil {
			s.log.Error().Err(err).Str("registration_id", reg.ID).Msg("failed to save attendance")
			return dto.Fail(fmt.Sprintf("Failed to check in: %v", err))
		}
		s.log.Info().Str("registration_id", reg.ID).Str("event_id", eventID).Msg("attendee checked in")
		res = dto.Ok(reg.StudentName + " checked in.")
	} else {
		res = dto.Ok(reg.StudentName + " is already checked in.")
	}
	res.Data = dto.NewRegistrationResponse(reg)
	return res
}

func (s *service) attendance(ctx context.Context, eventID string) (*dto.AttendanceResponse, error) {
	if _, err := s.repo.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	regs, err := s.repo.GetRegistrationsByEventID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := &dto.AttendanceResponse{EventID: eventID, Attendees: []dto.RegistrationResponse{}}
	for i := range regs {
		if regs[i].Status != model.StatusBooked {
			continue
		}
		out.Booked++
		if regs[i].Attended {
			out.Attended++
		}
		out.Attendees = append(out.Attendees, dto.NewRegistrationResponse(&regs[i]))
	}
	return out, nil
}

func (s *service) Scan(ctx *ginext.Context) {
	var req dto.ScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	scan := s.resolveScan(ctx.Request.Context(), ctx.Param("id"), req.Data)
	res := dto.Ok(scan.Message)
	res.Data = scan
	dto.ActionResponse(ctx, res)
}

func (s *service) ScanImage(ctx *ginext.Context) {
	body := ctx.Request.Body
	if fh, err := ctx.FormFile("frame"); err == nil {
		f, err := fh.Open()
		if err != nil {
			dto.ActionResponse(ctx, dto.Fail("Failed to read uploaded frame."))
			return
		}
		defer f.Close()
		body = f
	}
	dto.ActionResponse(ctx, s.scanImage(ctx.Request.Context(), ctx.Param("id"), body))
}

func (s *service) CheckIn(ctx *ginext.Context) {
	var req dto.CheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	dto.ActionResponse(ctx, s.checkIn(ctx.Request.Context(), ctx.Param("id"), req.RegistrationID))
}

func (s *service) ListRegistrations(ctx *ginext.Context) {
	eventID := ctx.Param("id")
	if _, err := s.repo.GetEventByID(ctx.Request.Context(), eventID); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}
	regs, err := s.repo.GetRegistrationsByEventID(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to list registrations")
		dto.InternalServerError(ctx)
		return
	}
	out := make([]dto.RegistrationResponse, 0, len(regs))
	for i := range regs {
		out = append(out, dto.NewRegistrationResponse(&regs[i]))
	}
	dto.SuccessResponse(ctx, out)
}

func (s *service) Attendance(ctx *ginext.Context) {
	out, err := s.attendance(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to build attendance sheet")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, out)
}
