package service

import (
	"context"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"eventpass/internal/dto"
	"eventpass/internal/model"
	"eventpass/internal/pass"
	"eventpass/pkg/validator"
)

// sendManualPass emails a one-off pass that has no stored registration behind
// it. With SendWithoutPass the email goes out without a QR code.
func (s *service) sendManualPass(ctx context.Context, req dto.ManualPassRequest, base string) (res dto.ActionResult) {
	defer s.recoverAction("send_manual_pass", &res)

	if fields := validator.ValidateFields(ctx, req); fields != nil {
		return dto.Invalid(fields)
	}

	p := model.ManualPass{
		StudentName:  strings.TrimSpace(req.StudentName),
		StudentEmail: strings.TrimSpace(req.StudentEmail),
		EventName:    strings.TrimSpace(req.EventName),
		EventDate:    req.EventDate,
		EventVenue:   strings.TrimSpace(req.EventVenue),
		Extra:        req.Extra,
	}

	var out dto.PassResponse
	if !req.SendWithoutPass {
		data, err := pass.EncodeManual(&p)
		if err != nil {
			return dto.Fail(err.Error())
		}
		out.QRData = data
		out.QRImageURL = s.renderer.ImageURL(data)
	}

	job := dto.MailJob{
		Kind:    dto.MailManual,
		BaseURL: base,
		Manual: &dto.ManualMail{
			Pass:     p,
			Extra:    req.Extra,
			Subject:  req.EmailSubject,
			Body:     req.EmailBody,
			WithPass: !req.SendWithoutPass,
		},
	}
	if !s.enqueue(ctx, job) {
		return dto.Fail("The email could not be sent. Please try again.")
	}

	s.log.Info().Str("email", p.StudentEmail).Bool("with_pass", !req.SendWithoutPass).Msg("manual email queued")
	if req.SendWithoutPass {
		return dto.Ok("Email sent to " + p.StudentEmail + ".")
	}
	res = dto.Ok("Pass sent to " + p.StudentEmail + ".")
	res.Data = out
	return res
}

func (s *service) SendManualPass(ctx *ginext.Context) {
	var req dto.ManualPassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	dto.ActionResponse(ctx, s.sendManualPass(ctx.Request.Context(), req, baseURL(ctx)))
}

func (s *service) ScanManualPass(ctx *ginext.Context) {
	var req dto.ScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ActionResponse(ctx, dto.Fail("Invalid JSON format"))
		return
	}
	scan := s.resolveScan(ctx.Request.Context(), "", req.Data)
	res := dto.Ok(scan.Message)
	res.Data = scan
	dto.ActionResponse(ctx, res)
}
