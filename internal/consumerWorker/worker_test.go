package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"eventpass/internal/dto"
)

type recordingHandler struct {
	jobs []dto.MailJob
	err  error
}

func (h *recordingHandler) Handle(_ context.Context, job dto.MailJob) error {
	h.jobs = append(h.jobs, job)
	return h.err
}

type fakeConsumer struct {
	handler func([]byte) error
}

func (f *fakeConsumer) Consume(handler func([]byte) error) error {
	f.handler = handler
	return nil
}

func TestReader_HandleAlwaysAcks(t *testing.T) {
	h := &recordingHandler{err: errors.New("smtp down")}
	r := NewReader(&fakeConsumer{}, h)

	body, _ := json.Marshal(dto.MailJob{Kind: dto.MailPass, RegistrationID: "r1"})
	if err := r.handle(body); err != nil {
		t.Fatalf("failed sends must still be acked, got %v", err)
	}
	if err := r.handle([]byte("{not json")); err != nil {
		t.Fatalf("malformed bodies must be acked, got %v", err)
	}
	if len(h.jobs) != 1 || h.jobs[0].RegistrationID != "r1" {
		t.Fatalf("unexpected jobs %+v", h.jobs)
	}
}

func TestReader_StartStop(t *testing.T) {
	c := &fakeConsumer{}
	h := &recordingHandler{}
	r := NewReader(c, h)

	r.Start(context.Background())
	r.Stop()

	if c.handler == nil {
		t.Fatalf("reader must register a consumer handler")
	}
}
