package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"eventpass/internal/dto"
	"eventpass/internal/mailer"
	"eventpass/internal/mocks"
	"eventpass/internal/model"
	"eventpass/internal/notify"
	"eventpass/internal/pass"
	"eventpass/internal/repo"
)

func setup(t *testing.T, status model.Status) (*repo.Memory, *mocks.MockSender, *notify.Dispatcher) {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemory()
	if err := store.CreateEvent(ctx, &model.Event{
		ID: "e1", Name: "Hack Night", Date: time.Now().Add(24 * time.Hour), IsLive: true,
		MailSubject: "Welcome to {eventName}", MailBody: "Submit at {taskSubmissionLink}",
		PassSubject: "Pass for {eventName}", PassBody: "Hi {studentName}",
	}); err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := store.CreateRegistrationTx(ctx, &model.Registration{
		ID: "r1", EventID: "e1", StudentName: "Jane Doe", StudentEmail: "jane@example.com",
		RollNumber: "R-1", Status: status, RegisteredAt: time.Now(),
	}); err != nil {
		t.Fatalf("create registration: %v", err)
	}

	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)
	log := zerolog.Nop()
	return store, sender, notify.NewDispatcher(store, sender, pass.NewRenderer("", 0), &log)
}

func TestDispatcher_PassEmailForApproved(t *testing.T) {
	for _, st := range []model.Status{model.StatusBooked, model.StatusWaitlisted} {
		_, sender, d := setup(t, st)
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
			if msg.To != "jane@example.com" || msg.Subject != "Pass for Hack Night" {
				t.Errorf("unexpected message %+v", msg)
			}
			if !strings.Contains(msg.HTML, pass.DefaultEndpoint) {
				t.Errorf("expected QR image in body: %s", msg.HTML)
			}
			return nil
		}).Times(1)

		err := d.Handle(context.Background(), dto.MailJob{Kind: dto.MailPass, RegistrationID: "r1", BaseURL: "http://localhost"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", st, err)
		}
	}
}

func TestDispatcher_PassSkippedWhenNotApproved(t *testing.T) {
	_, sender, d := setup(t, model.StatusDenied)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	if err := d.Handle(context.Background(), dto.MailJob{Kind: dto.MailPass, RegistrationID: "r1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatcher_RegistrationEmail(t *testing.T) {
	_, sender, d := setup(t, model.StatusPending)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
		if !strings.Contains(msg.HTML, "https://events.example.org/tasks/r1/submit") {
			t.Errorf("missing submission link: %s", msg.HTML)
		}
		return nil
	})

	err := d.Handle(context.Background(), dto.MailJob{Kind: dto.MailRegistration, RegistrationID: "r1", BaseURL: "https://events.example.org"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatcher_ManualWithAndWithoutPass(t *testing.T) {
	_, sender, d := setup(t, model.StatusPending)
	job := dto.MailJob{Kind: dto.MailManual, Manual: &dto.ManualMail{
		Pass:    model.ManualPass{StudentName: "Sam", StudentEmail: "sam@example.com", EventName: "Demo Day"},
		Extra:   map[string]string{"table": "7"},
		Subject: "Your pass", Body: "Hello {studentName}", WithPass: true,
	}}

	gomock.InOrder(
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
			if !strings.Contains(msg.HTML, "<img") {
				t.Errorf("expected pass image: %s", msg.HTML)
			}
			return nil
		}),
		sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
			if strings.Contains(msg.HTML, "<img") {
				t.Errorf("pass must be omitted: %s", msg.HTML)
			}
			return nil
		}),
	)

	if err := d.Handle(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job.Manual.WithPass = false
	if err := d.Handle(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatcher_Errors(t *testing.T) {
	_, _, d := setup(t, model.StatusBooked)
	ctx := context.Background()

	if err := d.Handle(ctx, dto.MailJob{Kind: "sms"}); !errors.Is(err, notify.ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
	if err := d.Handle(ctx, dto.MailJob{Kind: dto.MailPass, RegistrationID: "missing"}); !errors.Is(err, repo.ErrRegistrationNotFound) {
		t.Fatalf("expected ErrRegistrationNotFound, got %v", err)
	}
}

func TestInline_DeliversInBackground(t *testing.T) {
	_, sender, d := setup(t, model.StatusBooked)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("relay down")).Times(1)

	log := zerolog.Nop()
	q := notify.NewInline(d, &log)
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Enqueue(ctx, dto.MailJob{Kind: dto.MailPass, RegistrationID: "r1"}); err != nil {
		t.Fatalf("enqueue must not fail: %v", err)
	}
	// request contexts end before delivery; the job must still run
	cancel()
	q.Wait()
}
