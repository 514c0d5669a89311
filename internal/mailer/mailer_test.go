package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"eventpass/internal/model"
)

func TestRender(t *testing.T) {
	got := Render("Hi {studentName}, welcome to {eventName}. {unknown}", map[string]string{
		"studentName": "Jane", "eventName": "Hack Night",
	})
	if got != "Hi Jane, welcome to Hack Night. {unknown}" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestRegistrationEmail(t *testing.T) {
	pdf := "https://files.example.org/task.pdf"
	event := &model.Event{
		ID: "e1", Name: "Hack Night", TaskPdfURL: &pdf,
		MailSubject: "Registered for {eventName}",
		MailBody:    "Hi {studentName}, submit at {taskSubmissionLink}. Task: {taskPdfLink}",
	}
	reg := &model.Registration{ID: "r1", StudentName: "Jane <Doe>", StudentEmail: "jane@example.com"}

	msg := RegistrationEmail(reg, event, "https://events.example.org/")
	if msg.To != "jane@example.com" || msg.Subject != "Registered for Hack Night" {
		t.Fatalf("unexpected header fields %+v", msg)
	}
	if !strings.Contains(msg.HTML, `href="https://events.example.org/tasks/r1/submit"`) {
		t.Fatalf("missing submission link: %s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, `href="https://files.example.org/task.pdf"`) {
		t.Fatalf("missing task pdf link: %s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "Jane &lt;Doe&gt;") {
		t.Fatalf("student name must be escaped: %s", msg.HTML)
	}
	if msg.Credentials != nil {
		t.Fatalf("event without sender must use relay defaults")
	}
}

func TestPassEmail_UsesEventSender(t *testing.T) {
	event := &model.Event{
		Name: "Hack Night", PassSubject: "Your pass for {eventName}", PassBody: "Hi {studentName}, you are {status}.",
		AppMail: "club@example.org", AppPass: "secret",
	}
	reg := &model.Registration{ID: "r1", StudentName: "Jane", StudentEmail: "jane@example.com", Status: model.StatusBooked}

	msg := PassEmail(reg, event, "http://localhost:8080", "https://qr.example/img?data=x")
	if msg.From != "club@example.org" || msg.Credentials == nil || msg.Credentials.Password != "secret" {
		t.Fatalf("expected event credentials, got %+v", msg)
	}
	if !strings.Contains(msg.HTML, "you are booked") || !strings.Contains(msg.HTML, `src="https://qr.example/img?data=x"`) {
		t.Fatalf("unexpected body %s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "http://localhost:8080/mypass/r1") {
		t.Fatalf("missing pass page link: %s", msg.HTML)
	}
}

func TestManualEmail_WithoutPass(t *testing.T) {
	p := &model.ManualPass{StudentName: "Sam", StudentEmail: "sam@example.com", EventName: "Demo Day"}
	msg := ManualEmail(p, "About {eventName}", "Hello {studentName}", "")
	if msg.Subject != "About Demo Day" || msg.HTML != "Hello Sam" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestSMTPSender_Send(t *testing.T) {
	log := zerolog.Nop()
	s := NewSMTPSender(Config{Host: "smtp.example.org", User: "relay@example.org", Password: "pw"}, &log)

	var gotAddr, gotFrom string
	var gotBody []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotBody = addr, from, msg
		return nil
	}

	err := s.Send(context.Background(), Message{To: "jane@example.com", Subject: "Pass", HTML: "<b>hi</b>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAddr != "smtp.example.org:587" || gotFrom != "relay@example.org" {
		t.Fatalf("unexpected envelope %s %s", gotAddr, gotFrom)
	}
	if !strings.Contains(string(gotBody), "Content-Type: text/html; charset=UTF-8") {
		t.Fatalf("expected html content type: %s", gotBody)
	}

	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }
	if err := s.Send(context.Background(), Message{To: "jane@example.com"}); err == nil {
		t.Fatalf("expected relay error")
	}
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	log := zerolog.Nop()
	s := NewSMTPSender(Config{}, &log)
	if err := s.Send(context.Background(), Message{To: "x@example.com"}); !errors.Is(err, ErrNoSender) {
		t.Fatalf("expected ErrNoSender, got %v", err)
	}
}

func TestBuild_EncodesSubject(t *testing.T) {
	raw := string(Build("a@example.org", Message{To: "b@example.org", Subject: "Pass ✅"}, time.Unix(0, 0)))
	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject: %s", raw)
	}
}
