package lifecycle

import (
	"errors"
	"testing"
	"time"

	"eventpass/internal/model"
)

func taskEvent() *model.Event {
	pdf := "https://files.example.org/task.pdf"
	return &model.Event{ID: "ev-1", TaskPdfURL: &pdf}
}

func TestSeedStatus(t *testing.T) {
	if got := SeedStatus(&model.Event{ID: "ev"}); got != model.StatusBooked {
		t.Fatalf("event without task: expected booked, got %s", got)
	}
	empty := ""
	if got := SeedStatus(&model.Event{ID: "ev", TaskPdfURL: &empty}); got != model.StatusBooked {
		t.Fatalf("event with empty task url: expected booked, got %s", got)
	}
	if got := SeedStatus(taskEvent()); got != model.StatusPending {
		t.Fatalf("event with task: expected pending, got %s", got)
	}
}

func TestTransition_Table(t *testing.T) {
	link := "https://github.com/jane/task"
	cases := []struct {
		name string
		from model.Status
		to   model.Status
		err  error
	}{
		{"pending to booked", model.StatusPending, model.StatusBooked, nil},
		{"pending to waitlisted", model.StatusPending, model.StatusWaitlisted, nil},
		{"pending to denied", model.StatusPending, model.StatusDenied, nil},
		{"waitlisted to booked", model.StatusWaitlisted, model.StatusBooked, nil},
		{"waitlisted to denied", model.StatusWaitlisted, model.StatusDenied, nil},
		{"booked to denied", model.StatusBooked, model.StatusDenied, nil},
		{"booked to waitlisted", model.StatusBooked, model.StatusWaitlisted, ErrIllegalTransition},
		{"booked to pending", model.StatusBooked, model.StatusPending, ErrIllegalTransition},
		{"denied to booked", model.StatusDenied, model.StatusBooked, ErrIllegalTransition},
		{"denied to waitlisted", model.StatusDenied, model.StatusWaitlisted, ErrIllegalTransition},
		{"same status", model.StatusBooked, model.StatusBooked, ErrUnchanged},
		{"unknown status", model.StatusPending, model.Status("approved"), ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := &model.Registration{EventID: "ev-1", Status: tc.from, TaskSubmission: &link}
			err := Transition(reg, taskEvent(), tc.to)
			if tc.err == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if reg.Status != tc.to {
					t.Fatalf("expected %s, got %s", tc.to, reg.Status)
				}
				return
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if reg.Status != tc.from {
				t.Fatalf("status must not change on error, got %s", reg.Status)
			}
		})
	}
}

func TestTransition_AttendedCannotBeDenied(t *testing.T) {
	link := "https://github.com/jane/task"
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg := &model.Registration{EventID: "ev-1", Status: model.StatusWaitlisted, TaskSubmission: &link}
	if _, err := CheckIn(reg, at); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	err := Transition(reg, taskEvent(), model.StatusDenied)
	if !errors.Is(err, ErrAlreadyAttended) {
		t.Fatalf("expected ErrAlreadyAttended, got %v", err)
	}
	if reg.Status != model.StatusBooked || !reg.Attended || !reg.AttendedAt.Equal(at) {
		t.Fatalf("attended registration must stay booked, got %+v", reg)
	}
}

func TestTransition_RequiresTaskForApproval(t *testing.T) {
	reg := &model.Registration{EventID: "ev-1", Status: model.StatusPending}

	for _, to := range []model.Status{model.StatusBooked, model.StatusWaitlisted} {
		if err := Transition(reg, taskEvent(), to); !errors.Is(err, ErrTaskRequired) {
			t.Fatalf("%s without submission: expected ErrTaskRequired, got %v", to, err)
		}
	}
	if err := Transition(reg, taskEvent(), model.StatusDenied); err != nil {
		t.Fatalf("denial must not need a submission: %v", err)
	}
}

func TestTransition_NoTaskEventSkipsSubmissionCheck(t *testing.T) {
	reg := &model.Registration{EventID: "ev-2", Status: model.StatusWaitlisted}
	if err := Transition(reg, &model.Event{ID: "ev-2"}, model.StatusBooked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransition_EventMismatch(t *testing.T) {
	reg := &model.Registration{EventID: "other", Status: model.StatusPending}
	if err := Transition(reg, taskEvent(), model.StatusDenied); !errors.Is(err, ErrEventMismatch) {
		t.Fatalf("expected ErrEventMismatch, got %v", err)
	}
}

func TestSendsPass(t *testing.T) {
	want := map[model.Status]bool{
		model.StatusBooked:     true,
		model.StatusWaitlisted: true,
		model.StatusDenied:     false,
		model.StatusPending:    false,
	}
	for st, expected := range want {
		if SendsPass(st) != expected {
			t.Fatalf("SendsPass(%s) = %v", st, !expected)
		}
	}
}

func TestCheckIn_PromotesWaitlisted(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := &model.Registration{Status: model.StatusWaitlisted}

	changed, err := CheckIn(reg, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed || !reg.Attended || reg.Status != model.StatusBooked {
		t.Fatalf("expected attended booked registration, got %+v", reg)
	}
	if reg.AttendedAt == nil || !reg.AttendedAt.Equal(now) {
		t.Fatalf("expected attendedAt %v, got %v", now, reg.AttendedAt)
	}
}

func TestCheckIn_Idempotent(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := &model.Registration{Status: model.StatusBooked}

	if _, err := CheckIn(reg, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	changed, err := CheckIn(reg, first.Add(time.Hour))
	if err != nil {
		t.Fatalf("second check-in must not fail: %v", err)
	}
	if changed {
		t.Fatalf("second check-in must be a no-op")
	}
	if !reg.Attended || !reg.AttendedAt.Equal(first) {
		t.Fatalf("attendedAt must keep first timestamp, got %v", reg.AttendedAt)
	}
}

func TestCheckIn_RejectsUnapproved(t *testing.T) {
	for _, st := range []model.Status{model.StatusPending, model.StatusDenied} {
		reg := &model.Registration{Status: st}
		if _, err := CheckIn(reg, time.Now()); !errors.Is(err, ErrNotApproved) {
			t.Fatalf("%s: expected ErrNotApproved, got %v", st, err)
		}
		if reg.Attended || reg.AttendedAt != nil {
			t.Fatalf("%s: registration must stay untouched", st)
		}
	}
}

func TestCanCheckIn(t *testing.T) {
	if !CanCheckIn(&model.Registration{Status: model.StatusWaitlisted}) {
		t.Fatalf("waitlisted registration should be checkable")
	}
	if CanCheckIn(&model.Registration{Status: model.StatusBooked, Attended: true}) {
		t.Fatalf("attended registration should not be checkable")
	}
	if CanCheckIn(&model.Registration{Status: model.StatusDenied}) {
		t.Fatalf("denied registration should not be checkable")
	}
}
