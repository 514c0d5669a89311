// Package lifecycle holds the registration status machine and the check-in
// rules. It is pure: callers load records, apply a transition here and persist
// the result.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"eventpass/internal/model"
)

var (
	ErrInvalidStatus     = errors.New("invalid status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrUnchanged         = errors.New("status unchanged")
	ErrTaskRequired      = errors.New("task submission required before approval")
	ErrNotApproved       = errors.New("registration is not approved for check-in")
	ErrEventMismatch     = errors.New("registration belongs to another event")
	ErrAlreadyAttended   = errors.New("registration has already checked in")
)

var transitions = map[model.Status][]model.Status{
	model.StatusPending:    {model.StatusBooked, model.StatusWaitlisted, model.StatusDenied},
	model.StatusWaitlisted: {model.StatusBooked, model.StatusDenied},
	model.StatusBooked:     {model.StatusDenied},
	model.StatusDenied:     nil,
}

func CanTransition(from, to model.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SeedStatus is the status a new registration starts in. Events without a
// task issue the pass immediately.
func SeedStatus(event *model.Event) model.Status {
	if event.RequiresTask() {
		return model.StatusPending
	}
	return model.StatusBooked
}

// Transition moves reg to the requested status. The registration is left
// untouched when an error is returned.
func Transition(reg *model.Registration, event *model.Event, to model.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if reg.EventID != event.ID {
		return ErrEventMismatch
	}
	if reg.Status == to {
		return ErrUnchanged
	}
	if !CanTransition(reg.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, reg.Status, to)
	}
	// An attendee who is in the room stays approved.
	if reg.Attended && !to.Approved() {
		return ErrAlreadyAttended
	}
	if to.Approved() && event.RequiresTask() && reg.TaskSubmission == nil {
		return ErrTaskRequired
	}
	reg.Status = to
	return nil
}

// SendsPass reports whether entering the status dispatches a pass email.
// Denials are silent.
func SendsPass(to model.Status) bool {
	return to.Approved()
}

// CanCheckIn mirrors the door-side enablement rule: approved and not yet attended.
func CanCheckIn(reg *model.Registration) bool {
	return reg.Status.Approved() && !reg.Attended
}

// CheckIn marks reg as attended. A waitlisted attendee is promoted to booked
// in the same step. Checking in twice is a no-op that keeps the first
// timestamp; changed is false in that case.
func CheckIn(reg *model.Registration, now time.Time) (changed bool, err error) {
	if reg.Attended {
		if reg.AttendedAt == nil {
			t := now
			reg.AttendedAt = &t
			return true, nil
		}
		return false, nil
	}
	if !reg.Status.Approved() {
		return false, fmt.Errorf("%w: status is %s", ErrNotApproved, reg.Status)
	}
	t := now
	reg.Attended = true
	reg.AttendedAt = &t
	reg.Status = model.StatusBooked
	return true, nil
}
