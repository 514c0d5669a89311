package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"eventpass/internal/model"
)

// Memory is an in-process Repository used for local runs without Postgres
// and as the store behind service tests. Records are copied on the way in and
// out so callers never share state with the store.
type Memory struct {
	mu            sync.RWMutex
	events        map[string]model.Event
	registrations map[string]model.Registration
	now           func() time.Time
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		events:        make(map[string]model.Event),
		registrations: make(map[string]model.Registration),
		now:           time.Now,
	}
}

func (m *Memory) MigrateUp(string) error   { return nil }
func (m *Memory) MigrateDown(string) error { return nil }

func (m *Memory) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e.CreatedAt, e.UpdatedAt = now, now
	m.events[e.ID] = copyEvent(*e)
	return nil
}

func (m *Memory) GetEventByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	out := copyEvent(e)
	return &out, nil
}

func (m *Memory) GetAllEvents(_ context.Context) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, copyEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) GetLiveEvents(_ context.Context, now time.Time) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Event
	for _, e := range m.events {
		if e.IsLive && e.Date.After(now) {
			out = append(out, copyEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) SetEventLive(_ context.Context, id string, live bool) error {
	return m.updateEvent(id, func(e *model.Event) { e.IsLive = live })
}

func (m *Memory) UpdatePassTemplate(_ context.Context, id, subject, body string) error {
	return m.updateEvent(id, func(e *model.Event) {
		e.PassSubject = subject
		e.PassBody = body
	})
}

func (m *Memory) CloseEndedEvents(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.events {
		if e.IsLive && e.Date.Before(now) {
			e.IsLive = false
			e.UpdatedAt = m.now()
			m.events[id] = e
			n++
		}
	}
	return n, nil
}

func (m *Memory) updateEvent(id string, fn func(*model.Event)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrEventNotFound
	}
	fn(&e)
	e.UpdatedAt = m.now()
	m.events[id] = e
	return nil
}

func (m *Memory) CreateRegistrationTx(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[reg.EventID]; !ok {
		return ErrEventNotFound
	}
	for _, r := range m.registrations {
		if r.EventID == reg.EventID && strings.EqualFold(r.StudentEmail, reg.StudentEmail) {
			return ErrDuplicateRegistration
		}
	}
	reg.UpdatedAt = m.now()
	m.registrations[reg.ID] = copyRegistration(*reg)
	return nil
}

func (m *Memory) GetRegistrationByID(_ context.Context, id string) (*model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	out := copyRegistration(r)
	return &out, nil
}

func (m *Memory) GetRegistrationsByEventID(_ context.Context, eventID string) ([]model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Registration
	for _, r := range m.registrations {
		if r.EventID == eventID {
			out = append(out, copyRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (m *Memory) CountRegistrationsByStatus(_ context.Context, eventID string) (map[model.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[model.Status]int)
	for _, r := range m.registrations {
		if r.EventID == eventID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (m *Memory) UpdateRegistrationStatus(_ context.Context, id string, status model.Status) error {
	return m.updateRegistration(id, func(r *model.Registration) { r.Status = status })
}

func (m *Memory) SaveTaskSubmission(_ context.Context, id, link string, at time.Time) error {
	return m.updateRegistration(id, func(r *model.Registration) {
		r.TaskSubmission = &link
		r.TaskSubmittedAt = &at
	})
}

func (m *Memory) SaveAttendance(_ context.Context, id string, status model.Status, at time.Time) error {
	return m.updateRegistration(id, func(r *model.Registration) {
		r.Attended = true
		if r.AttendedAt == nil {
			r.AttendedAt = &at
		}
		r.Status = status
	})
}

func (m *Memory) updateRegistration(id string, fn func(*model.Registration)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok {
		return ErrRegistrationNotFound
	}
	fn(&r)
	r.UpdatedAt = m.now()
	m.registrations[id] = copyRegistration(r)
	return nil
}

func copyEvent(e model.Event) model.Event {
	if e.TaskPdfURL != nil {
		v := *e.TaskPdfURL
		e.TaskPdfURL = &v
	}
	if e.AllowedYears != nil {
		e.AllowedYears = append([]int64(nil), e.AllowedYears...)
	}
	return e
}

func copyRegistration(r model.Registration) model.Registration {
	if r.TaskSubmission != nil {
		v := *r.TaskSubmission
		r.TaskSubmission = &v
	}
	if r.TaskSubmittedAt != nil {
		v := *r.TaskSubmittedAt
		r.TaskSubmittedAt = &v
	}
	if r.AttendedAt != nil {
		v := *r.AttendedAt
		r.AttendedAt = &v
	}
	return r
}
