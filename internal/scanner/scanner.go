// Package scanner runs the door-side attendance loop: grab a frame, decode
// any QR code in it, resolve the pass and hold the result for a manual
// check-in decision.
package scanner

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eventpass/internal/dto"
	"eventpass/internal/model"
	"eventpass/internal/pass"
)

const DefaultInterval = 100 * time.Millisecond

type State struct {
	CameraAvailable bool
	LastText        string
	Current         *dto.ScanResult
	Pending         bool
	Message         string
}

// Paused reports whether a pass is on screen awaiting a decision. No new
// codes are sampled until it is cleared. Not-found and invalid results keep
// sampling.
func (s State) Paused() bool {
	if s.Current == nil {
		return false
	}
	return s.Current.Kind == dto.ScanRegistration || s.Current.Kind == dto.ScanManual
}

// CanCheckIn mirrors the check-in button: a resolved registration that is
// approved and not yet attended, with no request in flight.
func (s State) CanCheckIn() bool {
	return !s.Pending && s.Current != nil && s.Current.Registration != nil && s.Current.Registration.CanCheckIn
}

type Scanner struct {
	open     Opener
	resolver Resolver
	decode   func(image.Image) (string, error)
	interval time.Duration
	log      *zerolog.Logger
	onChange func(State)

	mu    sync.Mutex
	state State
}

type Option func(*Scanner)

func WithInterval(d time.Duration) Option {
	return func(s *Scanner) { s.interval = d }
}

// OnChange registers a callback invoked with a snapshot after every state change.
func OnChange(fn func(State)) Option {
	return func(s *Scanner) { s.onChange = fn }
}

func New(open Opener, resolver Resolver, log *zerolog.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		open:     open,
		resolver: resolver,
		decode:   pass.ReadImage,
		interval: DefaultInterval,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Scanner) snapshot() State {
	st := s.state
	if st.Current != nil {
		cur := *st.Current
		if cur.Registration != nil {
			reg := *cur.Registration
			cur.Registration = &reg
		}
		st.Current = &cur
	}
	return st
}

func (s *Scanner) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	st := s.snapshot()
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(st)
	}
}

// Run opens the camera and samples frames until ctx is cancelled. The camera
// is closed when the loop exits. ErrCameraUnavailable is returned when no
// camera can be opened; manual entry through Submit keeps working.
func (s *Scanner) Run(ctx context.Context) error {
	src, err := s.open(ctx)
	if err != nil {
		s.update(func(st *State) {
			st.CameraAvailable = false
			st.Message = "Camera unavailable. Enter codes manually."
		})
		s.log.Warn().Err(err).Msg("camera unavailable, manual entry only")
		if errors.Is(err, ErrCameraUnavailable) {
			return err
		}
		return errors.Join(ErrCameraUnavailable, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close camera")
		}
	}()

	s.update(func(st *State) { st.CameraAvailable = true })

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.update(func(st *State) { st.CameraAvailable = false })
			return nil
		case <-ticker.C:
			if _, err := s.step(ctx, src); err != nil && ctx.Err() == nil {
				s.log.Debug().Err(err).Msg("frame skipped")
			}
		}
	}
}

// step processes one frame. It reports whether a new code was looked up.
func (s *Scanner) step(ctx context.Context, src Source) (bool, error) {
	st := s.State()
	if st.Paused() {
		return false, nil
	}

	frame, err := src.Frame(ctx)
	if err != nil {
		if errors.Is(err, ErrNoFrame) {
			return false, nil
		}
		return false, err
	}
	text, err := s.decode(frame)
	if err != nil || text == st.LastText {
		return false, nil
	}

	// A failed lookup leaves LastText alone so the next frame retries it.
	if err := s.resolve(ctx, text); err != nil {
		return true, err
	}
	s.update(func(st *State) { st.LastText = text })
	return true, nil
}

// Submit resolves manually entered text, bypassing de-duplication.
func (s *Scanner) Submit(ctx context.Context, raw string) error {
	return s.resolve(ctx, raw)
}

func (s *Scanner) resolve(ctx context.Context, raw string) error {
	s.update(func(st *State) { st.Pending = true })
	res, err := s.resolver.Resolve(ctx, raw)
	if err != nil {
		s.update(func(st *State) {
			st.Pending = false
			st.Message = "Lookup failed: " + err.Error()
		})
		return err
	}
	s.update(func(st *State) {
		st.Pending = false
		st.Current = &res
		st.Message = res.Message
	})
	return nil
}

// Clear dismisses the current result and resumes sampling. The same pass can
// be scanned again afterwards.
func (s *Scanner) Clear() {
	s.update(func(st *State) {
		st.Current = nil
		st.LastText = ""
		st.Message = ""
	})
}

// ConfirmCheckIn checks in the registration on screen.
func (s *Scanner) ConfirmCheckIn(ctx context.Context) (dto.ActionResult, error) {
	st := s.State()
	if !st.CanCheckIn() {
		return dto.Fail("Nothing eligible for check-in is on screen."), nil
	}
	id := st.Current.Registration.ID

	s.update(func(st *State) { st.Pending = true })
	res, err := s.resolver.CheckIn(ctx, id)
	s.update(func(st *State) {
		st.Pending = false
		switch {
		case err != nil:
			st.Message = "Check-in failed: " + err.Error()
		case res.Success && st.Current != nil && st.Current.Registration != nil && st.Current.Registration.ID == id:
			st.Current.Registration.Attended = true
			st.Current.Registration.CanCheckIn = false
			st.Current.Registration.Status = model.StatusBooked
			st.Message = res.Message
		default:
			st.Message = res.Message
		}
	})
	return res, err
}
