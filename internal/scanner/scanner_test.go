package scanner

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"eventpass/internal/dto"
	"eventpass/internal/model"
	"eventpass/internal/pass"
)

func qrFrame(t *testing.T, text string) image.Image {
	t.Helper()
	raw, err := pass.NewRenderer("", 256).PNG(text)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

type frameSource struct {
	mu     sync.Mutex
	frames []image.Image
	i      int
	closed bool
}

func (f *frameSource) Frame(context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil, ErrNoFrame
	}
	img := f.frames[f.i%len(f.frames)]
	f.i++
	return img, nil
}

func (f *frameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *frameSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeResolver struct {
	mu       sync.Mutex
	resolved []string
	checkins []string
}

func (r *fakeResolver) Resolve(_ context.Context, raw string) (dto.ScanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, raw)
	p, err := pass.Decode(raw)
	if err != nil {
		return dto.ScanResult{Kind: dto.ScanInvalid}, nil
	}
	if p.RegistrationID == "" || p.RegistrationID == "nobody" {
		return dto.ScanResult{Kind: dto.ScanNotFound, Message: "No matching registration found."}, nil
	}
	return dto.ScanResult{Kind: dto.ScanRegistration, Registration: &dto.RegistrationResponse{
		ID: p.RegistrationID, Status: model.StatusWaitlisted, CanCheckIn: true,
	}}, nil
}

func (r *fakeResolver) CheckIn(_ context.Context, id string) (dto.ActionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkins = append(r.checkins, id)
	return dto.Ok("checked in"), nil
}

func (r *fakeResolver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resolved)
}

func newScanner(src Source, r Resolver) *Scanner {
	log := zerolog.Nop()
	return New(func(context.Context) (Source, error) { return src, nil }, r, &log, WithInterval(5*time.Millisecond))
}

func TestStep_DeduplicatesAndPauses(t *testing.T) {
	code := qrFrame(t, "abc123")
	src := &frameSource{frames: []image.Image{code}}
	res := &fakeResolver{}
	s := newScanner(src, res)
	ctx := context.Background()

	if ok, err := s.step(ctx, src); !ok || err != nil {
		t.Fatalf("first frame must resolve, got %v, %v", ok, err)
	}
	if !s.State().Paused() {
		t.Fatalf("scanner must pause while a result is shown")
	}
	if ok, _ := s.step(ctx, src); ok {
		t.Fatalf("paused scanner must not sample")
	}

	s.Clear()
	if s.State().LastText != "" {
		t.Fatalf("clear must forget the last code")
	}
	if ok, _ := s.step(ctx, src); !ok {
		t.Fatalf("the same pass must be scannable again after clear")
	}
	if res.count() != 2 {
		t.Fatalf("expected two lookups, got %d", res.count())
	}
	s.Clear()

	src.mu.Lock()
	src.frames = []image.Image{qrFrame(t, `{"registrationId":"def456"}`)}
	src.mu.Unlock()
	if ok, _ := s.step(ctx, src); !ok {
		t.Fatalf("a different code must resolve")
	}
	if got := s.State().Current.Registration.ID; got != "def456" {
		t.Fatalf("unexpected registration %q", got)
	}
}

func TestStep_NotFoundKeepsSamplingWithoutRepeats(t *testing.T) {
	src := &frameSource{frames: []image.Image{qrFrame(t, "nobody")}}
	res := &fakeResolver{}
	s := newScanner(src, res)
	ctx := context.Background()

	if ok, _ := s.step(ctx, src); !ok {
		t.Fatalf("first frame must be looked up")
	}
	st := s.State()
	if st.Paused() || st.Current == nil || st.Current.Kind != dto.ScanNotFound {
		t.Fatalf("not-found result must be shown without pausing, got %+v", st)
	}
	for i := 0; i < 3; i++ {
		if ok, _ := s.step(ctx, src); ok {
			t.Fatalf("same code in view must not be looked up again")
		}
	}
	if res.count() != 1 {
		t.Fatalf("expected one lookup, got %d", res.count())
	}
}

type flakyResolver struct {
	fakeResolver
	failures int
}

func (r *flakyResolver) Resolve(ctx context.Context, raw string) (dto.ScanResult, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.resolved = append(r.resolved, raw)
		r.mu.Unlock()
		return dto.ScanResult{}, errors.New("connection refused")
	}
	r.mu.Unlock()
	return r.fakeResolver.Resolve(ctx, raw)
}

func TestStep_RetriesAfterLookupFailure(t *testing.T) {
	src := &frameSource{frames: []image.Image{qrFrame(t, "abc123")}}
	res := &flakyResolver{failures: 1}
	s := newScanner(src, res)
	ctx := context.Background()

	if _, err := s.step(ctx, src); err == nil {
		t.Fatalf("expected lookup error")
	}
	st := s.State()
	if st.Current != nil || st.LastText != "" {
		t.Fatalf("failed lookup must not be remembered, got %+v", st)
	}

	for i := 0; i < 4 && s.State().Current == nil; i++ {
		if _, err := s.step(ctx, src); err != nil {
			t.Fatalf("retry: %v", err)
		}
	}
	st = s.State()
	if st.Current == nil || st.Current.Registration == nil || st.Current.Registration.ID != "abc123" {
		t.Fatalf("pass in view must resolve on retry, got %+v", st)
	}
	if res.count() != 2 {
		t.Fatalf("expected one failed and one successful lookup, got %d", res.count())
	}
}

func TestStep_NoCodeInFrame(t *testing.T) {
	src := &frameSource{frames: []image.Image{imaging.New(120, 120, color.White)}}
	res := &fakeResolver{}
	s := newScanner(src, res)
	if ok, err := s.step(context.Background(), src); ok || err != nil {
		t.Fatalf("blank frame is not an error, got %v, %v", ok, err)
	}
	if res.count() != 0 {
		t.Fatalf("blank frame must not trigger a lookup")
	}
}

func TestConfirmCheckIn(t *testing.T) {
	res := &fakeResolver{}
	s := newScanner(&frameSource{}, res)
	ctx := context.Background()

	if out, _ := s.ConfirmCheckIn(ctx); out.Success {
		t.Fatalf("nothing on screen must not check in")
	}

	if err := s.Submit(ctx, "nobody"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.State().CanCheckIn() {
		t.Fatalf("not-found result must not enable check-in")
	}
	s.Clear()

	if err := s.Submit(ctx, "abc123"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	out, err := s.ConfirmCheckIn(ctx)
	if err != nil || !out.Success {
		t.Fatalf("check-in failed: %+v, %v", out, err)
	}
	st := s.State()
	if st.CanCheckIn() || !st.Current.Registration.Attended || st.Current.Registration.Status != model.StatusBooked {
		t.Fatalf("unexpected state after check-in %+v", st.Current.Registration)
	}
	if out, _ := s.ConfirmCheckIn(ctx); out.Success {
		t.Fatalf("second confirm must be disabled")
	}
	if len(res.checkins) != 1 {
		t.Fatalf("expected one check-in call, got %d", len(res.checkins))
	}
}

func TestRun_CameraUnavailable(t *testing.T) {
	log := zerolog.Nop()
	s := New(OpenDir(filepath.Join(t.TempDir(), "missing")), &fakeResolver{}, &log)

	err := s.Run(context.Background())
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("expected ErrCameraUnavailable, got %v", err)
	}
	if s.State().CameraAvailable {
		t.Fatalf("camera must be reported unavailable")
	}
	if err := s.Submit(context.Background(), "abc123"); err != nil {
		t.Fatalf("manual entry must keep working: %v", err)
	}
}

func TestRun_CancelReleasesCamera(t *testing.T) {
	src := &frameSource{frames: []image.Image{qrFrame(t, "abc123")}}
	res := &fakeResolver{}
	s := newScanner(src, res)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for res.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("loop never resolved a frame")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if !src.isClosed() {
		t.Fatalf("camera must be closed when the loop stops")
	}
}

func TestDirSource_NewestFrame(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string, mod time.Time) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := imaging.Save(qrFrame(t, text), path); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	src, err := OpenDir(dir)(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if _, err := src.Frame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("empty dir must yield ErrNoFrame, got %v", err)
	}

	now := time.Now()
	write("a.png", "old", now.Add(-time.Minute))
	write("b.png", "new", now)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644)

	frame, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	text, err := pass.ReadImage(frame)
	if err != nil || text != "new" {
		t.Fatalf("expected newest frame, got %q, %v", text, err)
	}
}
