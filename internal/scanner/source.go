package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

var (
	// ErrCameraUnavailable is a normal state: the door desk falls back to
	// manual entry.
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrNoFrame           = errors.New("no frame available")
)

// Source yields camera frames. Close releases the device.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

type Opener func(ctx context.Context) (Source, error)

// DirSource reads the newest image a capture tool has written into a
// directory. It stands in for a webcam on the door laptop.
type DirSource struct {
	dir     string
	lastMod time.Time
	last    image.Image
}

func OpenDir(dir string) Opener {
	return func(context.Context) (Source, error) {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrCameraUnavailable, dir)
		}
		return &DirSource{dir: dir}, nil
	}
}

func (d *DirSource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !isFrame(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newest, newestMod = e.Name(), info.ModTime()
		}
	}
	if newest == "" {
		return nil, ErrNoFrame
	}
	if d.last != nil && newestMod.Equal(d.lastMod) {
		return d.last, nil
	}

	img, err := imaging.Open(filepath.Join(d.dir, newest))
	if err != nil {
		// the capture tool may still be writing the file
		return nil, ErrNoFrame
	}
	d.last, d.lastMod = img, newestMod
	return img, nil
}

func (d *DirSource) Close() error {
	d.last = nil
	return nil
}

func isFrame(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
