package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/petems/siren-tray/internal/audio"
	"github.com/rs/zerolog"
)

// fakeCapture hands out fakeStreams and records how many are open at once
type fakeCapture struct {
	mu        sync.Mutex
	open      int
	maxOpen   int
	opened    int
	openErr   error
	startErr  error
	samples   []int16
	streams   []*fakeStream
	closeTime []time.Time
	openTime  []time.Time
	devices   []string
}

func (c *fakeCapture) Open(deviceID string, sampleRate, channels int) (audio.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.devices = append(c.devices, deviceID)

	if c.openErr != nil {
		return nil, c.openErr
	}
	c.open++
	c.opened++
	if c.open > c.maxOpen {
		c.maxOpen = c.open
	}
	c.openTime = append(c.openTime, time.Now())
	s := &fakeStream{capture: c, startErr: c.startErr, samples: c.samples}
	c.streams = append(c.streams, s)
	return s, nil
}

func (c *fakeCapture) ListDevices() ([]audio.AudioDevice, error) {
	return []audio.AudioDevice{{ID: "default", Name: "Default", Default: true}}, nil
}

func (c *fakeCapture) Close() error { return nil }

func (c *fakeCapture) stats() (open, maxOpen, opened int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open, c.maxOpen, c.opened
}

type fakeStream struct {
	capture  *fakeCapture
	startErr error
	samples  []int16
	started  bool
	closed   bool
}

func (s *fakeStream) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeStream) Stop() ([]int16, error) {
	if !s.started {
		return nil, errors.New("not recording")
	}
	s.started = false
	return s.samples, nil
}

func (s *fakeStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.capture.mu.Lock()
	s.capture.open--
	s.capture.closeTime = append(s.capture.closeTime, time.Now())
	s.capture.mu.Unlock()
	return nil
}

func testConfig(t *testing.T) Config {
	return Config{
		SampleRate:   8000,
		Channels:     1,
		ReleaseGrace: 20 * time.Millisecond,
		ClipDir:      t.TempDir(),
		Permitted:    true,
	}
}

func TestStopWithoutSessionIsNoop(t *testing.T) {
	rec := New(&fakeCapture{}, testConfig(t), zerolog.Nop())

	clip, err := rec.Stop()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if clip != nil {
		t.Fatalf("expected no clip, got %+v", clip)
	}

	// Twice in a row is still fine
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("second Stop returned %v", err)
	}
}

func TestStartStopProducesWAVClip(t *testing.T) {
	samples := make([]int16, 8000) // one second at 8 kHz
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	capture := &fakeCapture{samples: samples}
	rec := New(capture, testConfig(t), zerolog.Nop())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !rec.Active() {
		t.Fatal("expected an active session after Start")
	}

	clip, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if clip == nil {
		t.Fatal("expected a clip")
	}
	defer clip.Remove()

	if rec.Active() {
		t.Error("expected no active session after Stop")
	}
	if open, _, _ := capture.stats(); open != 0 {
		t.Errorf("expected handle released after Stop, %d still open", open)
	}

	if clip.Format != "wav" {
		t.Errorf("expected wav format, got %q", clip.Format)
	}
	if clip.Duration != time.Second {
		t.Errorf("expected 1s clip, got %v", clip.Duration)
	}

	data, err := os.ReadFile(clip.Path)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if int64(len(data)) != clip.Size {
		t.Errorf("clip size %d does not match file size %d", clip.Size, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("clip is not a WAV file: % x", data[:12])
	}
	// 44-byte canonical header followed by 16-bit mono PCM
	if clip.Size != 44+int64(len(samples))*2 {
		t.Errorf("unexpected clip size %d", clip.Size)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 8000 {
		t.Errorf("expected 8000 Hz header, got %d", rate)
	}
}

func TestStartWhileActiveReleasesPreviousHandleFirst(t *testing.T) {
	capture := &fakeCapture{samples: []int16{1, 2, 3}}
	cfg := testConfig(t)
	rec := New(capture, cfg, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if err := rec.Start(context.Background()); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
	}

	open, maxOpen, opened := capture.stats()
	if opened != 3 {
		t.Fatalf("expected 3 handles acquired, got %d", opened)
	}
	if maxOpen != 1 {
		t.Errorf("expected at most one concurrently open handle, saw %d", maxOpen)
	}
	if open != 1 {
		t.Errorf("expected exactly one open handle, got %d", open)
	}

	rec.Close()

	// Each new handle is acquired only after the grace period following release
	capture.mu.Lock()
	defer capture.mu.Unlock()
	for i := 0; i+1 < len(capture.openTime); i++ {
		closed, next := capture.closeTime[i], capture.openTime[i+1]
		if next.Sub(closed) < cfg.ReleaseGrace {
			t.Errorf("handle %d acquired %v after release, want >= %v", i+1, next.Sub(closed), cfg.ReleaseGrace)
		}
	}
}

func TestStartWithoutPermission(t *testing.T) {
	capture := &fakeCapture{}
	cfg := testConfig(t)
	cfg.Permitted = false
	rec := New(capture, cfg, zerolog.Nop())

	err := rec.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, _, opened := capture.stats(); opened != 0 {
		t.Error("no handle should be acquired without permission")
	}
}

func TestStartDeviceBusy(t *testing.T) {
	tests := []struct {
		name    string
		capture *fakeCapture
	}{
		{"open fails", &fakeCapture{openErr: errors.New("device unavailable")}},
		{"start fails", &fakeCapture{startErr: errors.New("stream in use")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := New(tt.capture, testConfig(t), zerolog.Nop())

			err := rec.Start(context.Background())
			if !errors.Is(err, ErrDeviceBusy) {
				t.Fatalf("expected ErrDeviceBusy, got %v", err)
			}
			if rec.Active() {
				t.Error("failed Start must not leave a session behind")
			}
			if open, _, _ := tt.capture.stats(); open != 0 {
				t.Errorf("failed Start leaked %d handles", open)
			}
		})
	}
}

func TestStartGraceHonorsContext(t *testing.T) {
	capture := &fakeCapture{}
	cfg := testConfig(t)
	cfg.ReleaseGrace = time.Hour
	rec := New(capture, cfg, zerolog.Nop())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := rec.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if open, _, _ := capture.stats(); open != 0 {
		t.Errorf("previous handle should still be released, %d open", open)
	}
}

func TestCloseReleasesWithoutClip(t *testing.T) {
	capture := &fakeCapture{samples: []int16{1}}
	cfg := testConfig(t)
	rec := New(capture, cfg, zerolog.Nop())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	if open, _, _ := capture.stats(); open != 0 {
		t.Errorf("Close leaked %d handles", open)
	}
	entries, _ := os.ReadDir(cfg.ClipDir)
	if len(entries) != 0 {
		t.Errorf("Close should not write clips, found %d files", len(entries))
	}
}

func TestClipRemove(t *testing.T) {
	rec := New(&fakeCapture{samples: []int16{1, 2}}, testConfig(t), zerolog.Nop())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	clip, err := rec.Stop()
	if err != nil {
		t.Fatal(err)
	}

	if err := clip.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(clip.Path); !os.IsNotExist(err) {
		t.Error("clip file still present after Remove")
	}
	// Removing twice is not an error
	if err := clip.Remove(); err != nil {
		t.Errorf("second Remove returned %v", err)
	}
}

func TestSetDeviceAppliesToNextStart(t *testing.T) {
	capture := &fakeCapture{samples: []int16{1}}
	cfg := testConfig(t)
	cfg.DeviceID = "Built-in Microphone"
	rec := New(capture, cfg, zerolog.Nop())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.SetDevice("USB Microphone")
	clip, err := rec.Stop()
	if err != nil {
		t.Fatal(err)
	}
	clip.Remove()

	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	capture.mu.Lock()
	defer capture.mu.Unlock()
	want := []string{"Built-in Microphone", "USB Microphone"}
	if len(capture.devices) != 2 || capture.devices[0] != want[0] || capture.devices[1] != want[1] {
		t.Errorf("expected devices %v, got %v", want, capture.devices)
	}
}
