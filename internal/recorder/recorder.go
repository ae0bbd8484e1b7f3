package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petems/siren-tray/internal/audio"
	"github.com/rs/zerolog"
)

var (
	// ErrPermissionDenied means microphone access was not granted at startup
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceBusy means a capture handle could not be acquired
	ErrDeviceBusy = errors.New("capture device busy")
)

// Config configures a Recorder
type Config struct {
	DeviceID     string
	SampleRate   int
	Channels     int
	ReleaseGrace time.Duration // wait after releasing a previous handle
	ClipDir      string        // "" for the OS temp dir
	Permitted    bool          // microphone permission granted at init
}

type session struct {
	stream  audio.Stream
	started time.Time
}

// Recorder owns at most one active capture session
type Recorder struct {
	capture audio.Capture
	cfg     Config
	log     zerolog.Logger

	mu      sync.Mutex
	current *session
}

func New(capture audio.Capture, cfg Config, log zerolog.Logger) *Recorder {
	return &Recorder{
		capture: capture,
		cfg:     cfg,
		log:     log,
	}
}

// Start begins a new capture session. A session that is still active is
// stopped and released first, followed by the release grace period.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.cfg.Permitted {
		return ErrPermissionDenied
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.log.Warn().Msg("Releasing previous recording before starting a new one")
		r.releaseLocked()

		if r.cfg.ReleaseGrace > 0 {
			timer := time.NewTimer(r.cfg.ReleaseGrace)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	stream, err := r.capture.Open(r.cfg.DeviceID, r.cfg.SampleRate, r.cfg.Channels)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceBusy, err)
	}
	if err := stream.Start(); err != nil {
		if cerr := stream.Close(); cerr != nil {
			r.log.Warn().Err(cerr).Msg("Failed to release capture handle")
		}
		return fmt.Errorf("%w: %v", ErrDeviceBusy, err)
	}

	r.current = &session{stream: stream, started: time.Now()}
	r.log.Debug().Msg("Recording started")
	return nil
}

// Stop finalizes the active session and writes it out as a clip.
// It returns nil, nil when nothing is recording.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return nil, nil
	}

	s := r.current
	r.current = nil
	defer func() {
		if err := s.stream.Close(); err != nil {
			r.log.Warn().Err(err).Msg("Failed to release capture handle")
		}
	}()

	samples, err := s.stream.Stop()
	if err != nil {
		return nil, fmt.Errorf("stop recording: %w", err)
	}

	clip, err := writeClip(r.cfg.ClipDir, samples, r.cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("path", clip.Path).
		Dur("recorded", time.Since(s.started)).
		Msg("Recording saved")
	return clip, nil
}

// SetDevice selects the input device used from the next Start on
func (r *Recorder) SetDevice(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.DeviceID = deviceID
}

// Active reports whether a capture session is open
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Close releases any active session without producing a clip
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
	return nil
}

func (r *Recorder) releaseLocked() {
	if r.current == nil {
		return
	}
	s := r.current
	r.current = nil

	if _, err := s.stream.Stop(); err != nil {
		r.log.Debug().Err(err).Msg("Stop during release")
	}
	if err := s.stream.Close(); err != nil {
		r.log.Warn().Err(err).Msg("Failed to release capture handle")
	}
}
