package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petems/siren-tray/internal/classify"
	"github.com/petems/siren-tray/internal/recorder"
	"github.com/rs/zerolog"
)

// State is the listen loop's current phase
type State int

const (
	// Idle means not listening
	Idle State = iota
	// Recording means a clip is being captured
	Recording
	// Uploading means a clip is waiting on the classification server
	Uploading
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	case Uploading:
		return "Uploading"
	default:
		return "Unknown"
	}
}

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetUploading()
	SetResult(label string)
	SetError(message string)
}

// Recorder captures one clip at a time
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (*recorder.Clip, error)
	Close() error
}

// Uploader sends a clip for classification
type Uploader interface {
	Upload(ctx context.Context, clip *recorder.Clip) (*classify.Prediction, error)
}

// Notifier surfaces detections outside the tray
type Notifier interface {
	Detection(prediction, label string) error
	Failure(message string) error
}

// ClipboardWriter receives each display label
type ClipboardWriter interface {
	Copy(text string) error
}

type Config struct {
	Recorder      Recorder
	Uploader      Uploader
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater   // Optional - can be nil
	Notifier      Notifier        // Optional - can be nil
	Clipboard     ClipboardWriter // Optional - can be nil

	ClipDuration time.Duration
	UploadDelay  time.Duration
	KeepClips    bool
}

// run is one Start..Stop listening session
type run struct {
	stop chan struct{}
	once sync.Once
	done chan struct{}
}

func newRun() *run {
	return &run{stop: make(chan struct{}), done: make(chan struct{})}
}

func (r *run) halt() { r.once.Do(func() { close(r.stop) }) }

func (r *run) halted() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// App is the listen-loop controller: record, upload, label, repeat
type App struct {
	rec    Recorder
	up     Uploader
	log    zerolog.Logger
	status StatusUpdater
	notify Notifier
	clip   ClipboardWriter

	clipDuration time.Duration
	uploadDelay  time.Duration
	keepClips    bool

	mu      sync.Mutex
	cur     *run
	state   State
	last    string
	lastErr string
}

func New(cfg Config) *App {
	clipDuration := cfg.ClipDuration
	if clipDuration <= 0 {
		clipDuration = 3 * time.Second
	}

	return &App{
		rec:          cfg.Recorder,
		up:           cfg.Uploader,
		log:          cfg.Logger,
		status:       cfg.StatusUpdater,
		notify:       cfg.Notifier,
		clip:         cfg.Clipboard,
		clipDuration: clipDuration,
		uploadDelay:  cfg.UploadDelay,
		keepClips:    cfg.KeepClips,
	}
}

// SetStatusUpdater wires the UI after construction
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// Start begins continuous listening. It is a no-op while already listening.
// If a previous session is still finishing its last upload, the first new
// recording waits for it.
func (a *App) Start() {
	a.mu.Lock()
	if a.cur != nil && !a.cur.halted() {
		a.mu.Unlock()
		return
	}
	prev := a.cur
	r := newRun()
	a.cur = r
	a.lastErr = ""
	a.mu.Unlock()

	a.log.Info().Msg("Listening started")
	go a.loop(r, prev)
}

// Stop ends listening. The clip being recorded is cut short, finalized and
// uploaded; Stop returns once that cycle completes or ctx is done.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	r := a.cur
	a.mu.Unlock()

	if r == nil {
		return nil
	}
	if !r.halted() {
		a.log.Info().Msg("Stopping listening")
		r.halt()
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnHotkey toggles listening on key press
func (a *App) OnHotkey(pressed bool) {
	if !pressed {
		return
	}
	if a.IsListening() {
		go func() {
			if err := a.Stop(context.Background()); err != nil {
				a.log.Error().Err(err).Msg("Stop error")
			}
		}()
		return
	}
	a.Start()
}

func (a *App) loop(r, prev *run) {
	defer close(r.done)

	if prev != nil {
		<-prev.done
	}

	for !r.halted() {
		if err := a.cycle(r); err != nil {
			a.fail(r, err)
			return
		}
	}

	a.setState(Idle)
	a.log.Info().Msg("Listening stopped")
}

// cycle records one clip, uploads it and publishes the label
func (a *App) cycle(r *run) error {
	started := time.Now()

	a.setState(Recording)
	if err := a.rec.Start(context.Background()); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	timer := time.NewTimer(a.clipDuration)
	select {
	case <-timer.C:
	case <-r.stop:
		timer.Stop()
	}

	clip, err := a.rec.Stop()
	if err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	if clip == nil {
		return nil
	}
	if !a.keepClips {
		defer func() {
			if err := clip.Remove(); err != nil {
				a.log.Warn().Err(err).Str("path", clip.Path).Msg("Failed to remove clip")
			}
		}()
	}

	a.log.Debug().
		Str("path", clip.Path).
		Float64("size_kb", float64(clip.Size)/1024).
		Dur("duration", clip.Duration).
		Msg("Clip recorded")

	if a.uploadDelay > 0 {
		time.Sleep(a.uploadDelay)
	}

	a.setState(Uploading)
	pred, err := a.up.Upload(context.Background(), clip)
	if err != nil {
		return fmt.Errorf("upload clip: %w", err)
	}

	label := classify.Label(pred.Label)
	a.publish(pred.Label, label)

	a.log.Info().
		Str("prediction", pred.Label).
		Str("label", label).
		Dur("network", pred.RTT).
		Dur("cycle", time.Since(started)).
		Msg("Clip classified")
	return nil
}

func (a *App) publish(prediction, label string) {
	a.mu.Lock()
	a.last = label
	status := a.status
	a.mu.Unlock()

	if status != nil {
		status.SetResult(label)
	}
	if a.notify != nil {
		if err := a.notify.Detection(prediction, label); err != nil {
			a.log.Warn().Err(err).Msg("Notification failed")
		}
	}
	if a.clip != nil {
		if err := a.clip.Copy(label); err != nil {
			a.log.Warn().Err(err).Msg("Clipboard copy failed")
		}
	}
}

// fail halts the loop and shows the error in place of a result
func (a *App) fail(r *run, err error) {
	msg := errorMessage(err)

	a.mu.Lock()
	r.halt()
	a.state = Idle
	a.lastErr = msg
	status := a.status
	a.mu.Unlock()

	a.log.Error().Err(err).Msg("Listening stopped after failure")

	if status != nil {
		status.SetError(msg)
	}
	if a.notify != nil {
		if nerr := a.notify.Failure(msg); nerr != nil {
			a.log.Warn().Err(nerr).Msg("Notification failed")
		}
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, recorder.ErrPermissionDenied):
		return "❌ Microphone permission denied"
	case errors.Is(err, recorder.ErrDeviceBusy):
		return "❌ Microphone is busy"
	case errors.Is(err, classify.ErrNetwork):
		return "❌ Could not reach the classification server"
	case errors.Is(err, classify.ErrMalformedResponse):
		return "❌ Unexpected response from the classification server"
	default:
		return "❌ Listening stopped: " + err.Error()
	}
}

func (a *App) setState(s State) {
	a.mu.Lock()
	a.state = s
	status := a.status
	a.mu.Unlock()

	if status == nil {
		return
	}
	switch s {
	case Idle:
		status.SetIdle()
	case Recording:
		status.SetRecording()
	case Uploading:
		status.SetUploading()
	}
}

// Shutdown stops listening and releases the microphone
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Stop(ctx)
	if cerr := a.rec.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// IsListening reports whether cycles will keep being scheduled
func (a *App) IsListening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur != nil && !a.cur.halted()
}

func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LastResult returns the most recent display label, or "" before the first
func (a *App) LastResult() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// LastError returns the message of the failure that stopped listening
func (a *App) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}
