package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/petems/siren-tray/internal/app"
	"github.com/petems/siren-tray/internal/audio"
	"github.com/petems/siren-tray/internal/classify"
	"github.com/petems/siren-tray/internal/clipboard"
	"github.com/petems/siren-tray/internal/config"
	"github.com/petems/siren-tray/internal/hotkey"
	"github.com/petems/siren-tray/internal/logging"
	"github.com/petems/siren-tray/internal/notify"
	"github.com/petems/siren-tray/internal/permissions"
	"github.com/petems/siren-tray/internal/recorder"
	"github.com/petems/siren-tray/internal/tray"
	"github.com/rs/zerolog"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	headless := flag.Bool("headless", false, "listen without a tray icon until interrupted")
	configDir := flag.String("config", "", "config directory (default: platform config dir)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// Load config from XDG/Library/AppData
	dir := *configDir
	if dir == "" {
		dir = config.Dir()
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("Invalid config")
	}

	// Without microphone access the recorder refuses to start and the
	// failure is shown in place of a result.
	permitted := true
	if err := permissions.Microphone(); err != nil {
		log.Error().Err(err).Msg("Microphone permission not granted")
		permitted = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize audio capture
	capture, err := audio.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer capture.Close()

	rec := recorder.New(capture, recorder.Config{
		DeviceID:     cfg.Audio.DeviceID,
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
		ReleaseGrace: cfg.ReleaseGrace(),
		ClipDir:      cfg.Clips.Dir,
		Permitted:    permitted,
	}, log)

	client, err := classify.New(classify.Config{
		Endpoint:    cfg.Endpoint,
		FieldName:   cfg.Upload.FieldName,
		FileName:    cfg.Upload.FileName,
		ContentType: cfg.Upload.ContentType,
		Timeout:     cfg.UploadTimeout(),
		EnableHTTP2: cfg.Upload.EnableHTTP2,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize classification client")
	}

	appCfg := app.Config{
		Recorder:     rec,
		Uploader:     client,
		Logger:       log,
		ClipDuration: cfg.ClipDuration(),
		UploadDelay:  cfg.UploadDelay(),
		KeepClips:    cfg.Clips.Keep,
	}
	if cfg.Notify.Enabled {
		appCfg.Notifier = notify.New(cfg.Notify.IncludeTraffic)
	}
	clip := clipboard.New()
	if cfg.Clipboard.CopyLabels {
		appCfg.Clipboard = clip
	}

	log.Info().
		Str("version", Version).
		Str("endpoint", cfg.Endpoint).
		Bool("headless", *headless).
		Msg("SirenTray starting...")

	if *headless {
		if code := runHeadless(ctx, appCfg, log); code != 0 {
			capture.Close()
			os.Exit(code)
		}
		return
	}

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(tray.Config{
		Devices:   capture,
		Clipboard: clip,
		Settings:  cfg,
		OnDevice:  rec.SetDevice,
		Hotkey:    cfg.PlatformHotkey(),
		Version:   Version,
		Commit:    Commit,
		Logger:    log,
	})

	// Create app with tray as status updater
	appCfg.StatusUpdater = trayUI
	application := app.New(appCfg)

	// Set controller reference in tray
	trayUI.SetController(application)

	// Hotkeys are optional, the menu item does the same thing
	if hkManager, err := registerHotkey(cfg.PlatformHotkey(), application.OnHotkey, log); err == nil {
		defer hkManager.Close()
	}

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Tray error")
	}

	shutdown(application, log)
}

func registerHotkey(accel string, callback func(bool), log zerolog.Logger) (hotkey.Manager, error) {
	if err := permissions.Accessibility(); err != nil {
		log.Warn().Err(err).Msg("Hotkey disabled; grant Accessibility access in System Settings → Privacy & Security")
		return nil, err
	}

	hkManager, err := hotkey.New()
	if err != nil {
		if errors.Is(err, hotkey.ErrUnsupported) {
			log.Info().Msg("Global hotkey not available on this platform")
		} else {
			log.Warn().Err(err).Msg("Failed to initialize hotkeys")
		}
		return nil, err
	}

	if err := hkManager.Register(accel, callback); err != nil {
		log.Warn().Err(err).Str("hotkey", accel).Msg("Failed to register hotkey")
		hkManager.Close()
		return nil, err
	}

	log.Info().Str("hotkey", accel).Msg("Hotkey registered")
	return hkManager, nil
}

// runHeadless listens until SIGINT/SIGTERM or until the loop stops on a failure
func runHeadless(ctx context.Context, appCfg app.Config, log zerolog.Logger) int {
	status := &headlessStatus{failed: make(chan string, 1)}
	appCfg.StatusUpdater = status
	application := app.New(appCfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	application.Start()

	exitCode := 0
	select {
	case <-sigChan:
		log.Info().Msg("Shutting down...")
	case msg := <-status.failed:
		log.Error().Str("reason", msg).Msg("Listening stopped")
		exitCode = 1
	case <-ctx.Done():
	}

	shutdown(application, log)
	return exitCode
}

func shutdown(application *app.App, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// headlessStatus prints each label and reports the failure that ends listening
type headlessStatus struct {
	failed chan string
}

func (h *headlessStatus) SetIdle()      {}
func (h *headlessStatus) SetRecording() {}
func (h *headlessStatus) SetUploading() {}

func (h *headlessStatus) SetResult(label string) {
	os.Stdout.WriteString(label + "\n")
}

func (h *headlessStatus) SetError(message string) {
	select {
	case h.failed <- message:
	default:
	}
}
