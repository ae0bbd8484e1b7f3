package tray

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/petems/siren-tray/internal/audio"
	"github.com/petems/siren-tray/internal/config"
	"github.com/petems/siren-tray/internal/logging"
	"github.com/rs/zerolog"
)

// Controller is the listen loop the menu drives
type Controller interface {
	Start()
	Stop(ctx context.Context) error
	LastResult() string
}

// DeviceLister enumerates microphones for the device submenu
type DeviceLister interface {
	ListDevices() ([]audio.AudioDevice, error)
}

// ClipboardWriter backs the "Copy last result" item
type ClipboardWriter interface {
	Copy(text string) error
}

type Config struct {
	Controller Controller
	Devices    DeviceLister    // Optional - can be nil
	Clipboard  ClipboardWriter // Optional - can be nil
	Settings   *config.Config
	OnDevice   func(deviceID string) // Optional - called after a device is picked
	Hotkey     string
	Version    string
	Commit     string
	Logger     zerolog.Logger
}

type UI struct {
	ctrl     Controller
	devices  DeviceLister
	clip     ClipboardWriter
	cfg      *config.Config
	onDevice func(string)
	version  string
	commit   string
	log      zerolog.Logger

	mu   sync.Mutex
	view view

	// Menu items, nil until onReady
	mToggle  *systray.MenuItem
	mStatus  *systray.MenuItem
	mResult  *systray.MenuItem
	mCopy    *systray.MenuItem
	mDevices *systray.MenuItem
}

func New(cfg Config) *UI {
	return &UI{
		ctrl:     cfg.Controller,
		devices:  cfg.Devices,
		clip:     cfg.Clipboard,
		cfg:      cfg.Settings,
		onDevice: cfg.OnDevice,
		version:  cfg.Version,
		commit:   cfg.Commit,
		log:      cfg.Logger,
		view:     view{hotkey: cfg.Hotkey},
	}
}

// SetController sets the controller (for circular dependency resolution)
func (u *UI) SetController(c Controller) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ctrl = c
}

// Status update methods for the app to call

func (u *UI) SetIdle() {
	u.update(func(v *view) {
		v.phase = phaseIdle
		v.stopping = false
	})
}

func (u *UI) SetRecording() {
	u.update(func(v *view) {
		v.phase = phaseRecording
		v.err = ""
	})
}

func (u *UI) SetUploading() {
	u.update(func(v *view) { v.phase = phaseUploading })
}

func (u *UI) SetResult(label string) {
	u.update(func(v *view) {
		v.result = label
		v.err = ""
	})
}

func (u *UI) SetError(message string) {
	u.update(func(v *view) {
		v.phase = phaseIdle
		v.stopping = false
		v.err = message
	})
}

func (u *UI) update(fn func(v *view)) {
	u.mu.Lock()
	fn(&u.view)
	d := render(u.view)
	ready := u.mToggle != nil
	u.mu.Unlock()

	if ready {
		u.apply(d)
	}
}

func (u *UI) apply(d display) {
	systray.SetTitle(d.Title)
	systray.SetTooltip(d.Tooltip)
	u.mStatus.SetTitle(d.Status)
	u.mResult.SetTitle(d.Result)
	u.mToggle.SetTitle(d.Toggle)
	if d.ToggleEnabled {
		u.mToggle.Enable()
	} else {
		u.mToggle.Disable()
	}
}

// Run blocks on the systray event loop until Quit is clicked or ctx is done
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.mu.Lock()
	u.mToggle = systray.AddMenuItem("Start listening", "Record and classify 3 second clips")
	u.mStatus = systray.AddMenuItem("Ready", "Current activity")
	u.mStatus.Disable()
	u.mResult = systray.AddMenuItem("No detections yet", "Latest classification")
	u.mResult.Disable()
	systray.AddSeparator()

	u.mCopy = systray.AddMenuItem("Copy last result", "Copy the latest label to the clipboard")
	if u.clip == nil {
		u.mCopy.Hide()
	}
	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	d := render(u.view)
	u.mu.Unlock()

	u.apply(d)
	u.buildDeviceMenu()

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About Siren Tray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mToggle.ClickedCh:
			u.toggle()
		case <-u.mCopy.ClickedCh:
			u.copyLast()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// toggle is the single Start/Stop action
func (u *UI) toggle() {
	u.mu.Lock()
	listening := u.view.listening()
	ctrl := u.ctrl
	u.mu.Unlock()

	if !listening {
		ctrl.Start()
		return
	}

	u.update(func(v *view) { v.stopping = true })
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := ctrl.Stop(ctx); err != nil {
			u.log.Error().Err(err).Msg("Stop error")
		}
	}()
}

func (u *UI) copyLast() {
	u.mu.Lock()
	ctrl := u.ctrl
	u.mu.Unlock()

	label := ctrl.LastResult()
	if label == "" || u.clip == nil {
		return
	}
	if err := u.clip.Copy(label); err != nil {
		u.log.Warn().Err(err).Msg("Clipboard copy failed")
		return
	}
	u.log.Info().Str("label", label).Msg("Copied last result")
}

func (u *UI) buildDeviceMenu() {
	if u.devices == nil {
		u.mDevices.Hide()
		return
	}

	devices, err := u.devices.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, "")
		if dev.ID == u.cfg.Audio.DeviceID || (u.cfg.Audio.DeviceID == "" && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.cfg.Audio.DeviceID = deviceID
				if err := u.cfg.Save(); err != nil {
					u.log.Error().Err(err).Msg("Failed to save config")
				}
				u.log.Info().Str("device", deviceName).Msg("Changed audio device")
				if u.onDevice != nil {
					u.onDevice(deviceID)
				}
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) openLogs() {
	path := logging.LogPath()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
		return
	}
	go cmd.Wait()
}

func (u *UI) showAbout() {
	u.log.Info().
		Str("version", u.version).
		Str("commit", u.commit).
		Str("endpoint", u.cfg.Endpoint).
		Msgf("Siren Tray %s: emergency sound detection", u.version)
}

func (u *UI) onExit() {
	u.log.Debug().Msg("Tray exited")
}
