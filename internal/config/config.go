package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName        = "siren-tray"
	configName     = "config"
	configFileName = "config.json"
	envPrefix      = "SIREN_TRAY"
)

type Config struct {
	Endpoint     string          `json:"endpoint" mapstructure:"endpoint"`
	Hotkey       string          `json:"hotkey" mapstructure:"hotkey"`
	HotkeyDarwin string          `json:"hotkey_darwin" mapstructure:"hotkey_darwin"`
	LogLevel     string          `json:"log_level" mapstructure:"log_level"`
	Audio        AudioConfig     `json:"audio" mapstructure:"audio"`
	Listen       ListenConfig    `json:"listen" mapstructure:"listen"`
	Upload       UploadConfig    `json:"upload" mapstructure:"upload"`
	Clips        ClipsConfig     `json:"clips" mapstructure:"clips"`
	Notify       NotifyConfig    `json:"notify" mapstructure:"notify"`
	Clipboard    ClipboardConfig `json:"clipboard" mapstructure:"clipboard"`

	dir string
}

type AudioConfig struct {
	DeviceID   string `json:"device_id" mapstructure:"device_id"` // device name, "" for system default
	SampleRate int    `json:"sample_rate" mapstructure:"sample_rate"`
	Channels   int    `json:"channels" mapstructure:"channels"`
}

type ListenConfig struct {
	ClipMs         int `json:"clip_ms" mapstructure:"clip_ms"`
	UploadDelayMs  int `json:"upload_delay_ms" mapstructure:"upload_delay_ms"`
	ReleaseGraceMs int `json:"release_grace_ms" mapstructure:"release_grace_ms"`
}

type UploadConfig struct {
	FieldName      string `json:"field_name" mapstructure:"field_name"`
	FileName       string `json:"file_name" mapstructure:"file_name"`
	ContentType    string `json:"content_type" mapstructure:"content_type"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	EnableHTTP2    bool   `json:"enable_http2" mapstructure:"enable_http2"`
}

type ClipsConfig struct {
	Dir  string `json:"dir" mapstructure:"dir"` // "" for the OS temp dir
	Keep bool   `json:"keep" mapstructure:"keep"`
}

type NotifyConfig struct {
	Enabled        bool `json:"enabled" mapstructure:"enabled"`
	IncludeTraffic bool `json:"include_traffic" mapstructure:"include_traffic"`
}

type ClipboardConfig struct {
	CopyLabels bool `json:"copy_labels" mapstructure:"copy_labels"`
}

// defaults mirrors the values the classification server was built around:
// 3 s clips at 44.1 kHz posted as recording.wav.
var defaults = map[string]any{
	"endpoint":                "http://127.0.0.1:5001/predict",
	"hotkey":                  "Alt+Space",
	"hotkey_darwin":           "Ctrl+Space",
	"log_level":               "info",
	"audio.device_id":         "",
	"audio.sample_rate":       44100,
	"audio.channels":          1,
	"listen.clip_ms":          3000,
	"listen.upload_delay_ms":  300,
	"listen.release_grace_ms": 300,
	"upload.field_name":       "file",
	"upload.file_name":        "recording.wav",
	"upload.content_type":     "audio/x-wav",
	"upload.timeout_seconds":  30,
	"upload.enable_http2":     false,
	"clips.dir":               "",
	"clips.keep":              false,
	"notify.enabled":          true,
	"notify.include_traffic":  false,
	"clipboard.copy_labels":   false,
}

// Load reads the config from the platform config directory, applying
// defaults and SIREN_TRAY_* environment overrides.
func Load() (*Config, error) {
	return LoadFrom(Dir())
}

// LoadFrom reads config.json from dir. A missing file yields defaults.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.dir = dir

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir := c.dir
	if dir == "" {
		dir = Dir()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, configFileName), data, 0644)
}

// Validate reports the first setting that would make the listen loop unusable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", c.Endpoint)
	}

	switch {
	case c.Listen.ClipMs <= 0:
		return fmt.Errorf("listen.clip_ms must be positive, got %d", c.Listen.ClipMs)
	case c.Listen.UploadDelayMs < 0:
		return fmt.Errorf("listen.upload_delay_ms must not be negative, got %d", c.Listen.UploadDelayMs)
	case c.Listen.ReleaseGraceMs < 0:
		return fmt.Errorf("listen.release_grace_ms must not be negative, got %d", c.Listen.ReleaseGraceMs)
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	case c.Audio.Channels <= 0:
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	case c.Upload.FieldName == "":
		return errors.New("upload.field_name must not be empty")
	case c.Upload.TimeoutSeconds <= 0:
		return fmt.Errorf("upload.timeout_seconds must be positive, got %d", c.Upload.TimeoutSeconds)
	}

	return nil
}

func (c *Config) ClipDuration() time.Duration {
	return time.Duration(c.Listen.ClipMs) * time.Millisecond
}

func (c *Config) UploadDelay() time.Duration {
	return time.Duration(c.Listen.UploadDelayMs) * time.Millisecond
}

func (c *Config) ReleaseGrace() time.Duration {
	return time.Duration(c.Listen.ReleaseGraceMs) * time.Millisecond
}

func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutSeconds) * time.Second
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// Dir returns the platform-specific config directory
func Dir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName)
}
