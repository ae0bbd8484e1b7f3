package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

type portAudioCapture struct{}

// New initializes PortAudio and returns a Capture backed by it
func New() (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioCapture{}, nil
}

func (p *portAudioCapture) Open(deviceID string, sampleRate, channels int) (Stream, error) {
	device, err := findDevice(deviceID)
	if err != nil {
		return nil, err
	}

	if device.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("device %q has no input channels", device.Name)
	}
	if channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}

	s := &portAudioStream{
		channels: channels,
		samples:  make([]int16, 0, sampleRate*4),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultHighInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: 1024,
	}, s.callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	s.stream = stream
	return s, nil
}

func findDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", deviceID)
}

func (p *portAudioCapture) ListDevices() ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: defaultDevice != nil && d.Name == defaultDevice.Name,
			})
		}
	}

	return result, nil
}

func (p *portAudioCapture) Close() error {
	return portaudio.Terminate()
}

// ===== STREAM =====

type portAudioStream struct {
	stream   *portaudio.Stream
	channels int

	mu        sync.Mutex
	samples   []int16
	recording bool
	closed    bool
}

// callback is called by PortAudio on its own thread with interleaved frames
func (s *portAudioStream) callback(in []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return
	}
	frames := len(in) / s.channels
	s.samples = append(s.samples, downmixInterleaved(in, s.channels, frames)...)
}

func (s *portAudioStream) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("stream closed")
	}
	if s.recording {
		s.mu.Unlock()
		return errors.New("already recording")
	}
	s.samples = s.samples[:0]
	s.recording = true
	s.mu.Unlock()

	if err := s.stream.Start(); err != nil {
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	return nil
}

func (s *portAudioStream) Stop() ([]int16, error) {
	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return nil, errors.New("not recording")
	}
	s.recording = false
	s.mu.Unlock()

	// Stop waits for the callback to drain, so it must run unlocked
	if err := s.stream.Stop(); err != nil {
		return nil, fmt.Errorf("failed to stop audio stream: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int16, len(s.samples))
	copy(out, s.samples)
	return out, nil
}

func (s *portAudioStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	wasRecording := s.recording
	s.recording = false
	s.mu.Unlock()

	if wasRecording {
		s.stream.Abort()
	}
	return s.stream.Close()
}
