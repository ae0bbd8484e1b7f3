package audio

// Capture opens capture handles on input devices
type Capture interface {
	Open(deviceID string, sampleRate, channels int) (Stream, error)
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// Stream is a single hardware capture handle.
// Stop returns the mono PCM recorded since Start; Close releases the
// handle and is safe to call more than once.
type Stream interface {
	Start() error
	Stop() ([]int16, error)
	Close() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}

// downmixInterleaved averages interleaved frames into a new mono slice
func downmixInterleaved(in []int16, channels, frames int) []int16 {
	out := make([]int16, frames)
	if channels <= 1 {
		copy(out, in)
		return out
	}

	for f := 0; f < frames; f++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(in[f*channels+c])
		}
		out[f] = int16(sum / channels)
	}
	return out
}
