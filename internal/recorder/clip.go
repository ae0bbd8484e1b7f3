package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const clipFormat = "wav"

// Clip is a finished recording on disk, consumed once by the uploader
type Clip struct {
	Path       string
	Size       int64
	Format     string
	SampleRate int
	Duration   time.Duration
}

// Remove deletes the clip file
func (c *Clip) Remove() error {
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeClip encodes mono 16-bit samples as a WAV file under dir
func writeClip(dir string, samples []int16, sampleRate int) (*Clip, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create clip dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("clip_%s.%s", uuid.NewString(), clipFormat))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create clip: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("encode clip: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("finalize clip: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close clip: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat clip: %w", err)
	}

	return &Clip{
		Path:       path,
		Size:       info.Size(),
		Format:     clipFormat,
		SampleRate: sampleRate,
		Duration:   time.Duration(len(samples)) * time.Second / time.Duration(sampleRate),
	}, nil
}
