package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Config describes the PCM format the device accepts.
type Config struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BufferSize time.Duration
}

// DefaultConfig returns signed 16-bit mono at 44.1 kHz, the format the
// cloud engine asks ffmpeg to produce.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 100 * time.Millisecond,
	}
}

func validateConfig(cfg Config) error {
	if cfg.SampleRate != 44100 && cfg.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", cfg.Channels)
	}
	if cfg.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

// Device owns the process-wide oto context.
type Device struct {
	ctx *oto.Context
	cfg Config
}

// NewDevice opens the audio device and waits until it is ready.
func NewDevice(cfg Config) (*Device, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Device{ctx: ctx, cfg: cfg}, nil
}

// Config returns the format the device was opened with.
func (d *Device) Config() Config {
	return d.cfg
}

// Play starts playing pcm (signed 16-bit little endian, in the device's
// format) and returns a handle to control it.
func (d *Device) Play(pcm []byte) (*Stream, error) {
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}
	s := &Stream{data: pcm}
	s.player = d.ctx.NewPlayer(bytes.NewReader(s.data))
	s.player.Play()
	return s, nil
}

// Stream is a single playback on the device.
type Stream struct {
	// data is referenced for as long as the player reads from it.
	data []byte

	mu     sync.Mutex
	player *oto.Player
	paused bool
	closed bool
}

// Playing reports whether the stream still has audio to produce. A paused
// stream counts as playing.
func (s *Stream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.paused || s.player.IsPlaying()
}

// Pause halts playback at the current position.
func (s *Stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.paused {
		return
	}
	s.player.Pause()
	s.paused = true
}

// Resume continues a paused stream.
func (s *Stream) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.paused {
		return
	}
	s.player.Play()
	s.paused = false
}

// Close silences the stream and releases the player.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.player.Pause()
	return s.player.Close()
}
