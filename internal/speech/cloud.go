package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/metcalfc/hark/internal/audio"
	"golang.org/x/time/rate"
)

const (
	// DefaultPollInterval is how often the cloud engine checks whether the
	// audio player is still playing.
	DefaultPollInterval = 100 * time.Millisecond

	synthesisTimeout = 30 * time.Second
	decodeTimeout    = 30 * time.Second
)

// Synthesizer writes spoken text as an audio file at path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) error
}

// Decoder turns an audio file into PCM for the output.
type Decoder interface {
	Decode(ctx context.Context, path string) ([]byte, error)
}

// Output starts playing PCM.
type Output interface {
	Play(pcm []byte) (Playback, error)
}

// Playback controls one playing clip.
type Playback interface {
	Playing() bool
	Pause()
	Resume()
	Close() error
}

// NewRequestLimiter paces requests to the synthesis service so it does not
// start refusing them.
func NewRequestLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = 100
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 3)
}

// CloudConfig wires the cloud engine's collaborators.
type CloudConfig struct {
	Synthesizer  Synthesizer
	Decoder      Decoder
	Output       Output
	Limiter      *rate.Limiter // optional
	TempDir      string        // defaults to os.TempDir()
	PollInterval time.Duration // defaults to DefaultPollInterval
}

// CloudEngine synthesizes each sentence to a transient audio file, plays
// it, and removes the file afterwards.
type CloudEngine struct {
	cfg CloudConfig

	mu       sync.Mutex
	playback Playback
	paused   bool
}

// NewCloudEngine creates a cloud engine from cfg.
func NewCloudEngine(cfg CloudConfig) (*CloudEngine, error) {
	if cfg.Synthesizer == nil || cfg.Decoder == nil || cfg.Output == nil {
		return nil, errors.New("cloud engine needs a synthesizer, decoder and output")
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &CloudEngine{cfg: cfg}, nil
}

func (e *CloudEngine) Name() string { return "cloud" }

// Speak synthesizes text, plays it, and blocks until playback ends.
func (e *CloudEngine) Speak(ctx context.Context, text string) error {
	if e.cfg.Limiter != nil {
		if err := e.cfg.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait cancelled: %w", err)
		}
	}

	f, err := os.CreateTemp(e.cfg.TempDir, "hark-*.mp3")
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := e.cfg.Synthesizer.Synthesize(ctx, text, path); err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}
	pcm, err := e.cfg.Decoder.Decode(ctx, path)
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	pb, err := e.cfg.Output.Play(pcm)
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	e.mu.Lock()
	e.playback = pb
	if e.paused {
		pb.Pause()
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.playback = nil
		e.mu.Unlock()
		_ = pb.Close()
	}()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for pb.Playing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Pause pauses the playing clip. A clip that is still being synthesized
// starts paused.
func (e *CloudEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	if e.playback != nil {
		e.playback.Pause()
	}
	return nil
}

func (e *CloudEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	if e.playback != nil {
		e.playback.Resume()
	}
	return nil
}

// Stop silences the playing clip.
func (e *CloudEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	if e.playback != nil {
		return e.playback.Close()
	}
	return nil
}

// GTTS synthesizes speech with Google Translate's TTS through gtts-cli.
type GTTS struct {
	Binary   string
	Language string
	Slow     bool
}

func (g GTTS) Synthesize(ctx context.Context, text, path string) error {
	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	args := []string{"-", "-l", g.Language}
	if g.Slow {
		args = append(args, "--slow")
	}
	args = append(args, "-o", path)

	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("gtts-cli: %w", ctx.Err())
		}
		return fmt.Errorf("gtts-cli failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// FFmpeg decodes audio files to signed 16-bit little endian PCM.
type FFmpeg struct {
	Binary     string
	SampleRate int
	Channels   int
}

func (d FFmpeg) Decode(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, decodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.Binary,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(d.Channels),
		"-ar", strconv.Itoa(d.SampleRate),
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no audio")
	}
	log.Debug("speech: decoded clip", "bytes", stdout.Len())
	return stdout.Bytes(), nil
}

// DeviceOutput plays through an audio.Device.
type DeviceOutput struct {
	Device *audio.Device
}

func (o DeviceOutput) Play(pcm []byte) (Playback, error) {
	s, err := o.Device.Play(pcm)
	if err != nil {
		return nil, err
	}
	return s, nil
}
