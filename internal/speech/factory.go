package speech

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/metcalfc/hark/internal/audio"
	"golang.org/x/time/rate"
)

// Factory builds an engine for each session. It owns the resources that
// outlive a session: the audio device, the voice list and the request
// limiter.
type Factory struct {
	bins    Binaries
	limiter *rate.Limiter

	// openDevice opens the audio device on first cloud use.
	openDevice func() (*audio.Device, error)

	mu         sync.Mutex
	device     *audio.Device
	deviceErr  error
	deviceDone bool
	backend    systemBackend
	voices     []Voice
}

// NewFactory creates a Factory that runs the given programs.
func NewFactory(bins Binaries) *Factory {
	return &Factory{
		bins:    bins,
		limiter: NewRequestLimiter(0),
		openDevice: func() (*audio.Device, error) {
			return audio.NewDevice(audio.DefaultConfig())
		},
	}
}

// New returns a fresh engine configured from p.
func (f *Factory) New(p Params) (Engine, error) {
	switch p.Engine {
	case KindSystem:
		b, voices, err := f.system(context.Background())
		if err != nil {
			return nil, err
		}
		return newSystemEngine(b, voices, p.VoiceIndex, p.Rate), nil
	case KindCloud:
		return f.cloud(p)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, p.Engine)
}

// Voices lists the system voices, falling back to the placeholder voice.
func (f *Factory) Voices(ctx context.Context) []Voice {
	if _, voices, err := f.system(ctx); err == nil {
		return voices
	}
	return []Voice{PlaceholderVoice}
}

func (f *Factory) system(ctx context.Context) (systemBackend, []Voice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.backend == nil {
		b, err := newSystemBackend(f.bins, runtime.GOOS)
		if err != nil {
			return nil, nil, err
		}
		f.backend = b
		f.voices = listVoices(ctx, b)
	}
	return f.backend, f.voices, nil
}

func (f *Factory) cloud(p Params) (Engine, error) {
	lang, err := LookupLanguage(p.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, p.Language)
	}
	gtts, err := lookPath(f.bins.GTTS)
	if err != nil {
		return nil, err
	}
	ffmpeg, err := lookPath(f.bins.FFmpeg)
	if err != nil {
		return nil, err
	}
	dev, err := f.audioDevice()
	if err != nil {
		return nil, err
	}

	cfg := dev.Config()
	return NewCloudEngine(CloudConfig{
		Synthesizer: GTTS{Binary: gtts, Language: lang.Code, Slow: p.Slow},
		Decoder:     FFmpeg{Binary: ffmpeg, SampleRate: cfg.SampleRate, Channels: cfg.Channels},
		Output:      DeviceOutput{Device: dev},
		Limiter:     f.limiter,
	})
}

func (f *Factory) audioDevice() (*audio.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.deviceDone {
		f.device, f.deviceErr = f.openDevice()
		f.deviceDone = true
	}
	if f.deviceErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, f.deviceErr)
	}
	return f.device, nil
}
