package speech

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

type fakeSynth struct {
	err error

	mu    sync.Mutex
	paths []string
}

func (s *fakeSynth) Synthesize(_ context.Context, text, path string) error {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(path, []byte("mp3:"+text), 0o644)
}

func (s *fakeSynth) lastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths[len(s.paths)-1]
}

type fakeDecoder struct{ err error }

func (d fakeDecoder) Decode(_ context.Context, path string) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	return os.ReadFile(path)
}

// fakePlayback reports playing for a fixed number of polls, and forever
// while paused.
type fakePlayback struct {
	mu        sync.Mutex
	remaining int
	paused    bool
	closed    bool
}

func (p *fakePlayback) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if p.paused {
		return true
	}
	if p.remaining > 0 {
		p.remaining--
		return true
	}
	return false
}

func (p *fakePlayback) Pause()  { p.mu.Lock(); p.paused = true; p.mu.Unlock() }
func (p *fakePlayback) Resume() { p.mu.Lock(); p.paused = false; p.mu.Unlock() }

func (p *fakePlayback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePlayback) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

type fakeOutput struct {
	polls int

	mu     sync.Mutex
	played []*fakePlayback
	pcm    [][]byte
}

func (o *fakeOutput) Play(pcm []byte) (Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pb := &fakePlayback{remaining: o.polls}
	o.played = append(o.played, pb)
	o.pcm = append(o.pcm, pcm)
	return pb, nil
}

func (o *fakeOutput) current() *fakePlayback {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.played) == 0 {
		return nil
	}
	return o.played[len(o.played)-1]
}

func newTestCloudEngine(t *testing.T, synth *fakeSynth, dec fakeDecoder, out *fakeOutput) *CloudEngine {
	t.Helper()
	e, err := NewCloudEngine(CloudConfig{
		Synthesizer:  synth,
		Decoder:      dec,
		Output:       out,
		TempDir:      t.TempDir(),
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewCloudEngine: %v", err)
	}
	return e
}

func TestCloudEngineSpeakRemovesAudioFile(t *testing.T) {
	synth := &fakeSynth{}
	out := &fakeOutput{polls: 3}
	e := newTestCloudEngine(t, synth, fakeDecoder{}, out)

	if err := e.Speak(context.Background(), "Hello."); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if string(out.pcm[0]) != "mp3:Hello." {
		t.Errorf("played %q", out.pcm[0])
	}
	if _, err := os.Stat(synth.lastPath()); !os.IsNotExist(err) {
		t.Errorf("audio file still exists: %v", err)
	}
	if !out.current().closed {
		t.Error("playback not closed")
	}
}

func TestCloudEngineErrors(t *testing.T) {
	errSynth := errors.New("service refused")
	errDecode := errors.New("bad mp3")

	tests := []struct {
		name  string
		synth *fakeSynth
		dec   fakeDecoder
		want  error
	}{
		{name: "synthesis", synth: &fakeSynth{err: errSynth}, want: errSynth},
		{name: "decode", synth: &fakeSynth{}, dec: fakeDecoder{err: errDecode}, want: errDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &fakeOutput{}
			e := newTestCloudEngine(t, tt.synth, tt.dec, out)

			err := e.Speak(context.Background(), "Hello.")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if _, err := os.Stat(tt.synth.lastPath()); !os.IsNotExist(err) {
				t.Errorf("audio file left behind after failure")
			}
			if out.current() != nil {
				t.Error("failed sentence was played")
			}
		})
	}
}

func TestCloudEnginePausedStartHoldsPlayback(t *testing.T) {
	out := &fakeOutput{polls: 2}
	e := newTestCloudEngine(t, &fakeSynth{}, fakeDecoder{}, out)
	e.Pause()

	errc := make(chan error, 1)
	go func() { errc <- e.Speak(context.Background(), "Later.") }()

	deadline := time.Now().Add(2 * time.Second)
	for out.current() == nil {
		if time.Now().After(deadline) {
			t.Fatal("playback never started")
		}
		time.Sleep(time.Millisecond)
	}
	if !out.current().isPaused() {
		t.Fatal("clip started while the engine was paused")
	}

	select {
	case err := <-errc:
		t.Fatalf("Speak returned while paused: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	e.Resume()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Speak: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not finish after resume")
	}
}

func TestCloudEngineCancel(t *testing.T) {
	out := &fakeOutput{polls: 1 << 30}
	e := newTestCloudEngine(t, &fakeSynth{}, fakeDecoder{}, out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Speak(ctx, "Forever."); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if !out.current().closed {
		t.Error("playback not closed after cancel")
	}
}

func TestCloudEngineRateLimited(t *testing.T) {
	limiter := NewRequestLimiter(1)
	// Drain the burst so the next request has to wait.
	for limiter.Allow() {
	}

	e, err := NewCloudEngine(CloudConfig{
		Synthesizer: &fakeSynth{},
		Decoder:     fakeDecoder{},
		Output:      &fakeOutput{},
		Limiter:     limiter,
		TempDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Speak(ctx, "Hi."); err == nil {
		t.Error("Speak ignored the rate limit")
	}
}

func TestNewCloudEngineRequiresParts(t *testing.T) {
	if _, err := NewCloudEngine(CloudConfig{}); err == nil {
		t.Error("NewCloudEngine accepted an empty config")
	}
}
