package speech

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeEngine records what it speaks. When gate is set, each Speak blocks
// until a value arrives on gate or ctx is cancelled.
type fakeEngine struct {
	gate chan struct{}
	fail map[string]bool

	mu      sync.Mutex
	spoken  []string
	started chan string
	stops   int
	pauses  int
	resumes int
}

func newFakeEngine(gated bool) *fakeEngine {
	e := &fakeEngine{started: make(chan string, 64), fail: map[string]bool{}}
	if gated {
		e.gate = make(chan struct{})
	}
	return e
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Speak(ctx context.Context, text string) error {
	e.mu.Lock()
	e.spoken = append(e.spoken, text)
	e.mu.Unlock()
	e.started <- text

	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if e.fail[text] {
		return errors.New("synthesis failed")
	}
	return nil
}

func (e *fakeEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
	return nil
}

func (e *fakeEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumes++
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
	return nil
}

func (e *fakeEngine) Spoken() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.spoken...)
}

// waitStarted waits for the engine to start speaking want.
func (e *fakeEngine) waitStarted(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-e.started:
		if got != want {
			t.Fatalf("started %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

// release lets the current gated Speak return.
func (e *fakeEngine) release(t *testing.T) {
	t.Helper()
	select {
	case e.gate <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out releasing sentence")
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
