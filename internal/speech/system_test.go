package speech

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"
)

func TestWordsPerMinute(t *testing.T) {
	tests := []struct {
		rate int
		want int
	}{
		{0, 175},
		{MaxRate, 525},
		{MinRate, 58},
		{5, 303},
		{99, 525},
		{-99, 58},
	}
	for _, tt := range tests {
		if got := wordsPerMinute(tt.rate); got != tt.want {
			t.Errorf("wordsPerMinute(%d) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestSpeakCommands(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		backend systemBackend
		voice   Voice
		rate    int
		want    []string
	}{
		{
			name:    "espeak",
			backend: espeakBackend{bin: "espeak-ng"},
			voice:   Voice{ID: "en-gb"},
			want:    []string{"espeak-ng", "-s", "175", "-v", "en-gb", "--stdin"},
		},
		{
			name:    "espeak clamps speed",
			backend: espeakBackend{bin: "espeak-ng"},
			rate:    MaxRate,
			want:    []string{"espeak-ng", "-s", "450", "--stdin"},
		},
		{
			name:    "say",
			backend: sayBackend{bin: "say"},
			voice:   Voice{ID: "Alex"},
			rate:    MinRate,
			want:    []string{"say", "-r", "58", "-v", "Alex", "-f", "-"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.backend.speakCommand(ctx, "Hello.", tt.voice, tt.rate)
			if !equalStrings(cmd.Args, tt.want) {
				t.Errorf("args = %q, want %q", cmd.Args, tt.want)
			}
			if cmd.Stdin == nil {
				t.Error("text is not passed on stdin")
			}
		})
	}
}

func TestNewSystemBackendMissingProgram(t *testing.T) {
	_, err := newSystemBackend(Binaries{Say: "hark-no-such-program"}, "darwin")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestNewSystemEngineVoiceSelection(t *testing.T) {
	voices := []Voice{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	b := espeakBackend{bin: "espeak-ng"}

	if got := newSystemEngine(b, voices, 1, 0).Voice(); got.ID != "b" {
		t.Errorf("voice = %+v, want b", got)
	}
	if got := newSystemEngine(b, voices, 7, 0).Voice(); got.ID != "a" {
		t.Errorf("out of range voice = %+v, want a", got)
	}
	if got := newSystemEngine(b, nil, 0, 0).Voice(); got != PlaceholderVoice {
		t.Errorf("no voices = %+v, want placeholder", got)
	}
	if e := newSystemEngine(b, voices, 0, 50); e.rate != MaxRate {
		t.Errorf("rate = %d, want clamped to %d", e.rate, MaxRate)
	}
}

// commandBackend runs an arbitrary program in place of a speech program.
type commandBackend struct {
	speak []string
	list  []string
}

func (b commandBackend) name() string { return "command" }

func (b commandBackend) listCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, b.list[0], b.list[1:]...)
}

func (b commandBackend) parseVoices(out string) []Voice { return parseSAPIVoices(out) }

func (b commandBackend) speakCommand(ctx context.Context, _ string, _ Voice, _ int) *exec.Cmd {
	return exec.CommandContext(ctx, b.speak[0], b.speak[1:]...)
}

func requireProgram(t *testing.T, name string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a unix shell environment")
	}
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func TestListVoices(t *testing.T) {
	requireProgram(t, "echo")

	voices := listVoices(context.Background(), commandBackend{list: []string{"echo", "Narrator|en-US"}})
	if len(voices) != 1 || voices[0].Name != "Narrator" {
		t.Errorf("voices = %+v", voices)
	}

	voices = listVoices(context.Background(), commandBackend{list: []string{"hark-no-such-program"}})
	if len(voices) != 1 || voices[0] != PlaceholderVoice {
		t.Errorf("failed listing = %+v, want placeholder", voices)
	}
}

func TestSystemEngineSpeak(t *testing.T) {
	requireProgram(t, "true")
	requireProgram(t, "false")

	ok := newSystemEngine(commandBackend{speak: []string{"true"}}, nil, 0, 0)
	if err := ok.Speak(context.Background(), "Hi."); err != nil {
		t.Errorf("Speak: %v", err)
	}

	bad := newSystemEngine(commandBackend{speak: []string{"false"}}, nil, 0, 0)
	if err := bad.Speak(context.Background(), "Hi."); err == nil {
		t.Error("Speak succeeded for a failing program")
	}
}

func TestSystemEngineStop(t *testing.T) {
	requireProgram(t, "sleep")

	e := newSystemEngine(commandBackend{speak: []string{"sleep", "10"}}, nil, 0, 0)
	errc := make(chan error, 1)
	go func() { errc <- e.Speak(context.Background(), "Hi.") }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		e.mu.Lock()
		running := e.proc != nil
		e.mu.Unlock()
		if running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("process never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after Stop")
	}
}

func TestSystemEngineCancel(t *testing.T) {
	requireProgram(t, "sleep")

	e := newSystemEngine(commandBackend{speak: []string{"sleep", "10"}}, nil, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := e.Speak(ctx, "Hi."); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
