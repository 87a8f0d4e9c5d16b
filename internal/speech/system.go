package speech

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	normalWordsPerMinute = 175
	listVoicesTimeout    = 5 * time.Second
)

// wordsPerMinute maps a rate offset in [MinRate, MaxRate] onto a speaking
// speed, from a third of normal speed to three times normal speed.
func wordsPerMinute(rate int) int {
	rate = clampRate(rate)
	return int(math.Round(normalWordsPerMinute * math.Pow(3, float64(rate)/MaxRate)))
}

func clampRate(rate int) int {
	return max(MinRate, min(MaxRate, rate))
}

// systemBackend is a platform speech program.
type systemBackend interface {
	name() string
	listCommand(ctx context.Context) *exec.Cmd
	parseVoices(out string) []Voice
	speakCommand(ctx context.Context, text string, v Voice, rate int) *exec.Cmd
}

// newSystemBackend picks the speech program for goos.
func newSystemBackend(bins Binaries, goos string) (systemBackend, error) {
	switch goos {
	case "darwin":
		bin, err := lookPath(bins.Say)
		if err != nil {
			return nil, err
		}
		return sayBackend{bin: bin}, nil
	case "windows":
		bin, err := lookPath(bins.PowerShell, "pwsh")
		if err != nil {
			return nil, err
		}
		return sapiBackend{bin: bin}, nil
	default:
		bin, err := lookPath(bins.Espeak, "espeak-ng", "espeak")
		if err != nil {
			return nil, err
		}
		return espeakBackend{bin: bin}, nil
	}
}

type espeakBackend struct{ bin string }

func (b espeakBackend) name() string { return "espeak" }

func (b espeakBackend) listCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, b.bin, "--voices")
}

func (b espeakBackend) parseVoices(out string) []Voice { return parseEspeakVoices(out) }

func (b espeakBackend) speakCommand(ctx context.Context, text string, v Voice, rate int) *exec.Cmd {
	wpm := max(80, min(450, wordsPerMinute(rate)))
	args := []string{"-s", strconv.Itoa(wpm)}
	if v.ID != "" {
		args = append(args, "-v", v.ID)
	}
	args = append(args, "--stdin")
	cmd := exec.CommandContext(ctx, b.bin, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd
}

type sayBackend struct{ bin string }

func (b sayBackend) name() string { return "say" }

func (b sayBackend) listCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, b.bin, "-v", "?")
}

func (b sayBackend) parseVoices(out string) []Voice { return parseSayVoices(out) }

func (b sayBackend) speakCommand(ctx context.Context, text string, v Voice, rate int) *exec.Cmd {
	args := []string{"-r", strconv.Itoa(wordsPerMinute(rate))}
	if v.ID != "" {
		args = append(args, "-v", v.ID)
	}
	args = append(args, "-f", "-")
	cmd := exec.CommandContext(ctx, b.bin, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd
}

// sapiBackend drives System.Speech through PowerShell. Its Rate property
// takes the same -10..10 offset directly.
type sapiBackend struct{ bin string }

const sapiListScript = `Add-Type -AssemblyName System.Speech; ` +
	`(New-Object System.Speech.Synthesis.SpeechSynthesizer).GetInstalledVoices() | ` +
	`ForEach-Object { $_.VoiceInfo.Name + '|' + $_.VoiceInfo.Culture.Name }`

func (b sapiBackend) name() string { return "sapi" }

func (b sapiBackend) listCommand(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, b.bin, "-NoProfile", "-NonInteractive", "-Command", sapiListScript)
}

func (b sapiBackend) parseVoices(out string) []Voice { return parseSAPIVoices(out) }

func (b sapiBackend) speakCommand(ctx context.Context, text string, v Voice, rate int) *exec.Cmd {
	var script strings.Builder
	script.WriteString(`Add-Type -AssemblyName System.Speech; $s = New-Object System.Speech.Synthesis.SpeechSynthesizer; `)
	if v.ID != "" {
		fmt.Fprintf(&script, `$s.SelectVoice('%s'); `, strings.ReplaceAll(v.ID, "'", "''"))
	}
	fmt.Fprintf(&script, `$s.Rate = %d; $s.Speak([Console]::In.ReadToEnd())`, clampRate(rate))

	cmd := exec.CommandContext(ctx, b.bin, "-NoProfile", "-NonInteractive", "-Command", script.String())
	cmd.Stdin = strings.NewReader(text)
	return cmd
}

// listVoices asks the backend for its voices. Any failure degrades to the
// placeholder voice.
func listVoices(ctx context.Context, b systemBackend) []Voice {
	ctx, cancel := context.WithTimeout(ctx, listVoicesTimeout)
	defer cancel()

	out, err := b.listCommand(ctx).Output()
	if err != nil {
		log.Warn("speech: could not list voices", "backend", b.name(), "err", err)
		return []Voice{PlaceholderVoice}
	}
	voices := b.parseVoices(string(out))
	if len(voices) == 0 {
		return []Voice{PlaceholderVoice}
	}
	return voices
}

// ListVoices returns the system voices for this platform, or just the
// placeholder voice when none can be found.
func ListVoices(ctx context.Context, bins Binaries) []Voice {
	b, err := newSystemBackend(bins, runtime.GOOS)
	if err != nil {
		log.Warn("speech: no system speech program", "err", err)
		return []Voice{PlaceholderVoice}
	}
	return listVoices(ctx, b)
}

// SystemEngine speaks through the operating system's speech program, one
// child process per sentence.
type SystemEngine struct {
	backend systemBackend
	voice   Voice
	rate    int

	mu     sync.Mutex
	proc   *os.Process
	paused bool
}

func newSystemEngine(b systemBackend, voices []Voice, voiceIndex, rate int) *SystemEngine {
	voice := PlaceholderVoice
	if voiceIndex >= 0 && voiceIndex < len(voices) {
		voice = voices[voiceIndex]
	} else if len(voices) > 0 {
		voice = voices[0]
	}
	return &SystemEngine{backend: b, voice: voice, rate: clampRate(rate)}
}

func (e *SystemEngine) Name() string {
	return "system/" + e.backend.name()
}

// Voice returns the voice the engine speaks with.
func (e *SystemEngine) Voice() Voice {
	return e.voice
}

// Speak runs the speech program for text and waits for it to exit.
func (e *SystemEngine) Speak(ctx context.Context, text string) error {
	cmd := e.backend.speakCommand(ctx, text, e.voice, e.rate)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.backend.name(), err)
	}

	e.mu.Lock()
	e.proc = cmd.Process
	if e.paused {
		if err := suspendProcess(cmd.Process); err != nil {
			log.Debug("speech: suspend", "err", err)
		}
	}
	e.mu.Unlock()

	err := cmd.Wait()

	e.mu.Lock()
	e.proc = nil
	e.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", e.backend.name(), err)
	}
	return nil
}

// Pause suspends the speaking process. Where that is unsupported the
// sentence plays out and the session holds before the next one.
func (e *SystemEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	if e.proc == nil {
		return nil
	}
	return suspendProcess(e.proc)
}

func (e *SystemEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	if e.proc == nil {
		return nil
	}
	return resumeProcess(e.proc)
}

// Stop kills the speaking process.
func (e *SystemEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	if e.proc == nil {
		return nil
	}
	return e.proc.Kill()
}
