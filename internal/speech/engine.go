// Package speech turns text into audible speech one sentence at a time.
//
// A Controller runs at most one Session at a time. A Session walks its
// sentences on a background goroutine and hands each to an Engine, which
// blocks until that sentence has been heard. Pause, Resume and Stop may be
// called from any goroutine.
package speech

import (
	"context"
	"errors"
)

var (
	// ErrEngineUnavailable is returned when an engine's programs are not installed.
	ErrEngineUnavailable = errors.New("speech engine unavailable")

	// ErrUnknownEngine is returned for an engine kind other than system or cloud.
	ErrUnknownEngine = errors.New("unknown speech engine")

	// ErrUnknownLanguage is returned for a language outside the supported set.
	ErrUnknownLanguage = errors.New("unknown language")
)

// Engine synthesizes and plays single sentences.
type Engine interface {
	// Speak plays text and returns once it has finished playing, failed,
	// or ctx was cancelled. A paused engine keeps Speak blocked.
	Speak(ctx context.Context, text string) error

	// Pause halts the sentence being played, if the engine can, and any
	// sentence started while paused.
	Pause() error

	// Resume continues after Pause.
	Resume() error

	// Stop silences the engine as soon as possible.
	Stop() error

	// Name identifies the engine in logs and the UI.
	Name() string
}

// Kind selects an engine variant.
type Kind string

const (
	KindSystem Kind = "system"
	KindCloud  Kind = "cloud"
)

// ParseKind validates an engine name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSystem, KindCloud:
		return Kind(s), nil
	}
	return "", ErrUnknownEngine
}

// Rate bounds for the system engine's signed speed offset.
const (
	MinRate = -10
	MaxRate = 10
)

// Params holds the user's engine choice. System engines use VoiceIndex and
// Rate; the cloud engine uses Language and Slow. Language also picks the
// sentence terminator for either engine.
type Params struct {
	Engine     Kind
	VoiceIndex int
	Rate       int
	Language   string
	Slow       bool
}

// DefaultParams reads with the first system voice at normal speed.
func DefaultParams() Params {
	return Params{
		Engine:   KindSystem,
		Language: "en",
	}
}
