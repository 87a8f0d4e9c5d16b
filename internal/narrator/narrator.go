// Package narrator ties a book's chapter cursor to the speech controller.
//
// A Narrator is idle, reading or paused. While reading, a chapter that
// finishes on its own moves the cursor to the next chapter and keeps
// reading. A pause holds the chain and a stop ends it, as does the last
// chapter. A chapter that ends just as a pause comes in leaves the cursor
// where it is; resuming moves on to the next chapter.
//
// Presentation layers call the Narrator and redraw from the events it
// sends to its Listener.
package narrator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/metcalfc/hark/internal/reader"
	"github.com/metcalfc/hark/internal/speech"
)

// ErrNoBook is returned when reading is requested before a book is loaded.
var ErrNoBook = errors.New("no book loaded")

// State is the narrator's reading state.
type State int

const (
	Idle State = iota
	Reading
	Paused
)

func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// EngineFactory builds a fresh engine for every chapter read.
type EngineFactory interface {
	New(p speech.Params) (speech.Engine, error)
}

// Narrator is safe for concurrent use. Events are delivered on a separate
// goroutine, in order, and never while the narrator's lock is held.
type Narrator struct {
	engines EngineFactory
	ctrl    *speech.Controller
	events  *queue

	// gen identifies the session whose callbacks still count. Bumped on
	// every start and stop.
	gen atomic.Int64

	mu     sync.Mutex
	book   *reader.Book
	nav    *reader.Navigator
	state  State
	params speech.Params

	// advance is set when a chapter finished while paused.
	advance bool
}

// New creates an idle narrator with no book. listener may be nil.
func New(engines EngineFactory, params speech.Params, listener Listener) (*Narrator, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	return &Narrator{
		engines: engines,
		ctrl:    speech.NewController(),
		events:  newQueue(listener),
		nav:     reader.NewNavigator(nil),
		params:  params,
	}, nil
}

// ValidateParams checks the engine name, the rate range and, for the cloud
// engine, the language.
func ValidateParams(p speech.Params) error {
	if _, err := speech.ParseKind(string(p.Engine)); err != nil {
		return fmt.Errorf("%w: %q", err, p.Engine)
	}
	if p.Rate < speech.MinRate || p.Rate > speech.MaxRate {
		return fmt.Errorf("rate %d out of range [%d, %d]", p.Rate, speech.MinRate, speech.MaxRate)
	}
	if p.VoiceIndex < 0 {
		return fmt.Errorf("voice index %d must not be negative", p.VoiceIndex)
	}
	if _, err := speech.LookupLanguage(p.Language); err != nil {
		return fmt.Errorf("%w: %q", err, p.Language)
	}
	return nil
}

// Open loads the book at path. On failure the current book stays loaded.
func (n *Narrator) Open(path string) error {
	book, err := reader.Open(path)
	if err != nil {
		return err
	}
	n.Load(book)
	return nil
}

// Load replaces the current book, stopping any reading.
func (n *Narrator) Load(book *reader.Book) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stopLocked()
	n.book = book
	n.nav = reader.NewNavigator(book)
	log.Info("narrator: book loaded", "path", book.Path, "chapters", n.nav.Len())

	n.events.push(BookLoaded{Book: book})
	n.pushChapterLocked()
}

// Current returns the chapter under the cursor.
func (n *Narrator) Current() (reader.Chapter, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nav.Current()
}

func (n *Narrator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Narrator) Params() speech.Params {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.params
}

// SetParams changes the engine settings. They apply from the next chapter
// started.
func (n *Narrator) SetParams(p speech.Params) error {
	if err := ValidateParams(p); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.params = p
	return nil
}

// Next moves to the next chapter. It reports whether the cursor moved.
func (n *Narrator) Next() bool {
	return n.move(func(nav *reader.Navigator) bool { return nav.Next() })
}

// Previous moves to the previous chapter. It reports whether the cursor
// moved.
func (n *Narrator) Previous() bool {
	return n.move(func(nav *reader.Navigator) bool { return nav.Previous() })
}

// Select moves to chapter i. It reports whether the cursor moved.
func (n *Narrator) Select(i int) bool {
	return n.move(func(nav *reader.Navigator) bool { return nav.Select(i) })
}

// move applies step and, when reading or paused, restarts reading at the
// new chapter.
func (n *Narrator) move(step func(*reader.Navigator) bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !step(n.nav) {
		return false
	}
	n.pushChapterLocked()

	if n.state != Idle {
		if err := n.startLocked(); err != nil {
			n.failLocked(err)
		}
	}
	return true
}

// Toggle starts reading when idle, and otherwise pauses or resumes.
func (n *Narrator) Toggle() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case Reading:
		n.ctrl.Pause()
		n.setStateLocked(Paused)
	case Paused:
		if n.advance {
			if err := n.advanceLocked(); err != nil {
				n.stopLocked()
				return err
			}
			return nil
		}
		n.ctrl.Resume()
		n.setStateLocked(Reading)
	default:
		return n.startLocked()
	}
	return nil
}

// Stop ends reading and returns to idle.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
}

// Close stops reading and delivers any pending events. It must not be
// called from the Listener.
func (n *Narrator) Close() {
	n.Stop()
	n.events.close()
}

func (n *Narrator) startLocked() error {
	ch, ok := n.nav.Current()
	if !ok {
		return ErrNoBook
	}
	engine, err := n.engines.New(n.params)
	if err != nil {
		return fmt.Errorf("failed to start %s engine: %w", n.params.Engine, err)
	}

	gen := n.gen.Add(1)
	n.advance = false
	index := n.nav.Index()
	s := n.ctrl.Start(ch.Text, n.splitLanguageLocked(), engine, speech.Options{
		OnSentence: func(i, total int, text string) {
			if n.gen.Load() != gen {
				return
			}
			n.events.push(SentenceStarted{Chapter: index, Index: i, Total: total, Text: text})
		},
		OnFinish: func() { n.finished(gen) },
	})
	log.Info("narrator: reading", "chapter", index, "session", s.ID, "engine", engine.Name())
	n.setStateLocked(Reading)
	return nil
}

// splitLanguageLocked is the language whose sentence terminator the chapter
// is split with. The system voice reads in the book's own language when the
// book declares one; the cloud voice reads in its configured language.
func (n *Narrator) splitLanguageLocked() string {
	if n.params.Engine == speech.KindSystem && n.book != nil && n.book.Language != "" {
		return n.book.Language
	}
	return n.params.Language
}

func (n *Narrator) stopLocked() {
	n.gen.Add(1)
	n.advance = false
	n.ctrl.Stop()
	n.setStateLocked(Idle)
}

// finished runs on the session's goroutine once a chapter has been read
// to its end.
func (n *Narrator) finished(gen int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.gen.Load() != gen || n.state == Idle {
		return
	}
	if n.state == Paused {
		n.advance = true
		return
	}
	if err := n.advanceLocked(); err != nil {
		n.failLocked(err)
	}
}

// advanceLocked moves to the next chapter and reads it, or goes idle after
// the last one.
func (n *Narrator) advanceLocked() error {
	n.advance = false
	if n.nav.AtEnd() {
		log.Info("narrator: end of book")
		n.stopLocked()
		return nil
	}
	n.nav.Next()
	n.pushChapterLocked()
	return n.startLocked()
}

func (n *Narrator) failLocked(err error) {
	log.Error("narrator: could not continue reading", "err", err)
	n.stopLocked()
	n.events.push(Failed{Err: err})
}

func (n *Narrator) setStateLocked(s State) {
	if n.state == s {
		return
	}
	n.state = s
	n.events.push(StateChanged{State: s})
}

func (n *Narrator) pushChapterLocked() {
	if ch, ok := n.nav.Current(); ok {
		n.events.push(ChapterChanged{Index: n.nav.Index(), Chapter: ch})
	}
}
