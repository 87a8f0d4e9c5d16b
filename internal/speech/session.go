package speech

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// RunState is a session's run state.
type RunState int

const (
	Running RunState = iota
	Paused
	Stopped
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Options are the callbacks a session makes from its worker goroutine.
type Options struct {
	// OnSentence is called before each unit is spoken.
	OnSentence func(index, total int, text string)

	// OnFinish is called once after the last unit when the session was
	// not stopped. It runs after Done is closed.
	OnFinish func()
}

// Session is one read-aloud run over a fixed list of units.
type Session struct {
	ID string

	sentences []string
	engine    Engine
	opts      Options

	mu    sync.Mutex
	cond  *sync.Cond
	state RunState

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(sentences []string, engine Engine, opts Options) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        uuid.NewString()[:8],
		sentences: sentences,
		engine:    engine,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// State returns the current run state.
func (s *Session) State() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the worker has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run() {
	log.Debug("speech: session started", "session", s.ID, "engine", s.engine.Name(), "sentences", len(s.sentences))

	finished := s.speakAll()
	s.cancel()
	close(s.done)

	log.Debug("speech: session ended", "session", s.ID, "finished", finished)
	if finished && s.opts.OnFinish != nil {
		s.opts.OnFinish()
	}
}

// speakAll reports whether every unit was offered to the engine without
// the session being stopped.
func (s *Session) speakAll() bool {
	total := len(s.sentences)
	for i, sentence := range s.sentences {
		if !s.awaitTurn() {
			return false
		}
		if s.opts.OnSentence != nil {
			s.opts.OnSentence(i, total, sentence)
		}
		if err := s.engine.Speak(s.ctx, sentence); err != nil {
			if s.ctx.Err() != nil {
				return false
			}
			log.Warn("speech: sentence failed, skipping", "session", s.ID, "sentence", i, "err", err)
		}
	}

	// A pause during the last unit holds completion until resume.
	if !s.awaitTurn() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return false
	}
	s.state = Stopped
	return true
}

// awaitTurn blocks while paused and reports whether the session may go on.
func (s *Session) awaitTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.state == Paused {
		s.cond.Wait()
	}
	return s.state == Running
}

// Pause holds the session before its next unit and pauses the engine.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Paused
	s.mu.Unlock()

	if err := s.engine.Pause(); err != nil {
		log.Debug("speech: engine pause", "session", s.ID, "err", err)
	}
}

// Resume lets a paused session continue.
func (s *Session) Resume() {
	s.mu.Lock()
	if s.state != Paused {
		s.mu.Unlock()
		return
	}
	s.state = Running
	s.cond.Broadcast()
	s.mu.Unlock()

	if err := s.engine.Resume(); err != nil {
		log.Debug("speech: engine resume", "session", s.ID, "err", err)
	}
}

// Stop ends the session. Remaining units are abandoned and OnFinish is
// not called.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	s.state = Stopped
	s.cond.Broadcast()
	s.mu.Unlock()

	s.cancel()
	if err := s.engine.Stop(); err != nil {
		log.Debug("speech: engine stop", "session", s.ID, "err", err)
	}
}
