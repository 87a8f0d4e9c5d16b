package speech

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultStopTimeout bounds how long Start waits for the previous session's
// worker to exit.
const DefaultStopTimeout = 3 * time.Second

// Controller owns the single active session.
type Controller struct {
	mu      sync.Mutex
	current *Session
}

// NewController creates an idle controller.
func NewController() *Controller {
	return &Controller{}
}

// Start stops any running session, waits for it to let go of its engine,
// then starts reading text with engine.
func (c *Controller) Start(text, lang string, engine Engine, opts Options) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	s := newSession(Split(text, lang), engine, opts)
	c.current = s
	go s.run()
	return s
}

func (c *Controller) stopLocked() {
	prev := c.current
	if prev == nil {
		return
	}
	prev.Stop()

	select {
	case <-prev.Done():
	case <-time.After(DefaultStopTimeout):
		log.Warn("speech: previous session did not stop in time", "session", prev.ID, "timeout", DefaultStopTimeout)
	}
	c.current = nil
}

// Pause pauses the active session.
func (c *Controller) Pause() {
	if s := c.Current(); s != nil {
		s.Pause()
	}
}

// Resume resumes the active session.
func (c *Controller) Resume() {
	if s := c.Current(); s != nil {
		s.Resume()
	}
}

// Stop stops the active session without waiting for it.
func (c *Controller) Stop() {
	if s := c.Current(); s != nil {
		s.Stop()
	}
}

// Current returns the most recently started session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the active session's state, or Stopped when there is none.
func (c *Controller) State() RunState {
	if s := c.Current(); s != nil {
		return s.State()
	}
	return Stopped
}
