package narrator

import (
	"sync"

	"github.com/metcalfc/hark/internal/reader"
)

// Event is something a presentation layer may want to redraw for.
type Event interface {
	event()
}

// BookLoaded is sent when a new book replaces the old one.
type BookLoaded struct {
	Book *reader.Book
}

// ChapterChanged is sent whenever the cursor moves.
type ChapterChanged struct {
	Index   int
	Chapter reader.Chapter
}

// StateChanged is sent on every idle/reading/paused transition.
type StateChanged struct {
	State State
}

// SentenceStarted is sent before each unit is spoken.
type SentenceStarted struct {
	Chapter int
	Index   int
	Total   int
	Text    string
}

// Failed reports an error that happened away from a direct call, such as
// the next chapter's engine failing during auto-advance.
type Failed struct {
	Err error
}

func (BookLoaded) event()      {}
func (ChapterChanged) event()  {}
func (StateChanged) event()    {}
func (SentenceStarted) event() {}
func (Failed) event()          {}

// Listener receives events on the narrator's dispatch goroutine.
type Listener func(Event)

// queue hands events to a listener in order without ever blocking the
// sender.
type queue struct {
	listener Listener

	mu     sync.Mutex
	cond   *sync.Cond
	items  []Event
	closed bool
	done   chan struct{}
}

func newQueue(l Listener) *queue {
	q := &queue{listener: l, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	if l == nil {
		close(q.done)
		return q
	}
	go q.run()
	return q
}

func (q *queue) push(e Event) {
	if q.listener == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, e)
	q.cond.Signal()
}

func (q *queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		e := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		q.listener(e)
	}
}

// close stops accepting events and returns once the pending ones have
// been delivered.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
