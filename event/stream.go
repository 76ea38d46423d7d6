// Package event implements the long-lived SSE response of spec §4.5: a
// bounded-by-backpressure queue of formatted frames driven by a small state
// machine, adapted to Go's cooperative-scheduling idiom (design note 9):
// "send on a channel, wake the writer" in place of the native callback/
// io-context model.
package event

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// State is one node of the state machine described in spec §4.5.
type State int

const (
	WaitingForEvents State = iota
	HasEvents
	WantToClose
	Closed
)

// Stream is a single client's event-stream response handle. It owns its own
// mutex guarding state and queue (spec §3's Invariant); the mutex is never
// held across a suspension point (spec §5 lock-order rule: registry before
// stream, and a stream's own lock is always innermost).
type Stream struct {
	mu    sync.Mutex
	state State
	queue [][]byte

	wake chan struct{} // buffered 1: "there is something to do, wake the writer"

	keepAlive time.Duration
	keepDone  chan struct{}
}

// New creates a Stream. keepAlive <= 0 disables the keep-alive comment
// frame.
func New(keepAlive time.Duration) *Stream {
	s := &Stream{
		state: WaitingForEvents,
		wake:  make(chan struct{}, 1),
	}
	if keepAlive > 0 {
		s.keepAlive = keepAlive
		s.keepDone = make(chan struct{})
		go s.keepAliveLoop()
	}
	return s
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Enqueue appends one already-formatted SSE frame to the queue and, if the
// stream was waiting, transitions it to HasEvents. A no-op once Closed
// (spec §3 invariant: "once Closed, enqueues are no-ops").
func (s *Stream) Enqueue(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed || s.state == WantToClose {
		return
	}
	s.queue = append(s.queue, frame)
	if s.state == WaitingForEvents {
		s.state = HasEvents
	}
	s.signal()
}

// EnqueueMessage is a convenience wrapping Frame.
func (s *Stream) EnqueueMessage(message string) {
	s.Enqueue(Frame(message))
}

func (s *Stream) keepAliveLoop() {
	t := time.NewTicker(s.keepAlive)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Enqueue(CommentFrame())
		case <-s.keepDone:
			return
		}
	}
}

// ClientClosed handles a client-initiated disconnect: it moves directly to
// Closed without emitting a final frame (the connection is already gone).
func (s *Stream) ClientClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Shutdown is the broadcast server-termination path (spec §5): it posts a
// WantToClose transition so the run loop flushes any pending frames and
// then ends the stream with a clean EOF, rather than dropping the
// connection mid-frame.
func (s *Stream) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.state = WantToClose
	s.signal()
}

func (s *Stream) closeLocked() {
	if s.state == Closed {
		return
	}
	s.state = Closed
	if s.keepDone != nil {
		select {
		case <-s.keepDone:
		default:
			close(s.keepDone)
		}
	}
	s.signal()
}

// State returns the current state, for tests and diagnostics.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run drives the response body: it flushes queued frames to w as they
// arrive, issuing one Flush per drain so no frame straddles two writes
// (spec §3 invariant), until the stream reaches Closed (via Shutdown) or
// ctx is done (client disconnect, handled by the caller via
// http.ResponseController / request context).
func (s *Stream) Run(ctx context.Context, w http.ResponseWriter) error {
	flusher, _ := w.(http.Flusher)
	for {
		s.mu.Lock()
		frames := s.queue
		s.queue = nil
		state := s.state
		if len(frames) == 0 && state == HasEvents {
			state = WaitingForEvents
			s.state = WaitingForEvents
		}
		s.mu.Unlock()

		for _, f := range frames {
			if _, err := w.Write(f); err != nil {
				s.ClientClosed()
				return err
			}
		}
		if flusher != nil && len(frames) > 0 {
			flusher.Flush()
		}

		if state == WantToClose && len(frames) == 0 {
			s.mu.Lock()
			s.closeLocked()
			s.mu.Unlock()
			return nil
		}
		if state == Closed {
			return nil
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			s.ClientClosed()
			return ctx.Err()
		}
	}
}
