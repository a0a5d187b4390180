package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ExpireFunc is invoked exactly once when a session's round clock fires.
type ExpireFunc func(sessionID string)

// TimeoutScheduler arms one fire-once timer per active session for the
// round time limit. Each timer gets a watcher goroutine with its own stop
// channel, so cancelling or replacing a timer releases the watcher
// immediately instead of parking it until shutdown.
type TimeoutScheduler struct {
	clock clockwork.Clock
	limit time.Duration

	mu       sync.Mutex
	onExpire ExpireFunc
	timers   map[string]*sessionTimer
	done     chan struct{}
	closed   bool
}

type sessionTimer struct {
	timer clockwork.Timer
	stop  chan struct{}
}

func NewTimeoutScheduler(clock clockwork.Clock, limit time.Duration) *TimeoutScheduler {
	return &TimeoutScheduler{
		clock:  clock,
		limit:  limit,
		timers: make(map[string]*sessionTimer),
		done:   make(chan struct{}),
	}
}

// SetExpireFunc wires the timeout callback. Must be called before the first
// Schedule.
func (s *TimeoutScheduler) SetExpireFunc(fn ExpireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = fn
}

// Schedule arms the round timer for a session, replacing any timer already
// armed for the same session.
func (s *TimeoutScheduler) Schedule(sessionID string) {
	st := &sessionTimer{
		timer: s.clock.NewTimer(s.limit),
		stop:  make(chan struct{}),
	}
	s.replaceTimer(sessionID, st)

	go func() {
		select {
		case <-st.timer.Chan():
			// Fire only while still the registered timer; a concurrent
			// Cancel or reschedule wins the race.
			if !s.removeTimer(sessionID, st) {
				return
			}
			s.mu.Lock()
			fn := s.onExpire
			s.mu.Unlock()
			if fn != nil {
				fn(sessionID)
			}
		case <-st.stop:
			stopAndDrainTimer(st.timer)
		case <-s.done:
			stopAndDrainTimer(st.timer)
		}
	}()

	log.Debug().
		Str("session_id", sessionID).
		Dur("limit", s.limit).
		Msg("round timer armed")
}

// Cancel disarms the timer for a session, typically because the game
// completed before the clock ran out, and releases its watcher.
func (s *TimeoutScheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.timers[sessionID]; ok {
		close(st.stop)
		delete(s.timers, sessionID)
		log.Debug().Str("session_id", sessionID).Msg("round timer cancelled")
	}
}

// Shutdown disarms every active timer and releases their watchers.
func (s *TimeoutScheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for sessionID := range s.timers {
		delete(s.timers, sessionID)
	}
}

// replaceTimer registers st for the session, stopping the watcher of any
// timer it displaces.
func (s *TimeoutScheduler) replaceTimer(sessionID string, st *sessionTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[sessionID]; ok {
		close(existing.stop)
	}
	s.timers[sessionID] = st
}

// removeTimer deletes the session's entry if st is still the registered
// timer, reporting whether it was.
func (s *TimeoutScheduler) removeTimer(sessionID string, st *sessionTimer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.timers[sessionID]; ok && current == st {
		delete(s.timers, sessionID)
		return true
	}
	return false
}

// stopAndDrainTimer stops a timer and drains its channel, following the
// pattern from the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
