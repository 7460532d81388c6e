package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// State represents the current state of the background sync loop.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Status holds the scheduler's view of the last sync cycle.
type Status struct {
	State       State
	LastSync    time.Time
	LastOutcome Outcome
	Error       error
}

// SyncResultMsg is a tea.Msg sent when a scheduled sync cycle completes.
type SyncResultMsg struct {
	Result CycleResult
	Error  error
}

// Cycler runs one sync cycle. *Engine satisfies it.
type Cycler interface {
	SyncOnce(ctx context.Context) (CycleResult, error)
}

// cycleTimeout is the maximum time allowed for a single sync cycle.
const cycleTimeout = 2 * time.Minute

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 60 * time.Minute

// Scheduler runs sync cycles on an interval and on demand.
type Scheduler struct {
	cycler    Cycler
	interval  time.Duration
	logger    *slog.Logger
	status    Status
	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(c Cycler, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cycler:    c,
		interval:  interval,
		logger:    logger.With("component", "sync-scheduler"),
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the loop, which syncs once immediately and then on every
// tick or trigger. The returned command waits for the first result.
func (s *Scheduler) Start() tea.Cmd {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.loop(stop, done)

	return s.WaitForNextResult()
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	done := s.doneCh
	s.mu.Unlock()

	<-done
}

// Trigger requests an immediate cycle. Requests made while one is already
// pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns a copy of the current status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Results exposes completed cycles to callers outside Bubble Tea.
func (s *Scheduler) Results() <-chan SyncResultMsg {
	return s.resultCh
}

func (s *Scheduler) loop(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runCycle()
		case <-s.triggerCh:
			s.runCycle()
		}
	}
}

func (s *Scheduler) runCycle() {
	s.setStatus(func(st *Status) {
		st.State = StateRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	res, err := s.cycler.SyncOnce(ctx)
	if err != nil {
		s.logger.Warn("sync failed", "error", err)
		s.setStatus(func(st *Status) {
			st.State = StateError
			st.Error = err
		})
		s.sendResult(SyncResultMsg{Error: err})
		return
	}

	s.logger.Info("sync completed", "outcome", res.Outcome, "todos", res.Todos)
	s.setStatus(func(st *Status) {
		st.State = StateIdle
		st.Error = nil
		st.LastSync = res.At
		st.LastOutcome = res.Outcome
	})
	s.sendResult(SyncResultMsg{Result: res})
}

func (s *Scheduler) setStatus(fn func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status)
}

// sendResult sends on the result channel without blocking.
func (s *Scheduler) sendResult(msg SyncResultMsg) {
	select {
	case s.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the loop
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// Call it again after handling a SyncResultMsg to keep listening.
func (s *Scheduler) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-s.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
