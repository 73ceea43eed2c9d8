package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/metrics"
)

// Saver writes snapshots to a Store from a single background goroutine.
// Only the most recent pending snapshot is kept: a snapshot submitted while
// another is waiting replaces it. Failures are retried, then logged and
// recorded; they never reach the submitter.
type Saver struct {
	store    Store
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	log      *zap.SugaredLogger

	mu       sync.Mutex
	idle     *sync.Cond
	pending  *ledger.Snapshot
	inflight bool
	closed   bool
	lastErr  error

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithTimeout bounds each save attempt.
func WithTimeout(d time.Duration) SaverOption {
	return func(s *Saver) { s.timeout = d }
}

// WithRetry sets the number of attempts per snapshot and the initial
// backoff between them, doubled after each failure.
func WithRetry(attempts int, backoff time.Duration) SaverOption {
	return func(s *Saver) {
		if attempts > 0 {
			s.attempts = attempts
		}
		s.backoff = backoff
	}
}

// WithSaverLogger sets the logger.
func WithSaverLogger(l *zap.SugaredLogger) SaverOption {
	return func(s *Saver) { s.log = l }
}

// NewSaver starts a saver in front of store. Call Close to stop it.
func NewSaver(store Store, opts ...SaverOption) *Saver {
	s := &Saver{
		store:    store,
		timeout:  5 * time.Second,
		attempts: 3,
		backoff:  100 * time.Millisecond,
		log:      zap.S().Named("persist"),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.idle = sync.NewCond(&s.mu)

	s.wg.Add(1)
	go s.run()
	return s
}

// Submit queues snap for saving and returns immediately.
func (s *Saver) Submit(snap ledger.Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Warnw("snapshot submitted after close, dropped", "migrations", len(snap.Migrations))
		return
	}
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every submitted snapshot has been handled.
func (s *Saver) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending != nil || s.inflight {
		s.idle.Wait()
	}
}

// LastError returns the error of the most recent save, or nil if it
// succeeded.
func (s *Saver) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close saves any pending snapshot and stops the worker. The store itself is
// not closed.
func (s *Saver) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	return s.LastError()
}

func (s *Saver) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.wake:
			s.saveLatest()
		case <-s.done:
			s.saveLatest()
			return
		}
	}
}

func (s *Saver) saveLatest() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.inflight = snap != nil
	s.mu.Unlock()

	if snap == nil {
		return
	}

	err := s.save(*snap)

	s.mu.Lock()
	s.inflight = false
	s.lastErr = err
	s.idle.Broadcast()
	s.mu.Unlock()
}

func (s *Saver) save(snap ledger.Snapshot) error {
	backend := s.store.Name()
	wait := s.backoff

	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err = s.store.Save(ctx, snap)
		cancel()

		if err == nil {
			metrics.IncreasePersistSaves(backend, metrics.OutcomeSuccess)
			s.log.Debugw("ledger snapshot saved", "backend", backend, "migrations", len(snap.Migrations))
			return nil
		}

		s.log.Warnw("saving ledger snapshot failed", "backend", backend, "attempt", attempt, "error", err)
		if attempt < s.attempts && wait > 0 {
			time.Sleep(wait)
			wait *= 2
		}
	}

	metrics.IncreasePersistSaves(backend, metrics.OutcomeFailure)
	s.log.Errorw("giving up on ledger snapshot", "backend", backend, "attempts", s.attempts, "error", err)
	return err
}
