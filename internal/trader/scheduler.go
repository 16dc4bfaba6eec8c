package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hot-swap-bot-go/internal/logger"
	"hot-swap-bot-go/internal/models"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Executor runs one strategy cycle for a wallet.
type Executor interface {
	Execute(ctx context.Context, walletID string) Result
}

// SchedulerOptions holds the interval policy and the shutdown grace period.
type SchedulerOptions struct {
	MinInterval     time.Duration
	DefaultInterval time.Duration
	ShutdownGrace   time.Duration
}

type timerEntry struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Scheduler keeps one repeating timer per active wallet. Ticks of one wallet
// never overlap: a tick that fires while the previous cycle runs is skipped.
type Scheduler struct {
	logger *zap.Logger
	store  WalletStore
	engine Executor
	opts   SchedulerOptions
	busy   *busySet
	now    func() time.Time

	mu           sync.Mutex
	timers       map[string]*timerEntry
	walletLocks  map[string]*sync.Mutex
	closed       bool
	cycleCtx     context.Context
	cancelCycles context.CancelFunc
	// cycles tracks in-flight cycles of the current generation. StartAll
	// replaces it so an abandoned Wait never overlaps a new Add.
	cycles *sync.WaitGroup
}

// NewScheduler creates a scheduler. No timers run until StartAll or Reconcile.
func NewScheduler(logger *zap.Logger, store WalletStore, engine Executor, opts SchedulerOptions) *Scheduler {
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = time.Duration(models.DefaultIntervalMs) * time.Millisecond
	}
	if opts.DefaultInterval < opts.MinInterval {
		opts.DefaultInterval = opts.MinInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:       logger.Named("scheduler"),
		store:        store,
		engine:       engine,
		opts:         opts,
		busy:         newBusySet(),
		now:          time.Now,
		timers:       make(map[string]*timerEntry),
		walletLocks:  make(map[string]*sync.Mutex),
		cycleCtx:     ctx,
		cancelCycles: cancel,
		cycles:       new(sync.WaitGroup),
	}
}

// Reconcile brings the wallet's timer in line with its stored record: inactive
// or missing wallets lose their timer, active ones get exactly one. A timer
// whose interval is unchanged is left running. Calls for the same wallet are
// serialized from the read to the install.
func (s *Scheduler) Reconcile(ctx context.Context, walletID string) error {
	l := logger.ForWallet(s.logger, walletID)

	lock := s.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()

	w, err := s.store.Get(ctx, walletID)
	if err != nil {
		if models.IsCode(err, models.ErrorCodeNotFound) {
			s.stop(walletID)
		}
		return err
	}

	if !w.Active {
		if s.stop(walletID) {
			l.Info("Wallet inactive, schedule stopped")
		}
		return nil
	}

	interval, err := s.intervalFor(l, w)
	if err != nil {
		s.stop(walletID)
		s.recordError(ctx, l, walletID, "Scheduling failed: "+err.Error())
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.NewSchedulingError("scheduler is shut down", nil)
	}

	if existing, ok := s.timers[walletID]; ok {
		if existing.interval == interval {
			return nil
		}
		existing.cancel()
		delete(s.timers, walletID)
	}

	s.install(walletID, interval)
	l.Info("Wallet scheduled", zap.Duration("interval", interval), zap.String("strategy", string(w.Strategy)))
	return nil
}

// Stop cancels the wallet's timer and reports whether one was live.
// An in-flight cycle is not interrupted.
func (s *Scheduler) Stop(walletID string) bool {
	lock := s.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()
	return s.stop(walletID)
}

func (s *Scheduler) stop(walletID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[walletID]
	if !ok {
		return false
	}
	e.cancel()
	delete(s.timers, walletID)
	return true
}

// StartAll reopens a shut down scheduler and reconciles every active wallet.
// A failing wallet does not prevent the others from starting.
func (s *Scheduler) StartAll(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.cycleCtx, s.cancelCycles = context.WithCancel(context.Background())
		s.cycles = new(sync.WaitGroup)
		s.closed = false
	}
	s.mu.Unlock()

	wallets, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list wallets: %w", err)
	}

	var errs error
	started := 0
	for _, w := range wallets {
		if !w.Active {
			continue
		}
		if err := s.Reconcile(ctx, w.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("wallet %s: %w", w.ID, err))
			continue
		}
		started++
	}

	s.logger.Info("Scheduler started",
		zap.Int("wallets", len(wallets)),
		zap.Int("scheduled", started),
		zap.Int("failed", len(multierr.Errors(errs))))
	return errs
}

// ShutdownAll cancels every timer and waits up to the grace period for
// in-flight cycles. Cycles still running after that are abandoned.
func (s *Scheduler) ShutdownAll(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	timers := s.timers
	s.timers = make(map[string]*timerEntry)
	cancelCycles := s.cancelCycles
	cycles := s.cycles
	s.mu.Unlock()

	for _, e := range timers {
		e.cancel()
	}
	for _, e := range timers {
		<-e.done
	}

	s.logger.Info("All schedules stopped, waiting for in-flight cycles",
		zap.Int("timers", len(timers)),
		zap.Duration("grace", s.opts.ShutdownGrace))

	idle := make(chan struct{})
	go func() {
		cycles.Wait()
		close(idle)
	}()

	grace := time.NewTimer(s.opts.ShutdownGrace)
	defer grace.Stop()

	var err error
	select {
	case <-idle:
	case <-grace.C:
		err = models.NewSchedulingError("in-flight cycles abandoned after grace period", nil)
	case <-ctx.Done():
		err = models.NewSchedulingError("shutdown interrupted", ctx.Err())
	}
	cancelCycles()

	if err != nil {
		s.logger.Warn("Shutdown did not drain", zap.Error(err))
		return err
	}
	s.logger.Info("Scheduler shut down")
	return nil
}

// Trigger runs a cycle immediately, sharing the busy flag with timer ticks.
// The cycle runs on the scheduler's context, so it outlives the caller and
// is only cancelled by an expired shutdown grace period.
func (s *Scheduler) Trigger(walletID string) (Result, error) {
	ctx, cycles, ok := s.begin(walletID)
	if !ok {
		return Result{}, models.NewSchedulingError(fmt.Sprintf("wallet %s is busy or scheduler is shut down", walletID), nil)
	}
	defer s.end(walletID, cycles)

	return s.engine.Execute(ctx, walletID), nil
}

// Scheduled returns the interval of every live timer.
func (s *Scheduler) Scheduled() map[string]time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Duration, len(s.timers))
	for id, e := range s.timers {
		out[id] = e.interval
	}
	return out
}

// IsScheduled reports whether the wallet has a live timer.
func (s *Scheduler) IsScheduled(walletID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[walletID]
	return ok
}

// IsBusy reports whether a cycle for the wallet is in flight.
func (s *Scheduler) IsBusy(walletID string) bool {
	return s.busy.IsBusy(walletID)
}

// walletLock returns the mutex serializing schedule changes of one wallet.
func (s *Scheduler) walletLock(walletID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.walletLocks[walletID]
	if !ok {
		lock = new(sync.Mutex)
		s.walletLocks[walletID] = lock
	}
	return lock
}

func (s *Scheduler) intervalFor(l *zap.Logger, w *models.Wallet) (time.Duration, error) {
	if w.IntervalMs == 0 {
		return s.opts.DefaultInterval, nil
	}
	if w.IntervalMs < 0 {
		return 0, models.NewSchedulingError(fmt.Sprintf("invalid interval %dms", w.IntervalMs), nil)
	}
	interval := time.Duration(w.IntervalMs) * time.Millisecond
	if interval < s.opts.MinInterval {
		l.Warn("Interval below minimum, clamping",
			zap.Duration("requested", interval),
			zap.Duration("min", s.opts.MinInterval))
		interval = s.opts.MinInterval
	}
	return interval, nil
}

// install starts the timer goroutine. Caller holds s.mu.
func (s *Scheduler) install(walletID string, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &timerEntry{interval: interval, cancel: cancel, done: make(chan struct{})}
	s.timers[walletID] = e
	go s.loop(ctx, walletID, e)
}

func (s *Scheduler) loop(ctx context.Context, walletID string, e *timerEntry) {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(walletID)
		}
	}
}

// dispatch starts a cycle in its own goroutine unless one is already running.
func (s *Scheduler) dispatch(walletID string) {
	ctx, cycles, ok := s.begin(walletID)
	if !ok {
		s.logger.Debug("Previous cycle still running, tick skipped", zap.String(logger.KeyWallet, walletID))
		return
	}
	go func() {
		defer s.end(walletID, cycles)
		s.runCycle(ctx, walletID)
	}()
}

// begin marks the wallet busy and registers an in-flight cycle with the
// current generation. It returns the cycle context and the group to release.
func (s *Scheduler) begin(walletID string) (context.Context, *sync.WaitGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.busy.TryAcquire(walletID) {
		return nil, nil, false
	}
	s.cycles.Add(1)
	return s.cycleCtx, s.cycles, true
}

func (s *Scheduler) end(walletID string, cycles *sync.WaitGroup) {
	s.busy.Release(walletID)
	cycles.Done()
}

func (s *Scheduler) runCycle(ctx context.Context, walletID string) {
	l := logger.ForWallet(s.logger, walletID)

	defer func() {
		if r := recover(); r != nil {
			l.Error("Cycle panicked", zap.Any("panic", r))
			s.recordError(ctx, l, walletID, fmt.Sprintf("Schedule error: %v", r))
		}
	}()

	w, err := s.store.Get(ctx, walletID)
	if err != nil {
		if models.IsCode(err, models.ErrorCodeNotFound) {
			l.Warn("Wallet no longer exists, stopping schedule")
			s.Stop(walletID)
			return
		}
		l.Error("Failed to load wallet for cycle", zap.Error(err))
		s.recordError(ctx, l, walletID, "Schedule error: "+err.Error())
		return
	}
	if !w.Active {
		l.Debug("Wallet inactive, cycle skipped")
		return
	}

	start := s.now()
	res := s.engine.Execute(ctx, walletID)
	fields := []zap.Field{
		zap.Bool("success", res.Success),
		zap.String("action", string(res.Action)),
		zap.String("message", res.Message),
		zap.Duration("took", s.now().Sub(start)),
	}
	if res.Success {
		l.Info("Cycle completed", fields...)
	} else if errors.Is(res.Err, context.Canceled) {
		l.Warn("Cycle abandoned", fields...)
	} else {
		l.Warn("Cycle failed", fields...)
	}
}

func (s *Scheduler) recordError(ctx context.Context, l *zap.Logger, walletID, msg string) {
	if _, err := s.store.Update(context.WithoutCancel(ctx), walletID, models.ErrorResult(msg, s.now())); err != nil {
		l.Error("Failed to record scheduling error", zap.Error(err), zap.String("message", msg))
	}
}
