// Package scheduler runs the pipelines on independent cron lanes so a long
// training run never delays inference.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
)

var (
	ErrLaneBusy      = errors.New("lane is already running")
	ErrUnknownLane   = errors.New("unknown lane")
	ErrAlreadyExists = errors.New("lane already exists")
	ErrRunning       = errors.New("scheduler is running")
)

// Job is one pipeline run.
type Job func(ctx context.Context) error

// LaneStatus describes one lane for status endpoints.
type LaneStatus struct {
	Name         string    `json:"name"`
	Interval     string    `json:"interval"`
	Running      bool      `json:"running"`
	Runs         int64     `json:"runs"`
	Skips        int64     `json:"skips"`
	LastRun      time.Time `json:"last_run,omitempty"`
	LastDuration float64   `json:"last_duration_seconds"`
	LastError    string    `json:"last_error,omitempty"`
	NextRun      time.Time `json:"next_run,omitempty"`
}

type lane struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	entryID  cron.EntryID
	running  atomic.Bool

	mu           sync.Mutex
	runs         int64
	skips        int64
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      error
}

// Scheduler manages the pipeline lanes
type Scheduler struct {
	cron            *cron.Cron
	mu              sync.RWMutex
	lanes           map[string]*lane
	order           []string
	isRunning       bool
	baseCtx         context.Context
	cancel          context.CancelFunc
	gracefulTimeout time.Duration
	logger          *logrus.Entry
}

// New creates a scheduler. Panicking jobs are recovered and logged.
func New(log *logrus.Logger) *Scheduler {
	entry := log.WithField("component", "scheduler")
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.PrintfLogger(entry))),
		),
		lanes:           make(map[string]*lane),
		baseCtx:         ctx,
		cancel:          cancel,
		gracefulTimeout: 30 * time.Second,
		logger:          entry,
	}
}

// AddLane schedules job every interval. Each run gets its own timeout, and a
// tick that arrives while the previous run is still going is skipped.
func (s *Scheduler) AddLane(name string, interval, timeout time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot add lane %s: %w", name, ErrRunning)
	}
	if _, exists := s.lanes[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if interval <= 0 {
		return fmt.Errorf("lane %s: interval must be positive", name)
	}

	l := &lane{name: name, interval: interval, timeout: timeout, job: job}
	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := s.run(s.baseCtx, l); errors.Is(err, ErrLaneBusy) {
			metrics.RecordSchedulerSkip(l.name)
			s.logger.WithField("lane", l.name).Warn("Previous run still in progress, skipping tick")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	l.entryID = entryID
	s.lanes[name] = l
	s.order = append(s.order, name)
	s.logger.WithFields(logrus.Fields{"lane": name, "interval": interval.String()}).Info("Scheduled lane")
	return nil
}

func (s *Scheduler) run(ctx context.Context, l *lane) error {
	if !l.running.CompareAndSwap(false, true) {
		l.mu.Lock()
		l.skips++
		l.mu.Unlock()
		return ErrLaneBusy
	}
	defer l.running.Store(false)

	runCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	err := l.job(runCtx)
	elapsed := time.Since(start)

	l.mu.Lock()
	l.runs++
	l.lastRun = start.UTC()
	l.lastDuration = elapsed
	l.lastErr = err
	l.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).WithField("lane", l.name).Error("Lane run failed")
	}
	return err
}

// RunNow runs a lane synchronously on ctx. It returns ErrLaneBusy when the
// lane is already running.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	l, ok := s.lanes[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLane, name)
	}
	return s.run(ctx, l)
}

// Start starts the cron lanes. With runFirst, every lane also runs once
// immediately, one after another in the order they were added.
func (s *Scheduler) Start(runFirst bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.lanes) == 0 {
		return fmt.Errorf("no lanes scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("lanes", len(s.lanes)).Info("Scheduler started")

	if runFirst {
		lanes := make([]*lane, 0, len(s.order))
		for _, name := range s.order {
			lanes = append(lanes, s.lanes[name])
		}
		go func() {
			for _, l := range lanes {
				_ = s.run(s.baseCtx, l)
			}
		}()
	}
	return nil
}

// Stop stops scheduling and waits for running jobs up to the graceful timeout,
// after which their context is cancelled.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		s.cancel()
		return nil
	}

	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(s.gracefulTimeout):
		s.logger.Warn("Jobs still running after graceful timeout, cancelling")
	}
	s.cancel()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status reports every lane in the order they were added.
func (s *Scheduler) Status() []LaneStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LaneStatus, 0, len(s.order))
	for _, name := range s.order {
		l := s.lanes[name]
		l.mu.Lock()
		st := LaneStatus{
			Name:         l.name,
			Interval:     l.interval.String(),
			Running:      l.running.Load(),
			Runs:         l.runs,
			Skips:        l.skips,
			LastRun:      l.lastRun,
			LastDuration: l.lastDuration.Seconds(),
		}
		if l.lastErr != nil {
			st.LastError = l.lastErr.Error()
		}
		l.mu.Unlock()

		if s.isRunning {
			if entry := s.cron.Entry(l.entryID); entry.Valid() {
				st.NextRun = entry.Next
			}
		}
		out = append(out, st)
	}
	return out
}
