package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MaintenanceResult describes one maintenance run.
type MaintenanceResult struct {
	BackupPath string
	Pruned     int64
	Err        error
}

// SchedulerConfig holds configuration for the maintenance scheduler.
type SchedulerConfig struct {
	// Interval is how often maintenance runs.
	Interval time.Duration

	// BackupDir receives the backups; empty selects DB.BackupDir.
	BackupDir string

	// SkipBackup disables backups, leaving only cache pruning.
	SkipBackup bool

	// PruneOlderThan drops cached set pools older than this. Zero keeps
	// them.
	PruneOlderThan time.Duration

	// StartImmediately runs maintenance when the scheduler starts.
	StartImmediately bool

	// OnComplete is called after each run.
	OnComplete func(MaintenanceResult)

	Logger *slog.Logger
}

// DefaultSchedulerConfig returns a config with daily backups and a one week
// cache horizon.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval:       24 * time.Hour,
		PruneOlderThan: 7 * 24 * time.Hour,
	}
}

// SchedulerStatus reports what the scheduler has done so far.
type SchedulerStatus struct {
	Running      bool
	Interval     time.Duration
	LastRun      time.Time
	NextRun      time.Time
	RunCount     int
	FailureCount int
	LastError    error
}

// Scheduler periodically backs up the database and prunes the set-card
// cache.
type Scheduler struct {
	service *Service
	config  *SchedulerConfig
	logger  *slog.Logger

	mu           sync.Mutex
	cancel       context.CancelFunc
	done         chan struct{}
	running      bool
	lastRun      time.Time
	lastError    error
	runCount     int
	failureCount int
}

// NewScheduler creates a maintenance scheduler over service.
func NewScheduler(service *Service, config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		service: service,
		config:  config,
		logger:  logger.With("component", "maintenance"),
	}
}

// Start runs maintenance every Interval until ctx is done or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return fmt.Errorf("invalid maintenance interval: %v", s.config.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	return nil
}

// Stop stops the scheduler and waits for a run in progress to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	if s.config.StartImmediately {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one maintenance run now.
func (s *Scheduler) RunOnce(ctx context.Context) MaintenanceResult {
	var result MaintenanceResult

	if !s.config.SkipBackup {
		path, err := s.service.DB().Backup(ctx, s.config.BackupDir)
		if err != nil {
			result.Err = err
		}
		result.BackupPath = path
	}

	if s.config.PruneOlderThan > 0 && result.Err == nil {
		pruned, err := s.service.PruneSetCards(ctx, s.config.PruneOlderThan)
		if err != nil {
			result.Err = fmt.Errorf("failed to prune set cache: %w", err)
		}
		result.Pruned = pruned
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastError = result.Err
	if result.Err != nil {
		s.failureCount++
	} else {
		s.runCount++
	}
	s.mu.Unlock()

	if result.Err != nil {
		s.logger.Warn("Maintenance failed", "error", result.Err)
	} else {
		s.logger.Info("Maintenance done", "backup", result.BackupPath, "pruned", result.Pruned)
	}
	if s.config.OnComplete != nil {
		s.config.OnComplete(result)
	}
	return result
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	if s.running && !s.lastRun.IsZero() {
		next = s.lastRun.Add(s.config.Interval)
	}
	return SchedulerStatus{
		Running:      s.running,
		Interval:     s.config.Interval,
		LastRun:      s.lastRun,
		NextRun:      next,
		RunCount:     s.runCount,
		FailureCount: s.failureCount,
		LastError:    s.lastError,
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
