package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/cache"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// StoreSyncer Interface
// ---------------------------------------------------------------------------

// StoreSyncer runs one sync pass for a store
type StoreSyncer interface {
	// SyncStore pulls the catalog and returns the number of products written
	SyncStore(ctx context.Context, storeID, ownerID uuid.UUID) (int, error)
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the periodic sync scheduler
type SyncSchedulerConfig struct {
	// CheckInterval is how often due stores are collected
	CheckInterval time.Duration
	// SyncEvery is how old last_synced_at must be before a store is due
	SyncEvery time.Duration
	// MaxConcurrentJobs is the number of workers
	MaxConcurrentJobs int
	// JobTimeout bounds a single sync pass
	JobTimeout time.Duration
	// BatchSize caps the stores collected per check
	BatchSize int
	// QueueSize is the capacity of the job channel
	QueueSize int
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		CheckInterval:     5 * time.Minute,
		SyncEvery:         6 * time.Hour,
		MaxConcurrentJobs: 3,
		JobTimeout:        10 * time.Minute,
		BatchSize:         50,
		QueueSize:         100,
	}
}

// SyncSchedulerConfigFrom maps the application config onto the scheduler,
// keeping defaults for unset fields
func SyncSchedulerConfigFrom(cfg config.SchedulerConfig) SyncSchedulerConfig {
	out := DefaultSyncSchedulerConfig()
	if cfg.Interval > 0 {
		out.CheckInterval = cfg.Interval
	}
	if cfg.SyncEvery > 0 {
		out.SyncEvery = cfg.SyncEvery
	}
	if cfg.MaxConcurrentJobs > 0 {
		out.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	if cfg.BatchSize > 0 {
		out.BatchSize = cfg.BatchSize
	}
	return out
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 || c.CheckInterval <= 0 || c.SyncEvery <= 0 {
		return ErrInvalidConfig
	}
	if c.BatchSize <= 0 || c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// leaseTTL outlives the job timeout so a lease never expires under a running pass
func (c *SyncSchedulerConfig) leaseTTL() time.Duration {
	return c.JobTimeout + time.Minute
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler periodically collects stores due for a sync and runs them on
// a bounded worker pool
type SyncScheduler struct {
	config SyncSchedulerConfig
	stores integration.StoreRepository
	syncer StoreSyncer
	lease  cache.SyncLease
	logger *zap.Logger

	jobs      chan *StoreSyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	stopped   bool // jobs is closed; the scheduler is single-use

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*StoreSyncJob
	maxHistory int
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(
	config SyncSchedulerConfig,
	stores integration.StoreRepository,
	syncer StoreSyncer,
	lease cache.SyncLease,
	logger *zap.Logger,
) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:     config,
		stores:     stores,
		syncer:     syncer,
		lease:      lease,
		logger:     logger,
		jobs:       make(chan *StoreSyncJob, config.QueueSize),
		history:    make([]*StoreSyncJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the workers and the check loop. A stopped scheduler cannot be
// started again.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.stopped {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("sync_every", s.config.SyncEvery),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	// closed under mu so SubmitJob never sends on a closed channel
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob queues a job. The caller must already hold the store's lease.
func (s *SyncScheduler) SubmitJob(job *StoreSyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("store_id", job.StoreID.String()),
			zap.String("platform", job.Platform.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// runLoop collects due stores immediately and then on every tick
func (s *SyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	s.CheckAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckAndEnqueue(ctx)
		}
	}
}

// CheckAndEnqueue submits a job for every due store whose lease it can take.
// Returns the number of jobs submitted.
func (s *SyncScheduler) CheckAndEnqueue(ctx context.Context) int {
	due, err := s.stores.ListDueForSync(ctx, time.Now().UTC().Add(-s.config.SyncEvery), s.config.BatchSize)
	if err != nil {
		s.logger.Error("Failed to list stores due for sync", zap.Error(err))
		return 0
	}
	if len(due) == 0 {
		s.logger.Debug("No stores due for sync")
		return 0
	}

	submitted := 0
	for _, store := range due {
		job := NewStoreSyncJob(store)

		acquired, err := s.lease.Acquire(ctx, job.leaseKey(), s.config.leaseTTL())
		if err != nil {
			s.logger.Warn("Failed to acquire sync lease",
				zap.String("store_id", store.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !acquired {
			s.logger.Debug("Store sync lease held elsewhere",
				zap.String("store_id", store.ID.String()),
			)
			continue
		}

		if err := s.SubmitJob(job); err != nil {
			s.releaseLease(job)
			if errors.Is(err, ErrJobQueueFull) {
				s.logger.Warn("Sync job queue full, deferring remaining stores",
					zap.Int("submitted", submitted),
					zap.Int("due", len(due)),
				)
			}
			break
		}
		submitted++
	}

	if submitted > 0 {
		s.logger.Info("Scheduled store syncs",
			zap.Int("submitted", submitted),
			zap.Int("due", len(due)),
		)
	}
	return submitted
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sync worker stopping", zap.Int("worker_id", workerID))
			s.drain()
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// drain releases the leases of jobs that will never run
func (s *SyncScheduler) drain() {
	for {
		select {
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.releaseLease(job)
		default:
			return
		}
	}
}

// processJob runs a single sync pass and releases the store's lease
func (s *SyncScheduler) processJob(ctx context.Context, job *StoreSyncJob, workerID int) {
	defer s.releaseLease(job)

	job.Start()
	s.logger.Info("Processing store sync",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("store_id", job.StoreID.String()),
		zap.String("platform", job.Platform.String()),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	count, err := s.syncer.SyncStore(jobCtx, job.StoreID, job.OwnerID)
	if err != nil {
		var inProgress *integration.SyncInProgressError
		if errors.As(err, &inProgress) {
			job.Skip()
			s.logger.Info("Store already syncing, skipped",
				zap.String("job_id", job.ID.String()),
				zap.String("store_id", job.StoreID.String()),
			)
			s.addToHistory(job)
			return
		}

		job.Fail(err.Error())
		s.logger.Error("Store sync failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("store_id", job.StoreID.String()),
			zap.String("platform", job.Platform.String()),
			zap.Error(err),
		)
		s.addToHistory(job)
		return
	}

	job.Complete(count)
	s.logger.Info("Store sync completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("store_id", job.StoreID.String()),
		zap.String("platform", job.Platform.String()),
		zap.Int("products_synced", count),
	)
	s.addToHistory(job)
}

func (s *SyncScheduler) releaseLease(job *StoreSyncJob) {
	// the caller's context may already be cancelled during shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.lease.Release(ctx, job.leaseKey()); err != nil {
		s.logger.Warn("Failed to release sync lease",
			zap.String("store_id", job.StoreID.String()),
			zap.Error(err),
		)
	}
}

// addToHistory adds a finished job to history
func (s *SyncScheduler) addToHistory(job *StoreSyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*StoreSyncJob{job}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job history, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []*StoreSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*StoreSyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// IsRunning reports whether Start has been called without a matching Stop
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
