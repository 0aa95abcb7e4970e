package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// SyncJobStatus represents the status of a scheduled store sync
type SyncJobStatus string

const (
	SyncJobStatusPending SyncJobStatus = "PENDING"
	SyncJobStatusRunning SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess SyncJobStatus = "SUCCESS"
	SyncJobStatusFailed  SyncJobStatus = "FAILED"
	// SyncJobStatusSkipped means another pass already held the store
	SyncJobStatusSkipped SyncJobStatus = "SKIPPED"
)

// StoreSyncJob is one scheduled catalog pull for a store
type StoreSyncJob struct {
	ID          uuid.UUID
	StoreID     uuid.UUID
	OwnerID     uuid.UUID
	Platform    integration.PlatformCode
	Status      SyncJobStatus
	Error       string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	ProductsSynced int
}

// NewStoreSyncJob creates a pending job for store
func NewStoreSyncJob(store integration.Store) *StoreSyncJob {
	return &StoreSyncJob{
		ID:         uuid.New(),
		StoreID:    store.ID,
		OwnerID:    store.OwnerID,
		Platform:   store.Platform,
		Status:     SyncJobStatusPending,
		EnqueuedAt: time.Now(),
	}
}

// Start marks the job as running
func (j *StoreSyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *StoreSyncJob) Complete(productsSynced int) {
	now := time.Now()
	j.Status = SyncJobStatusSuccess
	j.ProductsSynced = productsSynced
	j.CompletedAt = &now
}

// Skip marks the job as skipped because the store was already syncing
func (j *StoreSyncJob) Skip() {
	now := time.Now()
	j.Status = SyncJobStatusSkipped
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *StoreSyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// leaseKey is the cache key guarding this store across scheduler instances
func (j *StoreSyncJob) leaseKey() string {
	return j.StoreID.String()
}
