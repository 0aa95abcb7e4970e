package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

const defaultActivityTimeout = 3 * time.Second

// ActivityFailureCounter counts dropped activity entries
type ActivityFailureCounter interface {
	ActivityWriteFailed(action string)
}

// ActivityRecorder writes activity entries synchronously on a context detached
// from the caller and bounded by a timeout. Write failures are logged and
// counted, never returned.
type ActivityRecorder struct {
	repo    integration.ActivityLogRepository
	timeout time.Duration
	counter ActivityFailureCounter
	logger  *zap.Logger
}

// NewActivityRecorder creates an ActivityRecorder. counter may be nil.
func NewActivityRecorder(repo integration.ActivityLogRepository, timeout time.Duration, counter ActivityFailureCounter, logger *zap.Logger) *ActivityRecorder {
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityRecorder{
		repo:    repo,
		timeout: timeout,
		counter: counter,
		logger:  logger,
	}
}

// Record implements integration.ActivityRecorder
func (r *ActivityRecorder) Record(ctx context.Context, ownerID uuid.UUID, storeID *uuid.UUID, action integration.ActivityAction, details map[string]any) {
	// the entry describes something that already happened, so the caller
	// going away must not drop it
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	entry := integration.NewActivityLogEntry(ownerID, storeID, action, details)
	if err := r.repo.Append(writeCtx, entry); err != nil {
		fields := []zap.Field{
			zap.String("owner_id", ownerID.String()),
			zap.String("action", action.String()),
			zap.Error(err),
		}
		if storeID != nil {
			fields = append(fields, zap.String("store_id", storeID.String()))
		}
		r.logger.Warn("Failed to write activity log entry", fields...)
		if r.counter != nil {
			r.counter.ActivityWriteFailed(action.String())
		}
	}
}

var _ integration.ActivityRecorder = (*ActivityRecorder)(nil)
