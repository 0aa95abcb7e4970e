package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

func TestActivityRecorder_Record(t *testing.T) {
	repo := new(MockActivityLogRepository)
	owner, storeID := uuid.New(), uuid.New()

	repo.On("Append", mock.Anything, mock.MatchedBy(func(e *integration.ActivityLogEntry) bool {
		return e.OwnerID == owner && *e.StoreID == storeID && e.Action == integration.ActivitySyncCompleted &&
			e.Details["products_synced"] == 4
	})).Return(nil).Once()

	NewActivityRecorder(repo, 0, nil, nil).Record(context.Background(), owner, &storeID,
		integration.ActivitySyncCompleted, map[string]any{"products_synced": 4})

	repo.AssertExpectations(t)
}

func TestActivityRecorder_SwallowsWriteErrors(t *testing.T) {
	repo := new(MockActivityLogRepository)
	repo.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	core, logs := observer.New(zap.WarnLevel)
	counter := &countingFailures{}
	recorder := NewActivityRecorder(repo, 0, counter, zap.New(core))

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), uuid.New(), nil, integration.ActivityStoreConnected, nil)
	})

	assert.Equal(t, []string{"store_connected"}, counter.actions)
	entries := logs.FilterMessage("Failed to write activity log entry").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "disk full", entries[0].ContextMap()["error"])
	}
}

func TestActivityRecorder_IgnoresCallerCancellation(t *testing.T) {
	repo := new(MockActivityLogRepository)
	repo.On("Append", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return ctx.Err() == nil && hasDeadline
	}), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	storeID := uuid.New()
	NewActivityRecorder(repo, 0, nil, nil).Record(ctx, uuid.New(), &storeID, integration.ActivitySyncFailed,
		map[string]any{"error": "boom"})

	repo.AssertExpectations(t)
}
