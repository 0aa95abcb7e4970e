package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/telemetry"
)

// SyncObserver records sync pass metrics. The func returned by SyncStarted is
// called once with the terminal status.
type SyncObserver interface {
	SyncStarted(platform string) func(status string, products int)
}

// SyncSettings tune catalog pulls
type SyncSettings struct {
	// PageSize and MaxItems are passed to the adapter; zero means adapter default
	PageSize int
	MaxItems int
	// StaleAfter is how long a syncing store may stay untouched before another
	// pass can take it over
	StaleAfter time.Duration
}

const defaultStaleAfter = 30 * time.Minute

// SyncService pulls a store's catalog and writes it as canonical products.
// A store moves pending -> syncing -> completed | failed; the move to
// syncing is a conditional update, so only one pass per store runs at a time.
type SyncService struct {
	stores   integration.StoreRepository
	products integration.ProductRepository
	registry *integration.Registry
	vault    integration.CredentialVault
	activity integration.ActivityRecorder
	observer SyncObserver
	settings SyncSettings
	logger   *zap.Logger
	now      func() time.Time
}

// NewSyncService creates a new SyncService. observer may be nil.
func NewSyncService(
	stores integration.StoreRepository,
	products integration.ProductRepository,
	registry *integration.Registry,
	vault integration.CredentialVault,
	activity integration.ActivityRecorder,
	observer SyncObserver,
	settings SyncSettings,
	logger *zap.Logger,
) *SyncService {
	if settings.StaleAfter <= 0 {
		settings.StaleAfter = defaultStaleAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		stores:   stores,
		products: products,
		registry: registry,
		vault:    vault,
		activity: activity,
		observer: observer,
		settings: settings,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sync runs one catalog pass for a store the caller owns.
//
// Errors before the store enters syncing (unknown store, undecryptable
// credentials, another pass running) leave sync_status untouched. Any later
// error marks the store failed and is returned unchanged, except a failure to
// record completion, which comes back as *integration.SyncStateError.
func (s *SyncService) Sync(ctx context.Context, storeID, ownerID uuid.UUID) (*SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "Sync",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, storeID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrOwnerID, ownerID.String()),
	)
	defer span.End()

	store, err := s.stores.FindByIDForOwner(ctx, storeID, ownerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrPlatform, store.Platform.String())

	creds, err := s.vault.Open(ctx, store.CredentialEnvelope)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	startedAt := s.now()
	started, err := s.stores.TryStartSync(ctx, store.ID, startedAt, startedAt.Add(-s.settings.StaleAfter))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !started {
		err := &integration.SyncInProgressError{StoreID: store.ID.String()}
		telemetry.RecordError(span, err)
		return nil, err
	}

	log := s.logger.With(
		zap.String("store_id", store.ID.String()),
		zap.String("platform", store.Platform.String()),
	)
	log.Info("Sync started")

	finish := func(string, int) {}
	if s.observer != nil {
		finish = s.observer.SyncStarted(store.Platform.String())
	}

	count, err := s.pull(ctx, store, creds)
	if err != nil {
		s.markFailed(ctx, store, err, log)
		finish(string(integration.SyncStatusFailed), 0)
		telemetry.RecordError(span, err)
		telemetry.SetAttribute(span, telemetry.SpanAttrSyncStatus, string(integration.SyncStatusFailed))
		return nil, err
	}

	completedAt := s.now()
	if err := s.stores.FinishSync(context.WithoutCancel(ctx), store.ID, integration.SyncStatusCompleted, &completedAt); err != nil {
		stateErr := &integration.SyncStateError{
			StoreID: store.ID.String(),
			Status:  integration.SyncStatusCompleted,
			Err:     err,
		}
		s.markFailed(ctx, store, stateErr, log)
		finish(string(integration.SyncStatusFailed), 0)
		telemetry.RecordError(span, stateErr)
		telemetry.SetAttribute(span, telemetry.SpanAttrSyncStatus, string(integration.SyncStatusFailed))
		return nil, stateErr
	}
	finish(string(integration.SyncStatusCompleted), count)

	s.activity.Record(ctx, store.OwnerID, &store.ID, integration.ActivitySyncCompleted, map[string]any{
		"products_synced": count,
	})

	log.Info("Sync completed",
		zap.Int("products_synced", count),
		zap.Duration("duration", completedAt.Sub(startedAt)),
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProductsSynced, count,
		telemetry.SpanAttrSyncStatus, string(integration.SyncStatusCompleted),
	)
	telemetry.SetOK(span)

	return &SyncResult{
		StoreID:        store.ID,
		Status:         integration.SyncStatusCompleted,
		ProductsSynced: count,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
	}, nil
}

// pull fetches the catalog and writes it in one batch
func (s *SyncService) pull(ctx context.Context, store *integration.Store, creds integration.Credentials) (int, error) {
	adapter, err := s.registry.Adapter(store.Platform, creds)
	if err != nil {
		return 0, err
	}

	items, err := adapter.FetchCatalog(ctx, integration.FetchOptions{
		PageSize: s.settings.PageSize,
		MaxItems: s.settings.MaxItems,
	})
	if err != nil {
		return 0, err
	}

	if err := s.products.UpsertBatch(ctx, store.ID, items, s.now()); err != nil {
		return 0, err
	}
	return len(items), nil
}

// markFailed moves the store to failed on a context that ignores the caller's
// cancellation, so an aborted request never strands it in syncing
func (s *SyncService) markFailed(ctx context.Context, store *integration.Store, cause error, log *zap.Logger) {
	if err := s.stores.FinishSync(context.WithoutCancel(ctx), store.ID, integration.SyncStatusFailed, nil); err != nil {
		log.Error("Failed to mark store as failed", zap.Error(err), zap.NamedError("cause", cause))
	}

	s.activity.Record(ctx, store.OwnerID, &store.ID, integration.ActivitySyncFailed, map[string]any{
		"error": cause.Error(),
	})

	log.Warn("Sync failed", zap.Error(cause))
}

// SyncStore runs Sync and reports only the product count. It lets the
// periodic scheduler drive this service.
func (s *SyncService) SyncStore(ctx context.Context, storeID, ownerID uuid.UUID) (int, error) {
	result, err := s.Sync(ctx, storeID, ownerID)
	if err != nil {
		return 0, err
	}
	return result.ProductsSynced, nil
}
