package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/telemetry"
)

const defaultActivityLimit = 50

// StoreService exposes store connection management and single product updates
type StoreService struct {
	registry *integration.Registry
	vault    integration.CredentialVault
	stores   integration.StoreRepository
	products integration.ProductRepository
	activity integration.ActivityRecorder
	history  integration.ActivityLogRepository
	logger   *zap.Logger
}

// NewStoreService creates a new StoreService
func NewStoreService(
	registry *integration.Registry,
	vault integration.CredentialVault,
	stores integration.StoreRepository,
	products integration.ProductRepository,
	activity integration.ActivityRecorder,
	history integration.ActivityLogRepository,
	logger *zap.Logger,
) *StoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreService{
		registry: registry,
		vault:    vault,
		stores:   stores,
		products: products,
		activity: activity,
		history:  history,
		logger:   logger,
	}
}

// resolveAdapter checks the caller's platform and credentials and builds the
// adapter. Nothing leaves the process before these checks pass.
func (s *StoreService) resolveAdapter(platformTag string, creds map[string]string) (integration.PlatformAdapter, error) {
	platform := integration.ParsePlatformCode(platformTag)
	if platform == "" {
		return nil, integration.NewValidationError("platform", "is required")
	}
	if len(creds) == 0 {
		return nil, integration.NewValidationError("credentials", "are required")
	}
	if !s.registry.Supports(platform) {
		return nil, &integration.UnsupportedPlatformError{Platform: platform}
	}
	return s.registry.Adapter(platform, integration.Credentials(creds))
}

// Connect performs the platform handshake, seals the credentials and upserts
// the store on (owner, platform, external store id)
func (s *StoreService) Connect(ctx context.Context, ownerID uuid.UUID, req ConnectRequest) (*ConnectResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "StoreService", "Connect",
		telemetry.WithAttribute(telemetry.SpanAttrOwnerID, ownerID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPlatform, req.Platform),
	)
	defer span.End()

	adapter, err := s.resolveAdapter(req.Platform, req.Credentials)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	platform := adapter.Platform()

	conn, err := adapter.Connect(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Info("Platform handshake failed",
			zap.String("owner_id", ownerID.String()),
			zap.String("platform", platform.String()),
			zap.Error(err),
		)
		return nil, err
	}

	envelope, err := s.vault.Seal(ctx, integration.Credentials(req.Credentials))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	store, err := integration.NewStore(ownerID, platform, conn, envelope)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.stores.UpsertConnection(ctx, store); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// a reconnect keeps the existing row id, so read back by natural key
	saved, err := s.stores.FindByNaturalKey(ctx, ownerID, platform, conn.ExternalStoreID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.activity.Record(ctx, ownerID, &saved.ID, integration.ActivityStoreConnected, map[string]any{
		"platform":   platform.String(),
		"store_name": saved.StoreName,
	})

	s.logger.Info("Store connected",
		zap.String("owner_id", ownerID.String()),
		zap.String("store_id", saved.ID.String()),
		zap.String("platform", platform.String()),
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrStoreID, saved.ID.String())
	telemetry.SetOK(span)

	return &ConnectResponse{
		ID:          saved.ID,
		Platform:    saved.Platform,
		StoreName:   saved.StoreName,
		ConnectedAt: saved.ConnectedAt,
		Status:      ConnectionStatusConnected,
	}, nil
}

// List returns the caller's active stores, most recently connected first,
// each with its product count
func (s *StoreService) List(ctx context.Context, ownerID uuid.UUID) ([]StoreResponse, error) {
	stores, err := s.stores.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(stores))
	for i := range stores {
		ids[i] = stores[i].ID
	}
	counts, err := s.products.CountByStores(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]StoreResponse, len(stores))
	for i, st := range stores {
		out[i] = toStoreResponse(integration.StoreSummary{
			ID:           st.ID,
			Platform:     st.Platform,
			StoreName:    st.StoreName,
			StoreURL:     st.StoreURL,
			IsActive:     st.IsActive,
			ConnectedAt:  st.ConnectedAt,
			LastSyncedAt: st.LastSyncedAt,
			SyncStatus:   st.SyncStatus,
			ProductCount: counts[st.ID],
		})
	}
	return out, nil
}

// TestConnection probes the platform without storing anything
func (s *StoreService) TestConnection(ctx context.Context, req TestConnectionRequest) (*TestConnectionResponse, error) {
	adapter, err := s.resolveAdapter(req.Platform, req.Credentials)
	if err != nil {
		return nil, err
	}

	check := adapter.TestConnection(ctx)
	return &TestConnectionResponse{
		OK:        check.OK,
		Message:   check.Message,
		LatencyMs: check.Latency.Milliseconds(),
	}, nil
}

// UpdateProduct pushes a partial update to the platform and stores the
// product the platform returns
func (s *StoreService) UpdateProduct(ctx context.Context, ownerID, storeID uuid.UUID, externalID string, req UpdateProductRequest) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "StoreService", "UpdateProduct",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, storeID.String()),
	)
	defer span.End()

	store, err := s.stores.FindByIDForOwner(ctx, storeID, ownerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	creds, err := s.vault.Open(ctx, store.CredentialEnvelope)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	adapter, err := s.registry.Adapter(store.Platform, creds)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	update := req.toDomain()
	product, err := adapter.UpdateProduct(ctx, externalID, update)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.products.Upsert(ctx, store.ID, *product, time.Now().UTC()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.activity.Record(ctx, ownerID, &store.ID, integration.ActivityProductUpdated, map[string]any{
		"product_id": product.ExternalID,
		"fields":     updatedFields(update),
	})
	telemetry.SetOK(span)

	return toProductResponse(product), nil
}

func updatedFields(u integration.ProductUpdate) []string {
	fields := make([]string, 0, 3)
	if u.Tags != nil {
		fields = append(fields, "tags")
	}
	if u.Title != nil {
		fields = append(fields, "title")
	}
	if u.Status != nil {
		fields = append(fields, "status")
	}
	return fields
}

// ListActivity returns the newest activity entries of a store the caller owns
func (s *StoreService) ListActivity(ctx context.Context, ownerID, storeID uuid.UUID, limit int) ([]ActivityResponse, error) {
	if _, err := s.stores.FindByIDForOwner(ctx, storeID, ownerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultActivityLimit
	}

	entries, err := s.history.ListByStore(ctx, ownerID, storeID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ActivityResponse, len(entries))
	for i, e := range entries {
		out[i] = toActivityResponse(e)
	}
	return out, nil
}
