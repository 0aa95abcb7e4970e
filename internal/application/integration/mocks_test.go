package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
)

// MockStoreRepository is a mock implementation of StoreRepository
type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) FindByIDForOwner(ctx context.Context, id, ownerID uuid.UUID) (*integration.Store, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Store), args.Error(1)
}

func (m *MockStoreRepository) FindByNaturalKey(ctx context.Context, ownerID uuid.UUID, platform integration.PlatformCode, externalStoreID string) (*integration.Store, error) {
	args := m.Called(ctx, ownerID, platform, externalStoreID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Store), args.Error(1)
}

func (m *MockStoreRepository) UpsertConnection(ctx context.Context, store *integration.Store) error {
	return m.Called(ctx, store).Error(0)
}

func (m *MockStoreRepository) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID) ([]integration.Store, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Store), args.Error(1)
}

func (m *MockStoreRepository) ListDueForSync(ctx context.Context, syncedBefore time.Time, limit int) ([]integration.Store, error) {
	args := m.Called(ctx, syncedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Store), args.Error(1)
}

func (m *MockStoreRepository) TryStartSync(ctx context.Context, id uuid.UUID, startedAt, staleBefore time.Time) (bool, error) {
	args := m.Called(ctx, id, startedAt, staleBefore)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoreRepository) FinishSync(ctx context.Context, id uuid.UUID, status integration.SyncStatus, lastSyncedAt *time.Time) error {
	return m.Called(ctx, id, status, lastSyncedAt).Error(0)
}

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) UpsertBatch(ctx context.Context, storeID uuid.UUID, products []integration.CanonicalProduct, syncedAt time.Time) error {
	return m.Called(ctx, storeID, products, syncedAt).Error(0)
}

func (m *MockProductRepository) Upsert(ctx context.Context, storeID uuid.UUID, product integration.CanonicalProduct, syncedAt time.Time) error {
	return m.Called(ctx, storeID, product, syncedAt).Error(0)
}

func (m *MockProductRepository) CountByStores(ctx context.Context, storeIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, storeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int64), args.Error(1)
}

func (m *MockProductRepository) FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*integration.CanonicalProduct, error) {
	args := m.Called(ctx, storeID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CanonicalProduct), args.Error(1)
}

// MockActivityLogRepository is a mock implementation of ActivityLogRepository
type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Append(ctx context.Context, entry *integration.ActivityLogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockActivityLogRepository) ListByStore(ctx context.Context, ownerID, storeID uuid.UUID, limit int) ([]integration.ActivityLogEntry, error) {
	args := m.Called(ctx, ownerID, storeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ActivityLogEntry), args.Error(1)
}

// MockVault is a mock implementation of CredentialVault
type MockVault struct {
	mock.Mock
}

func (m *MockVault) Seal(ctx context.Context, creds integration.Credentials) ([]byte, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockVault) Open(ctx context.Context, data []byte) (integration.Credentials, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(integration.Credentials), args.Error(1)
}

// MockAdapter is a mock implementation of PlatformAdapter
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Platform() integration.PlatformCode {
	return integration.PlatformCodeShopify
}

func (m *MockAdapter) Connect(ctx context.Context) (*integration.ConnectionResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ConnectionResult), args.Error(1)
}

func (m *MockAdapter) TestConnection(ctx context.Context) integration.ConnectionCheck {
	return m.Called(ctx).Get(0).(integration.ConnectionCheck)
}

func (m *MockAdapter) FetchCatalog(ctx context.Context, opts integration.FetchOptions) ([]integration.CanonicalProduct, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CanonicalProduct), args.Error(1)
}

func (m *MockAdapter) UpdateProduct(ctx context.Context, productID string, update integration.ProductUpdate) (*integration.CanonicalProduct, error) {
	args := m.Called(ctx, productID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CanonicalProduct), args.Error(1)
}

func (m *MockAdapter) Normalize(raw []byte) (*integration.CanonicalProduct, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CanonicalProduct), args.Error(1)
}

// recordedActivity is one captured Record call
type recordedActivity struct {
	OwnerID uuid.UUID
	StoreID *uuid.UUID
	Action  integration.ActivityAction
	Details map[string]any
}

// fakeRecorder captures activity without storage
type fakeRecorder struct {
	entries []recordedActivity
}

func (f *fakeRecorder) Record(_ context.Context, ownerID uuid.UUID, storeID *uuid.UUID, action integration.ActivityAction, details map[string]any) {
	f.entries = append(f.entries, recordedActivity{OwnerID: ownerID, StoreID: storeID, Action: action, Details: details})
}

func (f *fakeRecorder) actions() []integration.ActivityAction {
	out := make([]integration.ActivityAction, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

// adapterRegistry registers adapter for shopify and counts factory calls
func adapterRegistry(adapter integration.PlatformAdapter, calls *int) *integration.Registry {
	return integration.NewRegistry().Register(integration.PlatformCodeShopify, func(creds integration.Credentials) (integration.PlatformAdapter, error) {
		if calls != nil {
			*calls++
		}
		if creds.Get("access_token") == "" {
			return nil, integration.NewValidationError("access_token", "is required")
		}
		return adapter, nil
	})
}
