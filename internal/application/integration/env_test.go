package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jiaaaaa1/cozy-commerce/internal/domain/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/config"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/persistence"
	"github.com/jiaaaaa1/cozy-commerce/internal/infrastructure/vault"
)

var testVaultKey = []byte("0123456789abcdef0123456789abcdef")

// serviceEnv wires both services to an in-memory sqlite database, a real
// vault and a mocked platform adapter
type serviceEnv struct {
	stores   *persistence.GormStoreRepository
	products *persistence.GormProductRepository
	history  *persistence.GormActivityLogRepository
	sealer   *vault.Vault
	adapter  *MockAdapter
	registry *integration.Registry
	recorder *ActivityRecorder
	observer *fakeObserver
	storeSvc *StoreService
	syncSvc  *SyncService
	ownerID  uuid.UUID
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	sealer, err := vault.New(testVaultKey, vault.AlgorithmAESGCM)
	require.NoError(t, err)

	env := &serviceEnv{
		stores:   persistence.NewGormStoreRepository(db.DB),
		products: persistence.NewGormProductRepository(db.DB),
		history:  persistence.NewGormActivityLogRepository(db.DB),
		sealer:   sealer,
		adapter:  new(MockAdapter),
		observer: &fakeObserver{},
		ownerID:  uuid.New(),
	}
	env.registry = adapterRegistry(env.adapter, nil)
	env.recorder = NewActivityRecorder(env.history, 0, nil, nil)
	env.storeSvc = NewStoreService(env.registry, sealer, env.stores, env.products, env.recorder, env.history, nil)
	env.syncSvc = NewSyncService(env.stores, env.products, env.registry, sealer, env.recorder, env.observer, SyncSettings{PageSize: 250, MaxItems: 1000}, nil)
	return env
}

func demoShopRequest() ConnectRequest {
	return ConnectRequest{
		Platform: "shopify",
		Credentials: map[string]string{
			"store_url":    "demo-shop.myshopify.com",
			"access_token": "shpat_demo",
		},
	}
}

func demoShopConnection() *integration.ConnectionResult {
	return &integration.ConnectionResult{
		ExternalStoreID: "7001",
		StoreName:       "Demo Shop",
		StoreURL:        "https://demo-shop.myshopify.com",
	}
}

// connectDemoShop connects the demo store and returns its id
func (e *serviceEnv) connectDemoShop(t *testing.T) uuid.UUID {
	t.Helper()
	e.adapter.On("Connect", mock.Anything).Return(demoShopConnection(), nil).Once()
	resp, err := e.storeSvc.Connect(context.Background(), e.ownerID, demoShopRequest())
	require.NoError(t, err)
	return resp.ID
}

func (e *serviceEnv) storeStatus(t *testing.T, storeID uuid.UUID) integration.SyncStatus {
	t.Helper()
	store, err := e.stores.FindByIDForOwner(context.Background(), storeID, e.ownerID)
	require.NoError(t, err)
	return store.SyncStatus
}

func (e *serviceEnv) actions(t *testing.T, storeID uuid.UUID) []integration.ActivityAction {
	t.Helper()
	entries, err := e.history.ListByStore(context.Background(), e.ownerID, storeID, 100)
	require.NoError(t, err)
	out := make([]integration.ActivityAction, len(entries))
	for i, entry := range entries {
		out[i] = entry.Action
	}
	return out
}

func catalog(ids ...string) []integration.CanonicalProduct {
	out := make([]integration.CanonicalProduct, len(ids))
	for i, id := range ids {
		out[i] = integration.CanonicalProduct{
			ExternalID:        id,
			SKU:               "SKU-" + id,
			Title:             "Product " + id,
			Price:             decimal.RequireFromString("19.99"),
			InventoryQuantity: 5,
			Status:            "active",
			Tags:              []string{"summer"},
			Images:            []integration.ProductImage{},
			PlatformData:      map[string]any{"vendor": "Acme"},
		}
	}
	return out
}

type observedSync struct {
	platform string
	status   string
	products int
}

type fakeObserver struct {
	passes []observedSync
}

func (o *fakeObserver) SyncStarted(platform string) func(status string, products int) {
	return func(status string, products int) {
		o.passes = append(o.passes, observedSync{platform: platform, status: status, products: products})
	}
}

type countingFailures struct {
	actions []string
}

func (c *countingFailures) ActivityWriteFailed(action string) {
	c.actions = append(c.actions, action)
}
