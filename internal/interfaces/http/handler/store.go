package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/jiaaaaa1/cozy-commerce/internal/application/integration"
	"github.com/jiaaaaa1/cozy-commerce/internal/interfaces/http/middleware"
)

// StoreService is the part of the application store service used here
type StoreService interface {
	Connect(ctx context.Context, ownerID uuid.UUID, req integrationapp.ConnectRequest) (*integrationapp.ConnectResponse, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]integrationapp.StoreResponse, error)
	TestConnection(ctx context.Context, req integrationapp.TestConnectionRequest) (*integrationapp.TestConnectionResponse, error)
	UpdateProduct(ctx context.Context, ownerID, storeID uuid.UUID, externalID string, req integrationapp.UpdateProductRequest) (*integrationapp.ProductResponse, error)
	ListActivity(ctx context.Context, ownerID, storeID uuid.UUID, limit int) ([]integrationapp.ActivityResponse, error)
}

// SyncService runs a catalog sync on request
type SyncService interface {
	Sync(ctx context.Context, storeID, ownerID uuid.UUID) (*integrationapp.SyncResult, error)
}

// StoreHandler serves the /stores endpoints
type StoreHandler struct {
	BaseHandler
	stores StoreService
	syncer SyncService
}

// NewStoreHandler creates a new StoreHandler
func NewStoreHandler(stores StoreService, syncer SyncService) *StoreHandler {
	return &StoreHandler{stores: stores, syncer: syncer}
}

// List handles GET /stores
func (h *StoreHandler) List(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	stores, err := h.stores.List(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stores)
}

// Connect handles POST /stores/connect
func (h *StoreHandler) Connect(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req integrationapp.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	resp, err := h.stores.Connect(c.Request.Context(), ownerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// TestConnection handles POST /stores/test-connection
func (h *StoreHandler) TestConnection(c *gin.Context) {
	if _, ok := h.ownerID(c); !ok {
		return
	}

	var req integrationapp.TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	resp, err := h.stores.TestConnection(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Sync handles POST /stores/:storeId/sync
func (h *StoreHandler) Sync(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	storeID, ok := h.uuidParam(c, "storeId")
	if !ok {
		return
	}

	result, err := h.syncer.Sync(c.Request.Context(), storeID, ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// UpdateProduct handles PUT /stores/:storeId/products/:productId
func (h *StoreHandler) UpdateProduct(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	storeID, ok := h.uuidParam(c, "storeId")
	if !ok {
		return
	}

	var req integrationapp.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	product, err := h.stores.UpdateProduct(c.Request.Context(), ownerID, storeID, c.Param("productId"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ListActivity handles GET /stores/:storeId/activity?limit=N
func (h *StoreHandler) ListActivity(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	storeID, ok := h.uuidParam(c, "storeId")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "limit must be a number")
			return
		}
		limit = n
	}

	entries, err := h.stores.ListActivity(c.Request.Context(), ownerID, storeID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}
