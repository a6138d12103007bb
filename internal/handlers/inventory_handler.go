package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopify-pricing-service/internal/middleware"
	"shopify-pricing-service/internal/repository"
	"shopify-pricing-service/internal/services"
)

// InventoryHandler handles inventory HTTP requests
type InventoryHandler struct {
	inventoryService *services.InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// ListInventory lists a shop's inventory items with pagination
// @Summary List inventory items
// @Tags inventory
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Router /api/v1/inventory [get]
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.inventoryService.List(c.Request.Context(), shopDomain, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ListLowStock lists items at or below their low-stock threshold
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	items, err := h.inventoryService.ListLowStock(c.Request.Context(), shopDomain)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// ListAlerts lists a shop's stock alerts, newest first
func (h *InventoryHandler) ListAlerts(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	alerts, total, err := h.inventoryService.ListAlerts(c.Request.Context(), shopDomain, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// SyncInventory pulls the shop's catalog from Shopify
// @Summary Sync the local catalog mirror
// @Tags inventory
// @Produce json
// @Router /api/v1/inventory/sync [post]
func (h *InventoryHandler) SyncInventory(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	synced, err := h.inventoryService.SyncFromShopify(c.Request.Context(), shopDomain)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"synced": synced,
	})
}

// UpdateThreshold sets or clears an item's low-stock threshold
func (h *InventoryHandler) UpdateThreshold(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}

	var req struct {
		LowStockThreshold *int `json:"lowStockThreshold"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.inventoryService.UpdateThreshold(c.Request.Context(), shopDomain, id, req.LowStockThreshold); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                id,
		"lowStockThreshold": req.LowStockThreshold,
	})
}

// UpdateItemPrices changes one item's prices upstream and locally
func (h *InventoryHandler) UpdateItemPrices(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}

	var req services.UpdatePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.inventoryService.UpdateItemPrices(c.Request.Context(), shopDomain, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}
