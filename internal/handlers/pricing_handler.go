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

// PricingHandler handles bulk pricing campaign HTTP requests
type PricingHandler struct {
	pricingService *services.PricingService
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(pricingService *services.PricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// CreateUniformCampaign applies one target price to a list of items
// @Summary Apply a uniform bulk price update
// @Tags bulk-actions
// @Accept json
// @Produce json
// @Param request body services.UniformCampaignRequest true "Campaign"
// @Success 201 {object} services.CampaignResult
// @Router /api/v1/bulk-actions [post]
func (h *PricingHandler) CreateUniformCampaign(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	var req services.UniformCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pricingService.ApplyUniformCampaign(c.Request.Context(), shopDomain, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CreateCalculatedCampaign applies per-item precomputed prices
// @Summary Apply a calculated bulk price update
// @Tags bulk-actions
// @Accept json
// @Produce json
// @Param request body services.CalculatedCampaignRequest true "Campaign"
// @Success 201 {object} services.CampaignResult
// @Router /api/v1/bulk-actions/calculated [post]
func (h *PricingHandler) CreateCalculatedCampaign(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	var req services.CalculatedCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pricingService.ApplyCalculatedCampaign(c.Request.Context(), shopDomain, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CreateRuleCampaign derives prices from an adjustment rule over a scope
// @Summary Apply a rule-based pricing campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param request body services.RuleCampaignRequest true "Campaign"
// @Success 201 {object} services.CampaignResult
// @Router /api/v1/campaigns [post]
func (h *PricingHandler) CreateRuleCampaign(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	var req services.RuleCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pricingService.ApplyRuleCampaign(c.Request.Context(), shopDomain, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// RevertBulkAction restores every item of a campaign to its snapshot
// @Summary Revert a bulk action
// @Tags bulk-actions
// @Produce json
// @Param id path string true "Bulk action ID"
// @Success 200 {object} services.CampaignResult
// @Router /api/v1/bulk-actions/{id}/revert [post]
func (h *PricingHandler) RevertBulkAction(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bulk action ID"})
		return
	}

	result, err := h.pricingService.RevertBulkAction(c.Request.Context(), shopDomain, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListBulkActions lists a shop's campaigns, newest first
func (h *PricingHandler) ListBulkActions(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	actions, total, err := h.pricingService.ListBulkActions(c.Request.Context(), shopDomain, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bulkActions": actions,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// GetBulkAction retrieves one campaign
func (h *PricingHandler) GetBulkAction(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bulk action ID"})
		return
	}

	action, err := h.pricingService.GetBulkAction(c.Request.Context(), shopDomain, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, action)
}

// GetBulkActionItems retrieves the snapshot rows of one campaign
func (h *PricingHandler) GetBulkActionItems(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bulk action ID"})
		return
	}

	items, err := h.pricingService.GetBulkActionItems(c.Request.Context(), shopDomain, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// ListCollections lists the shop's collections for scope building
func (h *PricingHandler) ListCollections(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)

	collections, err := h.pricingService.GetCollections(c.Request.Context(), shopDomain)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"collections": collections,
		"total":       len(collections),
	})
}

// GetCollectionItems returns the local items belonging to one collection
func (h *PricingHandler) GetCollectionItems(c *gin.Context) {
	shopDomain := middleware.GetShopDomain(c)
	collectionID := c.Param("id")

	items, err := h.pricingService.GetCollectionItems(c.Request.Context(), shopDomain, collectionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}
