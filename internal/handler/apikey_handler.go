package handler

import (
	"net/http"

	"iot-fleet-backend/internal/models"
	"iot-fleet-backend/internal/repository"
	"iot-fleet-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	apiKeyRepo *repository.APIKeyRepository
	auditRepo  *repository.AuditRepository
}

func NewAPIKeyHandler(apiKeyRepo *repository.APIKeyRepository, auditRepo *repository.AuditRepository) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyRepo: apiKeyRepo,
		auditRepo:  auditRepo,
	}
}

// Create generates a new API key for the authenticated owner. The
// plain key is returned exactly once.
// POST /api/apikeys
func (h *APIKeyHandler) Create(c *gin.Context) {
	owner := c.GetString("owner")

	var req struct {
		Alias string `json:"alias"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	plainKey := utils.TimestampToken()
	key, err := h.apiKeyRepo.CreateAPIKey(owner, plainKey, req.Alias)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	h.auditRepo.Log(owner, "API key created: "+req.Alias)

	utils.SuccessResponse(c, models.APIKeyResponse{
		ID:        key.ID,
		Owner:     key.Owner,
		APIKey:    plainKey,
		Alias:     key.Alias,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
	})
}

// List returns the owner's API keys (hashes only, never plain keys)
// GET /api/apikeys
func (h *APIKeyHandler) List(c *gin.Context) {
	owner := c.GetString("owner")

	keys, err := h.apiKeyRepo.ListAPIKeys(owner)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list API keys")
		return
	}
	utils.SuccessResponse(c, keys)
}

// Revoke deactivates one of the owner's API keys
// DELETE /api/apikeys/:id
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	owner := c.GetString("owner")

	var req struct {
		ID uint `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.apiKeyRepo.RevokeAPIKey(owner, req.ID); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "API key not found")
		return
	}

	h.auditRepo.Log(owner, "API key revoked")
	utils.MessageResponse(c, "API key revoked")
}
