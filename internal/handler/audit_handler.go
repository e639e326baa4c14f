package handler

import (
	"net/http"

	"iot-fleet-backend/internal/repository"
	"iot-fleet-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditRepo *repository.AuditRepository
}

func NewAuditHandler(auditRepo *repository.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// Fetch returns the owner's latest audit entries
// GET /api/audit
func (h *AuditHandler) Fetch(c *gin.Context) {
	owner := c.GetString("owner")

	entries, err := h.auditRepo.Fetch(owner)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch audit log")
		return
	}
	utils.SuccessResponse(c, entries)
}
