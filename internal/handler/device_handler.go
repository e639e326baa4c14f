package handler

import (
	"net/http"
	"strings"

	"iot-fleet-backend/internal/service"
	"iot-fleet-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	registrationService *service.RegistrationService
	firmwareService     *service.FirmwareService
}

func NewDeviceHandler(registrationService *service.RegistrationService, firmwareService *service.FirmwareService) *DeviceHandler {
	return &DeviceHandler{
		registrationService: registrationService,
		firmwareService:     firmwareService,
	}
}

// Register handles device registration and check-in
// POST /device/register
func (h *DeviceHandler) Register(c *gin.Context) {
	apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))

	var req service.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result := h.registrationService.Register(c.Request.Context(), &req, apiKey)
	c.JSON(http.StatusOK, result)
}

// firmwareEnvelope tolerates both the flat payload and the
// registration-wrapped payload older firmwares send.
type firmwareEnvelope struct {
	service.FirmwareRequest
	Registration *service.FirmwareRequest `json:"registration"`
}

// Firmware handles a firmware fetch: direct stream, multi-file
// bundle, deferred OTT token, or structured failure
// POST /device/firmware
func (h *DeviceHandler) Firmware(c *gin.Context) {
	apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))

	var envelope firmwareEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := envelope.FirmwareRequest
	if envelope.Registration != nil {
		req = *envelope.Registration
	}

	delivery := h.firmwareService.Firmware(c.Request.Context(), &req, apiKey)
	renderDelivery(c, delivery)
}

// OTTUpdate redeems a one-time token without an API key
// GET /device/firmware/ott?ott=<token>
func (h *DeviceHandler) OTTUpdate(c *gin.Context) {
	token := c.Query("ott")
	if token == "" {
		utils.StatusResponse(c, "OTT_UPDATE_NOT_FOUND")
		return
	}

	delivery := h.firmwareService.OTTUpdate(c.Request.Context(), token)
	renderDelivery(c, delivery)
}

// Edit applies an operator-side partial device update
// PUT /api/device
func (h *DeviceHandler) Edit(c *gin.Context) {
	owner := c.GetString("owner")

	var changes service.DeviceChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result := h.registrationService.Edit(c.Request.Context(), owner, &changes)
	if !result.Success {
		utils.StatusResponse(c, result.Status)
		return
	}
	utils.SuccessResponse(c, result)
}

func renderDelivery(c *gin.Context, delivery *service.Delivery) {
	if !delivery.Success {
		utils.StatusResponse(c, delivery.Status)
		return
	}

	switch {
	case delivery.OTT != "":
		c.JSON(http.StatusOK, gin.H{"ott": delivery.OTT})
	case delivery.Payload != nil:
		c.Data(http.StatusOK, "application/octet-stream", delivery.Payload)
	case delivery.Files != nil:
		c.JSON(http.StatusOK, gin.H{
			"type":  "file",
			"files": delivery.Files,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  delivery.Status,
		})
	}
}
