package handler

import (
	"errors"
	"net/http"
	"sync"

	"iot-fleet-backend/internal/repository"
	"iot-fleet-backend/internal/service"
	"iot-fleet-backend/internal/tail"
	"iot-fleet-backend/pkg/utils"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BuildLogHandler struct {
	buildLogService *service.BuildLogService
	tails           *tail.Registry
}

func NewBuildLogHandler(buildLogService *service.BuildLogService, tails *tail.Registry) *BuildLogHandler {
	return &BuildLogHandler{
		buildLogService: buildLogService,
		tails:           tails,
	}
}

// List returns the owner's recent builds
// GET /api/build/logs
func (h *BuildLogHandler) List(c *gin.Context) {
	owner := c.GetString("owner")

	summaries, err := h.buildLogService.List(c.Request.Context(), owner)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list build logs")
		return
	}
	utils.SuccessResponse(c, summaries)
}

// Append records one build log line on behalf of the build driver
// POST /api/build/log
func (h *BuildLogHandler) Append(c *gin.Context) {
	owner := c.GetString("owner")

	var req struct {
		BuildID  string `json:"build_id" binding:"required"`
		UDID     string `json:"udid"`
		Message  string `json:"message" binding:"required"`
		Contents string `json:"contents"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	h.buildLogService.Append(c.Request.Context(), req.BuildID, owner, req.UDID, req.Message, req.Contents)
	utils.MessageResponse(c, "Log entry recorded")
}

// Fetch returns one build's log record and file contents
// GET /api/build/log/:build_id
func (h *BuildLogHandler) Fetch(c *gin.Context) {
	buildID := c.Param("build_id")

	record, contents, err := h.buildLogService.Fetch(c.Request.Context(), buildID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "build log not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch build log")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"log":      record,
		"contents": contents,
	})
}

// Tail streams a build's log lines to the viewer over SSE
// GET /api/build/log/:build_id/tail
func (h *BuildLogHandler) Tail(c *gin.Context) {
	buildID := c.Param("build_id")
	owner := c.GetString("owner")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	viewerID := uuid.New().String()
	viewer := newSSEViewer(c.Writer)

	onError := func(description string) {
		// A watch error is reported in-stream; the connection stays up.
		viewer.sendEvent("error", description)
	}

	ctx := c.Request.Context()
	if err := h.tails.Attach(ctx, buildID, owner, viewerID, viewer, onError); err != nil {
		return
	}
	defer h.tails.Detach(viewerID)

	<-ctx.Done()
}

// sseViewer relays tail lines as server-sent events. Send is called
// from the follower goroutine, so writes are serialized.
type sseViewer struct {
	mu     sync.Mutex
	writer gin.ResponseWriter
}

func newSSEViewer(writer gin.ResponseWriter) *sseViewer {
	return &sseViewer{writer: writer}
}

func (v *sseViewer) Send(line string) error {
	return v.sendEvent("log", line)
}

func (v *sseViewer) sendEvent(event, data string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := sse.Encode(v.writer, sse.Event{Event: event, Data: data}); err != nil {
		return err
	}
	v.writer.Flush()
	return nil
}
