package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/videold-go/internal/app"
	"go.uber.org/zap"
)

// TransferHandler handles transfer requests. Transfers outlive the request that started them,
// so they run under the server's context.
type TransferHandler struct {
	orch    *app.Orchestrator
	baseCtx context.Context
	logger  *zap.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(baseCtx context.Context, orch *app.Orchestrator, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		orch:    orch,
		baseCtx: baseCtx,
		logger:  logger,
	}
}

// StartTransferRequest represents a request to start a single or member transfer
type StartTransferRequest struct {
	MemberID string `json:"memberId,omitempty"`
	FormatID string `json:"formatId,omitempty"`
}

// Start handles POST /api/v1/transfers
func (h *TransferHandler) Start(c *gin.Context) {
	var req StartTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.FormatID != "" {
		var err error
		if req.MemberID != "" {
			err = h.orch.SetFormat(req.MemberID, req.FormatID)
		} else {
			err = h.orch.SelectFormat(req.FormatID)
		}
		if err != nil {
			abortWithError(c, err)
			return
		}
	}

	var (
		transfer *app.Transfer
		err      error
	)
	if req.MemberID != "" {
		transfer, err = h.orch.StartMember(h.baseCtx, req.MemberID)
	} else {
		transfer, err = h.orch.StartSingle(h.baseCtx)
	}
	if err != nil {
		h.logger.Warn("Failed to start transfer", zap.String("member_id", req.MemberID), zap.Error(err))
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, transfer.Session)
}

// StartBatch handles POST /api/v1/batch
func (h *TransferHandler) StartBatch(c *gin.Context) {
	transfer, err := h.orch.StartBatch(h.baseCtx)
	if err != nil {
		h.logger.Warn("Failed to start batch transfer", zap.Error(err))
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, transfer.Session)
}

// Thumbnail handles GET /api/v1/thumbnail
func (h *TransferHandler) Thumbnail(c *gin.Context) {
	thumbnailURL := c.Query("url")
	if thumbnailURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	data, contentType, err := h.orch.Thumbnail(c.Request.Context(), thumbnailURL)
	if err != nil {
		h.logger.Debug("Failed to proxy thumbnail", zap.String("url", thumbnailURL), zap.Error(err))
		abortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, contentType, data)
}
