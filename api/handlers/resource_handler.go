package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/internal/domain"
	"go.uber.org/zap"
)

// ResourceHandler handles metadata and selection requests
type ResourceHandler struct {
	orch   *app.Orchestrator
	logger *zap.Logger
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(orch *app.Orchestrator, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{
		orch:   orch,
		logger: logger,
	}
}

// FetchRequest represents a request to load a resource
type FetchRequest struct {
	URL string `json:"url"`
}

// FormatRequest represents a format choice
type FormatRequest struct {
	FormatID string `json:"formatId" binding:"required"`
}

// FilterRequest represents a container filter change
type FilterRequest struct {
	Ext string `json:"ext"`
}

// FormatView is a format variant with its picker label
type FormatView struct {
	domain.FormatVariant
	Label string `json:"label"`
}

// FormatsResponse lists the variants offered under a filter, progressive first
type FormatsResponse struct {
	Filter      string       `json:"filter"`
	Restricted  bool         `json:"restricted"`
	Progressive []FormatView `json:"progressive"`
	Other       []FormatView `json:"other"`
	Default     *FormatView  `json:"default,omitempty"`
}

// Fetch handles POST /api/v1/resource
func (h *ResourceHandler) Fetch(c *gin.Context) {
	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.orch.FetchResource(c.Request.Context(), req.URL)
	if err != nil {
		h.logger.Warn("Failed to fetch resource", zap.String("url", req.URL), zap.Error(err))
		abortWithError(c, err)
		return
	}
	if res == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Get handles GET /api/v1/resource
func (h *ResourceHandler) Get(c *gin.Context) {
	res := h.orch.Resource()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no resource loaded"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Formats handles GET /api/v1/resource/formats
func (h *ResourceHandler) Formats(c *gin.Context) {
	res := h.orch.Resource()
	if res == nil {
		abortWithError(c, domain.ErrNoResource)
		return
	}

	ext := strings.ToLower(c.Query("ext"))
	if ext == "" {
		ext = h.orch.Filter()
	}
	if !domain.ValidFilter(ext) {
		abortWithError(c, fmt.Errorf("%w: %s", domain.ErrInvalidFilter, ext))
		return
	}

	locator, formats := res.Locator, res.Formats
	if memberID := c.Query("member"); memberID != "" {
		if !res.IsCollection() {
			abortWithError(c, domain.ErrNotCollection)
			return
		}
		member, ok := res.Member(memberID)
		if !ok {
			abortWithError(c, fmt.Errorf("%w: %s", domain.ErrUnknownMember, memberID))
			return
		}
		locator, formats = member.Locator, member.Formats
	} else if res.IsCollection() {
		abortWithError(c, domain.ErrNotSingle)
		return
	}

	groups := domain.ClassifyProgressive(domain.FilterByExt(formats, ext))
	response := FormatsResponse{
		Filter:      ext,
		Restricted:  h.orch.IsRestricted(locator) || h.orch.IsRestricted(res.Locator),
		Progressive: formatViews(groups.Progressive),
		Other:       formatViews(groups.Other),
	}
	if f, ok := groups.Default(); ok {
		response.Default = &FormatView{FormatVariant: f, Label: f.Label()}
	}

	c.JSON(http.StatusOK, response)
}

// SetFilter handles PUT /api/v1/filter
func (h *ResourceHandler) SetFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orch.SetFilter(req.Ext); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filter": h.orch.Filter()})
}

// SelectFormat handles PUT /api/v1/format
func (h *ResourceHandler) SelectFormat(c *gin.Context) {
	var req FormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orch.SelectFormat(req.FormatID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formatId": req.FormatID})
}

// ToggleMember handles POST /api/v1/selection/:memberId/toggle
func (h *ResourceHandler) ToggleMember(c *gin.Context) {
	memberID := c.Param("memberId")

	selected, err := h.orch.ToggleMember(memberID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"memberId":      memberID,
		"selected":      selected,
		"selectedCount": h.orch.SelectedCount(),
	})
}

// SetMemberFormat handles PUT /api/v1/selection/:memberId/format
func (h *ResourceHandler) SetMemberFormat(c *gin.Context) {
	memberID := c.Param("memberId")

	var req FormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orch.SetFormat(memberID, req.FormatID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"memberId": memberID, "formatId": req.FormatID})
}

// State handles GET /api/v1/state
func (h *ResourceHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Snapshot())
}

func formatViews(formats []domain.FormatVariant) []FormatView {
	views := make([]FormatView, 0, len(formats))
	for _, f := range formats {
		views = append(views, FormatView{FormatVariant: f, Label: f.Label()})
	}
	return views
}
