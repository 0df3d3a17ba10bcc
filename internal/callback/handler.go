package callback

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wxbridge/internal/logger"
	apperrors "wxbridge/pkg/errors"
)

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes mounts the callback endpoints. The group carries
// whatever middleware the app attaches (rate limiting in particular;
// remote endpoints are less trusted than the platform).
func (h *Handler) RegisterRoutes(router *gin.Engine, middleware ...gin.HandlerFunc) {
	group := router.Group("/callback", middleware...)
	group.POST("/:openid", h.PostResult)
	group.POST("/:openid/stream", h.PostStreamChunk)
}

// PostResult godoc: receives the final result of a forwarded task and
// pushes it to the user.
func (h *Handler) PostResult(c *gin.Context) {
	openID := c.Param("openid")

	var result Result
	if err := c.ShouldBindJSON(&result); err != nil {
		appErr := apperrors.ErrMalformedRequest.WithCause(err)
		c.JSON(appErr.Status, apperrors.ToErrorResponse(appErr))
		return
	}

	h.logger.InfowCtx(c.Request.Context(), "Callback received",
		"openid", openID,
		"success", result.Success,
	)

	if err := h.service.OnResult(c.Request.Context(), openID, result); err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Callback delivery failed", "openid", openID, "error", err)
		c.JSON(apperrors.ToHTTPStatus(err), gin.H{"ok": false, "error": "failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PostStreamChunk acknowledges intermediate chunks and pushes the
// final one.
func (h *Handler) PostStreamChunk(c *gin.Context) {
	openID := c.Param("openid")

	var chunk StreamChunk
	if err := c.ShouldBindJSON(&chunk); err != nil {
		appErr := apperrors.ErrMalformedRequest.WithCause(err)
		c.JSON(appErr.Status, apperrors.ToErrorResponse(appErr))
		return
	}

	if !chunk.Done {
		if _, err := h.service.OnStreamChunk(c.Request.Context(), openID, chunk); err != nil {
			c.JSON(apperrors.ToHTTPStatus(err), gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "buffered": true})
		return
	}

	pushed, err := h.service.OnStreamChunk(c.Request.Context(), openID, chunk)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Final stream chunk delivery failed", "openid", openID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": pushed})
}
