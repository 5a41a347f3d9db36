package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/http/response"
	"github.com/yungbote/vinoplan-backend/internal/platform/apierr"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

type WarmupHandler struct {
	log    *logger.Logger
	warmup services.WarmupService
}

func NewWarmupHandler(log *logger.Logger, warmup services.WarmupService) *WarmupHandler {
	return &WarmupHandler{log: log.With("handler", "WarmupHandler"), warmup: warmup}
}

// POST /api/warmup/trigger
func (h *WarmupHandler) Trigger(c *gin.Context) {
	out, err := h.warmup.Trigger(c.Request.Context())
	if err != nil {
		h.log.Error("warmup trigger failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, out)
}

// GET /api/warmup/status?id=
func (h *WarmupHandler) Status(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("id"))
	id, err := uuid.Parse(raw)
	if raw == "" || err != nil {
		response.RespondDomainError(c, apierr.BadRequest("invalid_instance_id", errors.New("id query parameter must be a warmup instance id")))
		return
	}
	st, err := h.warmup.Status(c.Request.Context(), id)
	if errors.Is(err, services.ErrWarmupNotFound) {
		response.RespondDomainError(c, apierr.NotFound("warmup_not_found", err))
		return
	}
	if err != nil {
		h.log.Error("warmup status failed", "instance_id", id, "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, st)
}
