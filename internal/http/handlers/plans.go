package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/http/response"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/platform/apierr"
	"github.com/yungbote/vinoplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

type PlanHandler struct {
	log       *logger.Logger
	generator services.PlanGenerator
}

func NewPlanHandler(log *logger.Logger, generator services.PlanGenerator) *PlanHandler {
	return &PlanHandler{log: log.With("handler", "PlanHandler"), generator: generator}
}

func callerOf(c *gin.Context) (uuid.UUID, tasting.Tier) {
	caller, ok := ctxutil.GetCaller(c.Request.Context())
	if !ok || caller.Anonymous() {
		return uuid.Nil, tasting.TierAnonymous
	}
	tier, ok := tasting.ParseTier(caller.Tier)
	if !ok {
		tier = tasting.TierFree
	}
	return caller.UserID, tier
}

// POST /api/plans/generate
func (h *PlanHandler) Generate(c *gin.Context) {
	var req tasting.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	userID, tier := callerOf(c)

	res, err := h.generator.Generate(c.Request.Context(), userID, tier, req)
	if err != nil {
		if !errors.Is(err, tasting.ErrValidationRejected) && !errors.Is(err, tasting.ErrQuotaExceeded) {
			h.log.Error("plan generation failed", "tier", tier, "error", err)
		}
		response.RespondDomainError(c, err)
		return
	}
	// Cache hits only carry the id; load the stored plan so every response has a body.
	if res.Plan == nil && res.PlanID != uuid.Nil {
		plan, err := h.generator.GetPlan(c.Request.Context(), res.PlanID)
		if err != nil {
			h.log.Error("load cached plan failed", "plan_id", res.PlanID, "error", err)
			response.RespondDomainError(c, err)
			return
		}
		res.Plan = plan
	}
	response.RespondOK(c, res)
}

// GET /api/plans/:id
func (h *PlanHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, apierr.BadRequest("invalid_plan_id", errors.New("invalid plan id")))
		return
	}
	plan, err := h.generator.GetPlan(c.Request.Context(), id)
	if err != nil {
		h.log.Error("load plan failed", "plan_id", id, "error", err)
		response.RespondDomainError(c, err)
		return
	}
	if plan == nil {
		response.RespondDomainError(c, apierr.NotFound("plan_not_found", errors.New("plan not found")))
		return
	}
	response.RespondOK(c, gin.H{"plan": plan})
}

// GET /api/plans/quota
func (h *PlanHandler) Quota(c *gin.Context) {
	userID, tier := callerOf(c)
	if tier == tasting.TierAnonymous {
		response.RespondOK(c, gin.H{"tier": tier, "allowed": true, "remaining": nil, "limit": nil})
		return
	}
	d, err := h.generator.Quota(c.Request.Context(), userID, tier)
	if err != nil {
		h.log.Error("quota lookup failed", "user_id", userID, "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tier": tier, "allowed": d.Allowed, "remaining": d.Remaining, "limit": d.Limit, "reason": d.Reason})
}
