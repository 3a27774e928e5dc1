package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crestbooks/reconcile-backend/internal/api/dto"
	"github.com/crestbooks/reconcile-backend/internal/api/middleware"
	"github.com/crestbooks/reconcile-backend/internal/application/service"
	"github.com/crestbooks/reconcile-backend/internal/infrastructure/storage"
)

// ReconciliationsHandler exposes the reconciliation lifecycle over HTTP.
type ReconciliationsHandler struct {
	svc *service.ReconciliationService
}

// NewReconciliationsHandler creates the handler.
func NewReconciliationsHandler(svc *service.ReconciliationService) *ReconciliationsHandler {
	return &ReconciliationsHandler{svc: svc}
}

// Create handles POST /api/reconciliations.
func (h *ReconciliationsHandler) Create(c *gin.Context) {
	var req dto.CreateReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	session, err := h.svc.Create(c.Request.Context(), req.AccountID, req.StatementID, middleware.ActingUserFrom(c))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, dto.FromReconciliation(session, nil))
}

// List handles GET /api/reconciliations?account_id=.
func (h *ReconciliationsHandler) List(c *gin.Context) {
	sessions, err := h.svc.List(c.Request.Context(), c.Query("account_id"))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	out := make([]dto.ReconciliationResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, dto.FromReconciliation(&sessions[i], nil))
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/reconciliations/:id.
func (h *ReconciliationsHandler) Get(c *gin.Context) {
	session, items, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, dto.FromReconciliation(session, items))
}

// AutoMatch handles POST /api/reconciliations/:id/auto-match.
func (h *ReconciliationsHandler) AutoMatch(c *gin.Context) {
	matched, session, err := h.svc.AutoMatch(c.Request.Context(), c.Param("id"), middleware.ActingUserFrom(c))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, dto.AutoMatchResponse{
		MatchedCount:   matched,
		Reconciliation: dto.FromReconciliation(session, nil),
	})
}

// ManualMatch handles POST /api/reconciliations/:id/matches.
func (h *ReconciliationsHandler) ManualMatch(c *gin.Context) {
	var req dto.ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	session, err := h.svc.ManualMatch(c.Request.Context(), c.Param("id"),
		req.StatementLineID, req.BookTransactionID, middleware.ActingUserFrom(c))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, dto.FromReconciliation(session, nil))
}

// Unmatch handles DELETE /api/reconciliations/:id/matches/:itemId.
func (h *ReconciliationsHandler) Unmatch(c *gin.Context) {
	session, err := h.svc.Unmatch(c.Request.Context(), c.Param("id"), c.Param("itemId"), middleware.ActingUserFrom(c))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, dto.FromReconciliation(session, nil))
}

// Suggestions handles GET /api/reconciliations/:id/lines/:lineId/suggestions.
func (h *ReconciliationsHandler) Suggestions(c *gin.Context) {
	suggestions, err := h.svc.SuggestedMatches(c.Request.Context(), c.Param("id"), c.Param("lineId"))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, dto.FromSuggestions(suggestions))
}

// Complete handles POST /api/reconciliations/:id/complete.
func (h *ReconciliationsHandler) Complete(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

// Review handles POST /api/reconciliations/:id/review.
func (h *ReconciliationsHandler) Review(c *gin.Context) {
	h.transition(c, h.svc.Review)
}

// Approve handles POST /api/reconciliations/:id/approve.
func (h *ReconciliationsHandler) Approve(c *gin.Context) {
	h.transition(c, h.svc.Approve)
}

// Delete handles DELETE /api/reconciliations/:id.
func (h *ReconciliationsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.ActingUserFrom(c)); err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.Status(http.StatusNoContent)
}

type transitionFunc = func(ctx context.Context, id, by string) (*storage.BankReconciliation, error)

func (h *ReconciliationsHandler) transition(c *gin.Context, apply transitionFunc) {
	session, err := apply(c.Request.Context(), c.Param("id"), middleware.ActingUserFrom(c))
	if err != nil {
		status, body := dto.MapError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, dto.FromReconciliation(session, nil))
}
