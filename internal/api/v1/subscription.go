package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/planpilot/planpilot/internal/api/dto"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/service"
	"github.com/planpilot/planpilot/internal/types"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, log: log}
}

// CreateSubscription subscribes the authenticated caller to a plan.
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	// Non-admins may only subscribe themselves.
	ctx := c.Request.Context()
	if req.UserID == "" {
		req.UserID = types.GetUserID(ctx)
	}
	if req.UserID != types.GetUserID(ctx) && !types.IsAdmin(ctx) {
		c.Error(ierr.NewError("cannot create subscription for another user").
			WithHint("Only administrators may subscribe other users").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	resp, err := h.service.CreateSubscription(ctx, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetSubscription returns the caller's active subscription.
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.service.GetActiveSubscription(ctx, types.GetUserID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChangePlan moves the caller's active subscription to a new plan.
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.ChangePlan(ctx, types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelSubscription cancels the caller's active subscription.
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.service.CancelActiveSubscription(ctx, types.GetUserID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
