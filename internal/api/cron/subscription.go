package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/service"
)

// SubscriptionCronHandler handles subscription related cron jobs. The
// endpoints are hit by an external scheduler on a fixed interval (hourly by
// default); the handler itself owns no timer.
type SubscriptionCronHandler struct {
	subscriptionService service.SubscriptionService
	logger              *logger.Logger
}

func NewSubscriptionCronHandler(
	subscriptionService service.SubscriptionService,
	logger *logger.Logger,
) *SubscriptionCronHandler {
	return &SubscriptionCronHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// ExpireSubscriptions sweeps ACTIVE subscriptions past their end date into
// EXPIRED. Per-item failures are reported in the response counts, never as a
// failed batch; overdue items left behind are picked up by the next run.
func (h *SubscriptionCronHandler) ExpireSubscriptions(c *gin.Context) {
	h.logger.Infow("starting subscription expiry sweep",
		"time", time.Now().UTC().Format(time.RFC3339))

	resp, err := h.subscriptionService.SweepExpired(c.Request.Context())
	if err != nil {
		h.logger.Errorw("subscription expiry sweep failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed subscription expiry sweep",
		"scanned", resp.Scanned, "expired", resp.Expired, "failed", resp.Failed)
	c.JSON(http.StatusOK, resp)
}
