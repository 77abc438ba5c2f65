package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/planpilot/planpilot/internal/api/cron"
	v1 "github.com/planpilot/planpilot/internal/api/v1"
	"github.com/planpilot/planpilot/internal/auth"
	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/ratelimit"
	"github.com/planpilot/planpilot/internal/rest/middleware"
	"github.com/planpilot/planpilot/internal/service"
)

// Handlers collects the HTTP handlers wired into the router.
type Handlers struct {
	Auth             *v1.AuthHandler
	Plan             *v1.PlanHandler
	Subscription     *v1.SubscriptionHandler
	SubscriptionCron *cron.SubscriptionCronHandler
}

// NewRouter builds the gin engine with the full middleware chain and all
// route groups.
func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	log *logger.Logger,
	provider *auth.Provider,
	authService service.AuthService,
	limiter *ratelimit.Limiter,
) *gin.Engine {
	if cfg.Deployment.Mode == config.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := router.Group("/v1")
	if cfg.RateLimit.Enabled {
		public.Use(middleware.RateLimitMiddleware(limiter))
	}

	// Credential endpoints carry an extra in-process guard that keeps
	// throttling brute-force attempts even during a store outage.
	authLimiter := ratelimit.NewLocalLimiter(1, 10, 3*time.Minute)
	authGroup := public.Group("/auth")
	authGroup.Use(middleware.LocalRateLimitMiddleware(authLimiter))
	{
		authGroup.POST("/signup", handlers.Auth.Signup)
		authGroup.POST("/login", handlers.Auth.Login)
	}

	private := public.Group("")
	private.Use(middleware.AuthMiddleware(provider, authService))
	{
		plans := private.Group("/plans")
		{
			plans.GET("", handlers.Plan.ListPlans)
			plans.GET("/:id", handlers.Plan.GetPlan)

			adminPlans := plans.Group("")
			adminPlans.Use(middleware.AdminOnly())
			{
				adminPlans.POST("", handlers.Plan.CreatePlan)
				adminPlans.PUT("/:id", handlers.Plan.UpdatePlan)
				adminPlans.DELETE("/:id", handlers.Plan.DeletePlan)
			}
		}

		subscriptions := private.Group("/subscriptions")
		{
			subscriptions.POST("", handlers.Subscription.CreateSubscription)
			subscriptions.GET("/current", handlers.Subscription.GetSubscription)
			subscriptions.PUT("/current/plan", handlers.Subscription.ChangePlan)
			subscriptions.DELETE("/current", handlers.Subscription.CancelSubscription)
		}
	}

	// Cron endpoints are hit by the external scheduler, not end users, so
	// they sit outside the rate limited and authenticated groups.
	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/subscriptions/expire", handlers.SubscriptionCron.ExpireSubscriptions)
	}

	return router
}
