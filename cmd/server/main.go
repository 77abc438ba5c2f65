package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/planpilot/planpilot/internal/api"
	"github.com/planpilot/planpilot/internal/api/cron"
	v1 "github.com/planpilot/planpilot/internal/api/v1"
	"github.com/planpilot/planpilot/internal/auth"
	"github.com/planpilot/planpilot/internal/breaker"
	"github.com/planpilot/planpilot/internal/cache"
	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/kv"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/payment"
	"github.com/planpilot/planpilot/internal/postgres"
	"github.com/planpilot/planpilot/internal/ratelimit"
	"github.com/planpilot/planpilot/internal/redis"
	repo "github.com/planpilot/planpilot/internal/repository/postgres"
	"github.com/planpilot/planpilot/internal/service"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		panic(err)
	}

	redisClient, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	db, err := postgres.NewClient(cfg.Postgres, log)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	store := kv.NewRedisStore(redisClient, log)
	appCache := cache.Initialize(cfg, store, log)

	userRepo := repo.NewUserRepository(db, log)
	planRepo := repo.NewPlanRepository(db, log)
	subRepo := repo.NewSubscriptionRepository(db, log)

	provider := auth.NewProvider(cfg)
	limiter := ratelimit.NewLimiter(store, log, cfg.RateLimit)
	paymentBreaker := breaker.NewBreaker("payment", store, log, cfg.Breaker)

	params := service.ServiceParams{
		Logger:         log,
		Config:         cfg,
		DB:             db,
		UserRepo:       userRepo,
		PlanRepo:       planRepo,
		SubRepo:        subRepo,
		Cache:          appCache,
		Auth:           provider,
		PaymentGateway: payment.NewNoopGateway(log),
		PaymentBreaker: paymentBreaker,
	}

	authService := service.NewAuthService(params)
	planService := service.NewPlanService(params)
	subscriptionService := service.NewSubscriptionService(params)

	handlers := api.Handlers{
		Auth:             v1.NewAuthHandler(authService, log),
		Plan:             v1.NewPlanHandler(planService, log),
		Subscription:     v1.NewSubscriptionHandler(subscriptionService, log),
		SubscriptionCron: cron.NewSubscriptionCronHandler(subscriptionService, log),
	}

	gin.DefaultWriter = log.GetGinLogger()
	router := api.NewRouter(handlers, cfg, log, provider, authService, limiter)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		log.Infow("starting server", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("forced shutdown", "error", err)
	}
}
