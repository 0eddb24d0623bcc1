package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"bins-status-backend/config"
	"bins-status-backend/internal/coordinator"
	"bins-status-backend/internal/mw"
	"bins-status-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(appCtx context.Context, cfg *config.Config, s store.Store, resolver Resolver, manager *coordinator.Manager, webpushOptions *webpush.Options, loc *time.Location) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(appCtx, s, resolver, manager, webpushOptions, loc)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Setup flow
		api.POST("/addresses", handler.RegisterAddress)
		api.POST("/addresses/select", handler.SelectAddress)
		api.GET("/addresses", handler.ListAddresses)
		api.DELETE("/addresses/:id", handler.DeleteAddress)

		// Collection data (cached reads; the poller refreshes on its own
		// schedule, responses only change when a cycle completes)
		api.GET("/addresses/:id/collections", caching, handler.GetCollections)
		api.GET("/addresses/:id/sensors", caching, handler.GetSensors)

		// Push subscriptions
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
