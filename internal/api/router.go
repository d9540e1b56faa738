package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"checkin-backend/config"
	"checkin-backend/internal/checkin"
	"checkin-backend/internal/mw"
	"checkin-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(svc *checkin.Service, s store.Store, webpushOptions *webpush.Options, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(svc, s, webpushOptions)

	limitPerSec := cfg.Server.RateLimitPerSec
	if limitPerSec <= 0 {
		limitPerSec = 10
	}
	rateLimiter := mw.RateLimiter(rate.Limit(limitPerSec), 5, cfg.Server.RequestIPHeader)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	auth := mw.Auth(cfg.Auth.JWTSecret)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Public read-only endpoints
		api.GET("/clusters", caching, handler.GetClusters)
		api.GET("/config", caching, handler.GetConfig)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)

		// Identity-gated endpoints
		authed := api.Group("")
		authed.Use(auth)
		{
			authed.POST("/checkin/:card", handler.PostCheckIn)
			authed.POST("/checkout", handler.PostCheckOut)
			authed.POST("/admin/checkout/:person_id", handler.PostForceCheckOut)
			authed.GET("/status", handler.GetStatus)
			authed.GET("/history/:login", handler.GetHistory)
			authed.GET("/usages", handler.GetUsages)
			authed.PUT("/config", handler.PutConfig)
		}
	}

	return r
}
