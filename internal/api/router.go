package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gym-contracts-backend/internal/mw"
)

// RouterConfig holds the limits applied to the /api group.
type RouterConfig struct {
	RateLimit float64
	Burst     int
	CacheTTL  time.Duration
	// Responses is the GET response cache. When nil the router makes its
	// own; pass one to invalidate it from outside (see InvalidateContract).
	Responses *cache.Cache
}

// NewResponseCache builds a response cache cleaned up every two TTLs.
func NewResponseCache(ttl time.Duration) *cache.Cache {
	return cache.New(ttl, 2*ttl)
}

// NewRouter creates and configures a new Gin router.
func NewRouter(life Lifecycle, subs Subscriptions, webpushOptions *webpush.Options, cfg RouterConfig, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.Recovery(log), mw.RequestLogger(log))

	// Mutations invalidate explicitly.
	cacheStore := cfg.Responses
	if cacheStore == nil {
		cacheStore = NewResponseCache(cfg.CacheTTL)
	}
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	handler := NewHandler(life, subs, webpushOptions, cacheStore, log)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API group
	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimit), cfg.Burst))
	{
		api.GET("/contracts/:id", caching, handler.GetContract)
		api.GET("/contracts/:id/suspensions", caching, handler.ListSuspensions)
		api.GET("/clients/:client_id/contracts", caching, handler.ListClientContracts)

		api.POST("/contracts/:id/suspensions", handler.ScheduleSuspension)
		api.POST("/contracts/:id/suspensions/:suspension_id/stop", handler.StopSuspension)
		api.POST("/contracts/:id/cancel", handler.CancelContract)
		api.POST("/clients/:client_id/enrollments/validate", handler.ValidateEnrollment)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
