package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"device-lending-backend/config"
	"device-lending-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	// Initialize middleware
	limit := rate.Limit(10)
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}
	rateLimiter := mw.RateLimiter(limit, 5, cfg.RequestIPHeader)

	cacheTTL := 1 * time.Minute
	if cfg.CacheTTLSeconds > 0 {
		cacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth", handler.PostAuth)

		api.GET("/resources", caching, handler.GetResources)
		api.POST("/resources", handler.PostResources)
		api.DELETE("/resources", handler.DeleteFreeResources)
		api.GET("/resources/:id", handler.GetResource)
		api.PATCH("/resources/:id", handler.PatchResource)
		api.DELETE("/resources/:id", handler.DeleteResource)
		api.GET("/resources/:id/records", handler.GetResourceRecords)
		api.GET("/resources/:id/action", handler.GetAvailableAction)
		api.POST("/resources/:id/take", handler.TakeResource)
		api.POST("/resources/:id/return", handler.ReturnResource)
		api.GET("/resources/:id/queue", handler.GetQueue)
		api.POST("/resources/:id/queue", handler.Enqueue)
		api.DELETE("/resources/:id/queue", handler.LeaveQueue)

		api.GET("/loans", handler.GetLoans)
		api.GET("/loans/expiring", handler.GetExpiringLoans)

		api.GET("/records/:id", handler.GetRecord)
		api.PATCH("/records/:id", handler.PatchRecord)

		api.POST("/maintenance/purge", handler.PurgeFinishedRecords)

		api.GET("/visitors", handler.GetVisitors)
		api.POST("/visitors", handler.PostVisitors)
		api.GET("/visitors/:email", handler.GetVisitor)
		api.PATCH("/visitors/:email", handler.PatchVisitor)
		api.DELETE("/visitors/:email", handler.DeleteVisitor)
		api.GET("/visitors/:email/taken", handler.GetVisitorTaken)
		api.GET("/visitors/:email/queue", handler.GetVisitorQueue)
		api.GET("/visitors/:email/records", handler.GetVisitorRecords)

		api.GET("/categories", caching, handler.GetCategories)
		api.POST("/categories", handler.PostCategories)
		api.DELETE("/categories/:name", handler.DeleteCategory)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
