package api

import (
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"device-lending-backend/internal/lending"
	"device-lending-backend/internal/notification"
	"device-lending-backend/internal/result"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine     *lending.Service
	resources  *lending.ResourceService
	visitors   *lending.VisitorService
	categories *lending.CategoryService
	pool       *notification.WorkerPool
	db         *gorm.DB
	webpush    *webpush.Options
}

// Services bundles the lending services the API exposes.
type Services struct {
	Engine     *lending.Service
	Resources  *lending.ResourceService
	Visitors   *lending.VisitorService
	Categories *lending.CategoryService
}

// NewHandler creates a new API handler.
func NewHandler(s Services, pool *notification.WorkerPool, db *gorm.DB, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		engine:     s.Engine,
		resources:  s.Resources,
		visitors:   s.Visitors,
		categories: s.Categories,
		pool:       pool,
		db:         db,
		webpush:    webpushOptions,
	}
}

// respond translates a service outcome into an HTTP response. An
// infrastructure error becomes a 500; a domain failure maps straight
// onto its status code; success returns the value with okStatus.
func respond[T any](c *gin.Context, res result.Result[T], err error, okStatus int) {
	if err != nil {
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.IsFailure() {
		c.AbortWithStatusJSON(int(res.Code()), gin.H{"error": res.Message()})
		return
	}
	c.JSON(okStatus, res.Unwrap())
}
