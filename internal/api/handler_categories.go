package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCategories handles GET /api/categories. With in_use=true only the
// categories that have at least one resource are returned.
func (h *Handler) GetCategories(c *gin.Context) {
	if c.Query("in_use") == "true" {
		res, err := h.resources.Categories(c.Request.Context())
		respond(c, res, err, http.StatusOK)
		return
	}
	res, err := h.categories.List(c.Request.Context())
	respond(c, res, err, http.StatusOK)
}

type addCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// PostCategories handles POST /api/categories.
func (h *Handler) PostCategories(c *gin.Context) {
	var req addCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.categories.Add(c.Request.Context(), req.Name)
	respond(c, res, err, http.StatusCreated)
}

// DeleteCategory handles DELETE /api/categories/{name}.
func (h *Handler) DeleteCategory(c *gin.Context) {
	res, err := h.categories.Delete(c.Request.Context(), c.Param("name"))
	respond(c, res, err, http.StatusOK)
}
