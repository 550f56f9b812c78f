package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-lending-backend/internal/model"
)

type authRequest struct {
	Email    string  `json:"email" binding:"required"`
	ChatID   *int64  `json:"chat_id"`
	UserID   *int64  `json:"user_id"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
}

// PostAuth handles POST /api/auth: the sign-in upsert. A first-time
// visitor gets a row; a returning one gets the chat identity refreshed.
func (h *Handler) PostAuth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	visitor := model.Visitor{
		Email:    req.Email,
		ChatID:   req.ChatID,
		UserID:   req.UserID,
		Username: req.Username,
		FullName: req.FullName,
	}
	res, err := h.visitors.Auth(c.Request.Context(), visitor)
	respond(c, res, err, http.StatusOK)
}

// GetVisitors handles GET /api/visitors, optionally narrowed by a
// search key.
func (h *Handler) GetVisitors(c *gin.Context) {
	if key := c.Query("search"); key != "" {
		limit := intQuery(c, "limit", 20)
		res, err := h.visitors.Search(c.Request.Context(), key, limit)
		respond(c, res, err, http.StatusOK)
		return
	}
	res, err := h.visitors.List(c.Request.Context())
	respond(c, res, err, http.StatusOK)
}

type addVisitorRequest struct {
	Email    string  `json:"email" binding:"required"`
	FullName *string `json:"full_name"`
	Comment  *string `json:"comment"`
}

// PostVisitors handles POST /api/visitors.
func (h *Handler) PostVisitors(c *gin.Context) {
	var req addVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	visitor := model.Visitor{
		Email:    req.Email,
		FullName: req.FullName,
		Comment:  req.Comment,
	}
	res, err := h.visitors.Add(c.Request.Context(), visitor)
	respond(c, res, err, http.StatusCreated)
}

// GetVisitor handles GET /api/visitors/{email}.
func (h *Handler) GetVisitor(c *gin.Context) {
	res, err := h.visitors.Get(c.Request.Context(), c.Param("email"))
	respond(c, res, err, http.StatusOK)
}

type patchVisitorRequest struct {
	Email   *string `json:"email"`
	Comment *string `json:"comment"`
}

// PatchVisitor handles PATCH /api/visitors/{email}: changes the email
// and/or comment.
func (h *Handler) PatchVisitor(c *gin.Context) {
	var req patchVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	current, err := h.visitors.Get(c.Request.Context(), c.Param("email"))
	if err != nil || current.IsFailure() {
		respond(c, current, err, http.StatusOK)
		return
	}
	res, err := h.visitors.Update(c.Request.Context(), current.Unwrap().ID, req.Email, req.Comment)
	respond(c, res, err, http.StatusOK)
}

// DeleteVisitor handles DELETE /api/visitors/{email}.
func (h *Handler) DeleteVisitor(c *gin.Context) {
	res, err := h.visitors.Delete(c.Request.Context(), c.Param("email"))
	respond(c, res, err, http.StatusOK)
}

// GetVisitorTaken handles GET /api/visitors/{email}/taken.
func (h *Handler) GetVisitorTaken(c *gin.Context) {
	res, err := h.visitors.GetTakenResources(c.Request.Context(), c.Param("email"))
	respond(c, res, err, http.StatusOK)
}

// GetVisitorQueue handles GET /api/visitors/{email}/queue.
func (h *Handler) GetVisitorQueue(c *gin.Context) {
	res, err := h.visitors.GetQueue(c.Request.Context(), c.Param("email"))
	respond(c, res, err, http.StatusOK)
}

// GetVisitorRecords handles GET /api/visitors/{email}/records: the
// visitor's loan history.
func (h *Handler) GetVisitorRecords(c *gin.Context) {
	res, err := h.visitors.GetFinishedRecords(c.Request.Context(), c.Param("email"))
	respond(c, res, err, http.StatusOK)
}
