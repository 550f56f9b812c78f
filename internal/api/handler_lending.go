package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"device-lending-backend/internal/lending"
	"device-lending-backend/internal/notification"
)

// GetAvailableAction handles GET /api/resources/{id}/action: which
// single lending action the visitor may perform right now.
func (h *Handler) GetAvailableAction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	res, err := h.engine.GetAvailableAction(c.Request.Context(), id, email)
	respond(c, res, err, http.StatusOK)
}

type takeRequest struct {
	Email      string  `json:"email" binding:"required"`
	Address    *string `json:"address"`
	ReturnDate *string `json:"return_date"`
}

// TakeResource handles POST /api/resources/{id}/take.
func (h *Handler) TakeResource(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req takeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var returnDate *time.Time
	if req.ReturnDate != nil && *req.ReturnDate != "" {
		t, err := lending.ParseDate(*req.ReturnDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if lending.IsPastDate(t) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "return date is in the past"})
			return
		}
		returnDate = &t
	}

	res, err := h.engine.TakeResource(c.Request.Context(), id, req.Email, req.Address, returnDate)
	respond(c, res, err, http.StatusCreated)
}

// ReturnResource handles POST /api/resources/{id}/return. When the
// return promotes a queued visitor, that visitor gets a push
// notification.
func (h *Handler) ReturnResource(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.engine.ReturnResource(c.Request.Context(), id)
	if err == nil && res.IsSuccess() {
		ret := res.Unwrap()
		if ret.NewVisitorEmail != nil {
			h.pool.Dispatch(notification.Job{
				Email:   *ret.NewVisitorEmail,
				Message: fmt.Sprintf("%s is now assigned to you", ret.Resource.Name),
			})
		}
	}
	respond(c, res, err, http.StatusOK)
}

type queueRequest struct {
	Email string `json:"email" binding:"required"`
}

// Enqueue handles POST /api/resources/{id}/queue.
func (h *Handler) Enqueue(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req queueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.engine.Enqueue(c.Request.Context(), id, req.Email)
	respond(c, res, err, http.StatusCreated)
}

// LeaveQueue handles DELETE /api/resources/{id}/queue.
func (h *Handler) LeaveQueue(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	res, err := h.engine.LeaveQueue(c.Request.Context(), id, email)
	respond(c, res, err, http.StatusOK)
}

// GetQueue handles GET /api/resources/{id}/queue: the waitlist, oldest
// first.
func (h *Handler) GetQueue(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.engine.GetQueue(c.Request.Context(), id)
	respond(c, res, err, http.StatusOK)
}

// GetLoans handles GET /api/loans: every active loan.
func (h *Handler) GetLoans(c *gin.Context) {
	res, err := h.engine.GetAllTaken(c.Request.Context())
	respond(c, res, err, http.StatusOK)
}

// GetExpiringLoans handles GET /api/loans/expiring.
func (h *Handler) GetExpiringLoans(c *gin.Context) {
	days := intQuery(c, "days", 1)
	res, err := h.engine.GetExpiring(c.Request.Context(), days)
	respond(c, res, err, http.StatusOK)
}

// GetRecord handles GET /api/records/{id}.
func (h *Handler) GetRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.engine.GetRecord(c.Request.Context(), id)
	respond(c, res, err, http.StatusOK)
}

type patchRecordRequest struct {
	Address    *string `json:"address"`
	ReturnDate *string `json:"return_date"`
}

// PatchRecord handles PATCH /api/records/{id}: the address and agreed
// return date of a loan.
func (h *Handler) PatchRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req patchRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var returnDate *time.Time
	if req.ReturnDate != nil && *req.ReturnDate != "" {
		t, err := lending.ParseDate(*req.ReturnDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		returnDate = &t
	}
	res, err := h.engine.UpdateRecord(c.Request.Context(), id, req.Address, returnDate)
	respond(c, res, err, http.StatusOK)
}

// PurgeFinishedRecords handles POST /api/maintenance/purge: removes
// finished records older than the retention window and reports the
// count.
func (h *Handler) PurgeFinishedRecords(c *gin.Context) {
	days := intQuery(c, "max_age_days", 365)
	res, err := h.engine.DeleteOldFinishedRecords(c.Request.Context(), days)
	respond(c, res, err, http.StatusOK)
}
