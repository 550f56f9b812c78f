package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"device-lending-backend/internal/lending"
	"device-lending-backend/internal/model"
)

// resourceEntry is one batch-import item: the resource plus, when it
// arrives already lent out, the loan it is on.
type resourceEntry struct {
	ID           int64   `json:"id" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	CategoryName string  `json:"category_name" binding:"required"`
	VendorCode   string  `json:"vendor_code" binding:"required"`
	RegDate      *string `json:"reg_date"`
	Firmware     *string `json:"firmware"`
	Comment      *string `json:"comment"`

	Record *recordEntry `json:"record"`
}

type recordEntry struct {
	Email      string  `json:"email" binding:"required"`
	Address    *string `json:"address"`
	ReturnDate *string `json:"return_date"`
}

func (e *resourceEntry) toBatchItem() (lending.ResourceWithRecord, error) {
	resource := model.Resource{
		ID:           e.ID,
		Name:         e.Name,
		CategoryName: e.CategoryName,
		VendorCode:   e.VendorCode,
		Firmware:     e.Firmware,
		Comment:      e.Comment,
	}
	if e.RegDate != nil && *e.RegDate != "" {
		t, err := lending.ParseDate(*e.RegDate)
		if err != nil {
			return lending.ResourceWithRecord{}, err
		}
		resource.RegDate = &t
	}

	item := lending.ResourceWithRecord{Resource: resource}
	if e.Record != nil && e.Record.Email != "" {
		record := &model.Record{
			ResourceID: e.ID,
			UserEmail:  e.Record.Email,
			Address:    e.Record.Address,
		}
		now := time.Now()
		record.TakeDate = &now
		if e.Record.ReturnDate != nil && *e.Record.ReturnDate != "" {
			t, err := lending.ParseDate(*e.Record.ReturnDate)
			if err != nil {
				return lending.ResourceWithRecord{}, err
			}
			record.ReturnDate = &t
		}
		item.TakeRecord = record
	}
	return item, nil
}

// GetResources handles GET /api/resources. Query parameters narrow the
// listing: search, category or vendor_code.
func (h *Handler) GetResources(c *gin.Context) {
	if code := c.Query("vendor_code"); code != "" {
		res, err := h.resources.GetByVendorCode(c.Request.Context(), code)
		respond(c, res, err, http.StatusOK)
		return
	}
	if key := c.Query("search"); key != "" {
		limit := intQuery(c, "limit", 20)
		res, err := h.resources.Search(c.Request.Context(), key, limit)
		respond(c, res, err, http.StatusOK)
		return
	}
	if category := c.Query("category"); category != "" {
		res, err := h.resources.ListByCategory(c.Request.Context(), category)
		respond(c, res, err, http.StatusOK)
		return
	}
	res, err := h.resources.List(c.Request.Context())
	respond(c, res, err, http.StatusOK)
}

// GetResource handles GET /api/resources/{id}.
func (h *Handler) GetResource(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.resources.Get(c.Request.Context(), id)
	respond(c, res, err, http.StatusOK)
}

// PostResources handles POST /api/resources: the batch import. The
// whole batch is applied or nothing is.
func (h *Handler) PostResources(c *gin.Context) {
	var entries []resourceEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}

	batch := make([]lending.ResourceWithRecord, 0, len(entries))
	for i := range entries {
		item, err := entries[i].toBatchItem()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		batch = append(batch, item)
	}

	res, err := h.resources.AddManyWithRecords(c.Request.Context(), batch)
	respond(c, res, err, http.StatusCreated)
}

type patchResourceRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// PatchResource handles PATCH /api/resources/{id}: a single-field edit
// from the closed editable set.
func (h *Handler) PatchResource(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req patchResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	field, ok := lending.ParseEditableField(req.Field)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field " + req.Field + " is not editable"})
		return
	}
	res, err := h.resources.UpdateField(c.Request.Context(), id, field, req.Value)
	respond(c, res, err, http.StatusOK)
}

// DeleteResource handles DELETE /api/resources/{id}.
func (h *Handler) DeleteResource(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.resources.Delete(c.Request.Context(), id)
	respond(c, res, err, http.StatusOK)
}

// DeleteFreeResources handles DELETE /api/resources: the bulk removal
// of every resource nobody holds.
func (h *Handler) DeleteFreeResources(c *gin.Context) {
	res, err := h.resources.DeleteAllFree(c.Request.Context())
	respond(c, res, err, http.StatusOK)
}

// GetResourceRecords handles GET /api/resources/{id}/records: the loan
// history of one resource.
func (h *Handler) GetResourceRecords(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.resources.GetFinishedRecords(c.Request.Context(), id)
	respond(c, res, err, http.StatusOK)
}

// pathID parses a numeric path parameter, writing the 400 itself.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
