package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propertyshodh2025/featuring-engine/app/catalog"
	"github.com/propertyshodh2025/featuring-engine/app/cfg"
	"github.com/propertyshodh2025/featuring-engine/app/database"
	"github.com/propertyshodh2025/featuring-engine/app/featuring"
	"github.com/propertyshodh2025/featuring-engine/app/report"
)

func NewHandler(engine *featuring.Engine, listings database.ListingRepository,
	reports *report.Service, cat *catalog.Catalog) *Handler {
	return &Handler{
		engine:   engine,
		listings: listings,
		reports:  reports,
		catalog:  cat,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
		"packages":  h.catalog.Count(),
	}

	if featured, err := h.listings.CountFeatured(c.Request.Context()); err == nil {
		health["featured_listings"] = featured
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	stats, err := h.reports.GetStats(c.Request.Context(), from, to)
	if err != nil {
		h.renderError(c, "get_stats", "", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APICreateListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	l := &database.Listing{
		ID:       req.ID,
		Title:    req.Title,
		Location: req.Location,
	}
	if err := h.listings.CreateListing(c.Request.Context(), l); err != nil {
		h.renderError(c, "create_listing", req.ID, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": req.ID})
}

func (h *Handler) APIGetListing(c *gin.Context) {
	id := c.Param("id")

	l, err := h.listings.GetListing(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, "get_listing", id, err)
		return
	}
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             l.ID,
		"title":          l.Title,
		"location":       l.Location,
		"is_featured":    l.IsFeatured,
		"featured_at":    l.FeaturedAt,
		"featured_until": l.FeaturedUntil,
		"scheduled_at":   l.FeaturingScheduledAt,
		"package":        l.FeaturingPackage,
		"status":         string(featuring.ListingStatus(l, time.Now())),
	})
}

func (h *Handler) APIScheduleListing(c *gin.Context) {
	id := c.Param("id")

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.engine.Schedule(c.Request.Context(), id, req.At, req.PackageID, req.Notes, actorFrom(c))
	if err != nil {
		h.renderError(c, "schedule", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing_id": id, "scheduled_at": req.At})
}

func (h *Handler) APIFeatureListing(c *gin.Context) {
	id := c.Param("id")

	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.engine.FeatureNow(c.Request.Context(), id, req.DurationDays, req.PackageID, req.Notes, actorFrom(c))
	if err != nil {
		h.renderError(c, "feature", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing_id": id})
}

func (h *Handler) APIExtendListing(c *gin.Context) {
	id := c.Param("id")

	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	err := h.engine.Extend(c.Request.Context(), id, req.AdditionalDays, req.Notes, actorFrom(c))
	if err != nil {
		h.renderError(c, "extend", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing_id": id})
}

func (h *Handler) APIUnfeatureListing(c *gin.Context) {
	id := c.Param("id")

	var req unfeatureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	err := h.engine.Unfeature(c.Request.Context(), id, req.Reason, actorFrom(c))
	if err != nil {
		h.renderError(c, "unfeature", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing_id": id})
}

func (h *Handler) APICancelSchedule(c *gin.Context) {
	id := c.Param("id")

	err := h.engine.CancelSchedule(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.renderError(c, "cancel_schedule", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing_id": id})
}

func (h *Handler) APIBulkApply(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	params := featuring.BulkParams{
		DurationDays: req.DurationDays,
		PackageID:    req.PackageID,
		Notes:        req.Notes,
	}
	result, err := h.engine.BulkApply(c.Request.Context(),
		featuring.BulkOperation(req.Operation), req.ListingIDs, params, actorFrom(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIListScheduled(c *gin.Context) {
	listings, err := h.listings.ListScheduled(c.Request.Context())
	if err != nil {
		h.renderError(c, "list_scheduled", "", err)
		return
	}

	now := time.Now()
	out := make([]scheduledListingResponse, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		out = append(out, scheduledListingResponse{
			ID:          l.ID,
			Title:       l.Title,
			Location:    l.Location,
			Package:     l.FeaturingPackage,
			ScheduledAt: l.FeaturingScheduledAt,
			Status:      string(featuring.ListingStatus(l, now)),
		})
	}

	c.JSON(http.StatusOK, gin.H{"scheduled": out, "total": len(out)})
}

func (h *Handler) APIListPackages(c *gin.Context) {
	packages := h.catalog.All()

	out := make([]map[string]interface{}, 0, len(packages))
	for _, p := range packages {
		out = append(out, map[string]interface{}{
			"id":            p.ID,
			"name":          p.Name,
			"duration_days": p.DurationDays,
			"price":         p.Price,
		})
	}

	c.JSON(http.StatusOK, gin.H{"packages": out, "total": len(out)})
}

func (h *Handler) APIListAudit(c *gin.Context) {
	filter, ok := auditFilterFrom(c)
	if !ok {
		return
	}

	entries, err := h.reports.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, "list_audit", "", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

func (h *Handler) APIExportAudit(c *gin.Context) {
	filter, ok := auditFilterFrom(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="featuring_audit.csv"`)
	c.Status(http.StatusOK)

	if err := h.reports.WriteCSV(c.Request.Context(), c.Writer, filter); err != nil {
		// Headers are already out; all we can do is log.
		slog.Error("CSV export failed", "error", err)
	}
}

// actorFrom resolves the operator identity. The reconciler never goes
// through HTTP, so API-driven transitions are always operator actions.
func actorFrom(c *gin.Context) featuring.Actor {
	operator := c.GetHeader("X-Admin-User")
	if operator == "" {
		operator = "admin"
	}
	return featuring.Actor{Operator: operator}
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept plain dates as well.
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid " + name + " parameter, expected RFC3339 or YYYY-MM-DD",
			})
			return nil, false
		}
	}
	return &t, true
}

func auditFilterFrom(c *gin.Context) (database.AuditFilter, bool) {
	var filter database.AuditFilter

	filter.Action = c.Query("action")
	filter.Search = c.Query("search")

	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return filter, false
	}
	filter.From = from

	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return filter, false
	}
	filter.To = to

	switch c.Query("system") {
	case "":
	case "true":
		v := true
		filter.SystemAction = &v
	case "false":
		v := false
		filter.SystemAction = &v
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid system parameter, expected true or false"})
		return filter, false
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return filter, false
		}
		filter.Limit = limit
	}

	return filter, true
}

// renderError maps engine error kinds onto HTTP statuses. Unknown
// errors stay generic so store internals never leak to clients.
func (h *Handler) renderError(c *gin.Context, op, listingID string, err error) {
	status := http.StatusInternalServerError
	message := "Operation failed"

	switch {
	case errors.Is(err, featuring.ErrNotFound):
		status = http.StatusNotFound
		message = "Listing not found"
	case errors.Is(err, featuring.ErrInvalidSchedule):
		status = http.StatusBadRequest
		message = "Scheduled time must be in the future"
	case errors.Is(err, featuring.ErrMissingDuration):
		status = http.StatusBadRequest
		message = "A known package or an explicit duration is required"
	case errors.Is(err, featuring.ErrAlreadyActive):
		status = http.StatusConflict
		message = "Listing already has an active featuring window"
	case errors.Is(err, featuring.ErrNotScheduled):
		status = http.StatusConflict
		message = "Listing has no pending schedule"
	case errors.Is(err, featuring.ErrStoreConflict):
		status = http.StatusConflict
		message = "Listing was modified concurrently, retry the operation"
	case errors.Is(err, featuring.ErrSchemaNotReady):
		status = http.StatusServiceUnavailable
		message = "Storage schema is not ready"
	case errors.Is(err, featuring.ErrAuditWriteFailed):
		message = "Audit log write failed"
	}

	slog.Error("Request failed", "operation", op, "listing_id", listingID, "error", err)
	c.JSON(status, gin.H{"error": message})
}
