package api

import (
	"time"

	"github.com/propertyshodh2025/featuring-engine/app/catalog"
	"github.com/propertyshodh2025/featuring-engine/app/database"
	"github.com/propertyshodh2025/featuring-engine/app/featuring"
	"github.com/propertyshodh2025/featuring-engine/app/report"
)

type Handler struct {
	engine   *featuring.Engine
	listings database.ListingRepository
	reports  *report.Service
	catalog  *catalog.Catalog
}

type createListingRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title" binding:"required"`
	Location string `json:"location"`
}

type scheduleRequest struct {
	At        time.Time `json:"at" binding:"required"`
	PackageID string    `json:"package_id"`
	Notes     string    `json:"notes"`
}

type featureRequest struct {
	DurationDays int    `json:"duration_days"`
	PackageID    string `json:"package_id"`
	Notes        string `json:"notes"`
}

type extendRequest struct {
	AdditionalDays int    `json:"additional_days" binding:"required"`
	Notes          string `json:"notes"`
}

type unfeatureRequest struct {
	Reason string `json:"reason"`
}

type bulkRequest struct {
	Operation    string   `json:"operation" binding:"required"`
	ListingIDs   []string `json:"listing_ids" binding:"required"`
	DurationDays int      `json:"duration_days"`
	PackageID    string   `json:"package_id"`
	Notes        string   `json:"notes"`
}

type scheduledListingResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	Package     string     `json:"package"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      string     `json:"status"`
}
