package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/propertyshodh2025/featuring-engine/app/database"
)

// exportHeader is the fixed column order of the CSV export.
var exportHeader = []string{
	"Date", "Property", "Location", "Action", "Package",
	"Duration (Days)", "Revenue", "Admin", "Notes",
}

const exportDateLayout = "2006-01-02 15:04:05"

// WriteCSV streams the filtered audit log as CSV, newest entry first.
// The Admin column renders the literal "System" for reconciler-driven
// transitions; quoting and embedded-quote doubling follow RFC 4180.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer, f database.AuditFilter) error {
	entries, err := s.audit.ListEntries(ctx, f)
	if err != nil {
		return fmt.Errorf("list audit entries: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, e := range entries {
		admin := e.AdminUser
		if e.SystemAction {
			admin = "System"
		}

		duration := ""
		if e.DurationDays > 0 {
			duration = strconv.Itoa(e.DurationDays)
		}

		record := []string{
			e.CreatedAt.Format(exportDateLayout),
			e.ListingTitle,
			e.ListingLocation,
			e.Action,
			e.PackageType,
			duration,
			strconv.FormatFloat(e.Revenue, 'f', 2, 64),
			admin,
			e.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
