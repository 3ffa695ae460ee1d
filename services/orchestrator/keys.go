package orchestrator

import (
	"fmt"
	"time"

	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/internal/models"
	"github.com/dmarcstack/dmarcstack/internal/utils"
)

// deriveStorageKey builds the deterministic key the batch is stored under.
// The first report carrying a complete identity wins; processing the same
// email twice yields the same key.
func deriveStorageKey(reports []*models.DmarcReport, email dto.EmailMetadata, now time.Time) string {
	for _, report := range reports {
		domain := report.PolicyPublished.Domain
		org := utils.SanitizeKeyComponent(report.Metadata.OrgName)
		reportID := report.Metadata.ReportID
		if domain != "" && org != "" && reportID != "" {
			return fmt.Sprintf("%s_%s_%s", domain, org, reportID)
		}
	}
	return fallbackStorageKey(email, now)
}

// fallbackStorageKey covers reports that arrive without a usable identity.
// The hash disambiguates emails landing in the same millisecond.
func fallbackStorageKey(email dto.EmailMetadata, now time.Time) string {
	utc := now.UTC()
	ts := fmt.Sprintf("%s%03d", utc.Format("20060102T150405"), utc.Nanosecond()/1e6)
	return fmt.Sprintf("dmarc_%s_%s", ts, utils.ShortHash(email.Subject, email.Sender))
}
