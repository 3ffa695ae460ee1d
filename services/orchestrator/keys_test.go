package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

func reportWithIdentity(domain, org, reportID string) *models.DmarcReport {
	return &models.DmarcReport{
		Metadata:        models.ReportMetadata{OrgName: org, ReportID: reportID},
		PolicyPublished: models.PolicyPublished{Domain: domain},
	}
}

func TestDeriveStorageKey(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	email := dto.EmailMetadata{Subject: "DMARC report", Sender: "noreply@example.com"}

	key := deriveStorageKey([]*models.DmarcReport{
		reportWithIdentity("example.com", "Example Inc.", "abc123"),
	}, email, now)

	assert.Equal(t, "example.com_Example_Inc_abc123", key)
}

func TestDeriveStorageKey_FirstCompleteIdentityWins(t *testing.T) {
	now := time.Now()
	email := dto.EmailMetadata{Subject: "s", Sender: "a@b.c"}

	key := deriveStorageKey([]*models.DmarcReport{
		reportWithIdentity("example.com", "acme", ""),
		reportWithIdentity("example.org", "google.com", "r42"),
	}, email, now)

	assert.Equal(t, "example.org_google_com_r42", key)
}

func TestDeriveStorageKey_Deterministic(t *testing.T) {
	now := time.Now()
	email := dto.EmailMetadata{Subject: "s", Sender: "a@b.c"}
	reports := []*models.DmarcReport{reportWithIdentity("example.com", "acme", "r1")}

	first := deriveStorageKey(reports, email, now)
	second := deriveStorageKey(reports, email, now.Add(time.Hour))

	assert.Equal(t, first, second)
}

func TestDeriveStorageKey_FallbackWhenNoIdentity(t *testing.T) {
	now := time.Date(2026, 8, 29, 14, 30, 45, 123_000_000, time.UTC)
	email := dto.EmailMetadata{Subject: "weekly digest", Sender: "noreply@example.com"}

	key := deriveStorageKey([]*models.DmarcReport{
		reportWithIdentity("example.com", "acme", ""),
	}, email, now)

	assert.Regexp(t, `^dmarc_20260829T143045123_[0-9a-f]{8}$`, key)
}

func TestFallbackStorageKey_HashDisambiguates(t *testing.T) {
	now := time.Now()

	a := fallbackStorageKey(dto.EmailMetadata{Subject: "one", Sender: "x@y.z"}, now)
	b := fallbackStorageKey(dto.EmailMetadata{Subject: "two", Sender: "x@y.z"}, now)

	assert.NotEqual(t, a, b)
}
