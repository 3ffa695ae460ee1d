package interfaces

import (
	"context"

	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

// SummarizerService produces the human-readable digest. Both calls retry
// transient failures internally; the orchestrator degrades to a placeholder
// summary when retries are exhausted.
type SummarizerService interface {
	AnalyzeReport(ctx context.Context, report *models.DmarcReport) (string, error)
	SummarizeAnalyses(ctx context.Context, analyses []string, email dto.EmailMetadata) (string, error)
}
