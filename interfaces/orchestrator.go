package interfaces

import (
	"context"

	"github.com/dmarcstack/dmarcstack/dto"
	"github.com/dmarcstack/dmarcstack/internal/models"
)

// BatchOrchestrator drives one email's attachments through
// decode → validate → normalize and hands the result to the external sinks.
type BatchOrchestrator interface {
	ProcessBatch(ctx context.Context, email dto.InboundEmail) (*models.BatchResult, error)
	// RunCycle fetches candidate emails, processes each as a batch and marks
	// them processed. Returns the results of all batches in the cycle.
	RunCycle(ctx context.Context) ([]*models.BatchResult, error)
}
