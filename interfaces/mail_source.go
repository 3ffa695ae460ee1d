package interfaces

import (
	"context"

	"github.com/dmarcstack/dmarcstack/dto"
)

// MailSource hands the orchestrator candidate report emails. A fetch failure
// is fatal for the current cycle; the next scheduled cycle retries.
type MailSource interface {
	Start(ctx context.Context) error
	Stop() error
	FetchCandidateEmails(ctx context.Context) ([]dto.InboundEmail, error)
	MarkProcessed(ctx context.Context, emailID string) error
}
