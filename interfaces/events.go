package interfaces

import (
	"context"

	"github.com/dmarcstack/dmarcstack/dto"
)

// EventPublisher emits batch lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishBatchProcessed(ctx context.Context, event dto.BatchProcessedEvent) error
	Close() error
}
