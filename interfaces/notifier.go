package interfaces

import "context"

// NotifierService delivers the digest to a chat channel. Fire-and-forget
// beyond recording delivery status.
type NotifierService interface {
	Notify(ctx context.Context, channelRef string, message string) error
}
