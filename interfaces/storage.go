package interfaces

import "context"

// StorageService archives raw validated report XML in object storage. It is
// optional plumbing: the pipeline works without it.
type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
