// storage.go
package s3

import (
	"context"
	"io"
	"time"
)

// Storage определяет интерфейс хранилища артефактов
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	SignURL(ctx context.Context, locator string, ttl time.Duration) (string, error)
}

var _ Storage = (*Client)(nil)
