package storage

import (
	"context"
	"io"
)

// ObjectStore is where ledger statement exports are written.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetURL(key string) string
}
