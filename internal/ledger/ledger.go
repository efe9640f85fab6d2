// Package ledger tracks which messages have already been processed, so a
// restart or a re-scan never downloads the same attachments twice.
package ledger

import (
	"context"
	"errors"
)

// Ledger is a durable set of message identities. Add must be idempotent and
// must have persisted the identity before it returns; a crash after Add is
// never allowed to forget a processed message.
type Ledger interface {
	Contains(ctx context.Context, identity string) (bool, error)
	Add(ctx context.Context, identity string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Backend names accepted in configuration.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

var ErrUnsupportedBackend = errors.New("unsupported ledger backend")

// New selects a backend by name.
func New(backend, filePath, redisURL string) (Ledger, error) {
	switch backend {
	case BackendFile, "":
		return NewFile(filePath)
	case BackendRedis:
		return NewRedis(redisURL)
	default:
		return nil, ErrUnsupportedBackend
	}
}
