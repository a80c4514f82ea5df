package ports

import (
	"context"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// OrderRepository persists the full order set as one blob.
type OrderRepository interface {
	LoadOrders(ctx context.Context) ([]domain.Order, error)
	SaveOrders(ctx context.Context, orders []domain.Order) error
}

// LogRepository persists the audit log, newest first.
type LogRepository interface {
	LoadLog(ctx context.Context) ([]domain.LogEntry, error)
	SaveLog(ctx context.Context, entries []domain.LogEntry) error
}

// KVStore is the durable key-value store both repositories sit on.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
