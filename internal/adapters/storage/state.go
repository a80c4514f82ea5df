package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/ports"
)

const (
	keyOrders = "orders"
	keyLog    = "audit_log"
)

// StateStore implementa ports.OrderRepository y ports.LogRepository sobre un KV store.
type StateStore struct {
	kv ports.KVStore
}

// NewStateStore envuelve kv con el codec versionado.
func NewStateStore(kv ports.KVStore) *StateStore {
	return &StateStore{kv: kv}
}

// LoadOrders devuelve las órdenes persistidas; vacío si nunca se guardaron.
func (s *StateStore) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	b, err := s.load(ctx, keyOrders)
	if err != nil || b == nil {
		return nil, err
	}
	orders, dropped, err := DecodeOrders(b)
	if err != nil {
		// un blob ilegible se trata como vacío: el estado en memoria pasa a ser la verdad
		slog.Warn("storage: unreadable orders blob, starting empty", "err", err)
		return nil, nil
	}
	if dropped > 0 {
		slog.Warn("storage: orders dropped on load", "dropped", dropped, "kept", len(orders))
	}
	return orders, nil
}

// SaveOrders reemplaza el set completo de órdenes.
func (s *StateStore) SaveOrders(ctx context.Context, orders []domain.Order) error {
	b, err := EncodeOrders(orders)
	if err != nil {
		return fmt.Errorf("storage.SaveOrders: %w", err)
	}
	return s.kv.Put(ctx, keyOrders, b)
}

// LoadLog devuelve el audit log persistido, más reciente primero.
func (s *StateStore) LoadLog(ctx context.Context) ([]domain.LogEntry, error) {
	b, err := s.load(ctx, keyLog)
	if err != nil || b == nil {
		return nil, err
	}
	entries, dropped, err := DecodeLog(b)
	if err != nil {
		slog.Warn("storage: unreadable log blob, starting empty", "err", err)
		return nil, nil
	}
	if dropped > 0 {
		slog.Warn("storage: log entries dropped on load", "dropped", dropped, "kept", len(entries))
	}
	return entries, nil
}

// SaveLog reemplaza el audit log persistido.
func (s *StateStore) SaveLog(ctx context.Context, entries []domain.LogEntry) error {
	b, err := EncodeLog(entries)
	if err != nil {
		return fmt.Errorf("storage.SaveLog: %w", err)
	}
	return s.kv.Put(ctx, keyLog, b)
}

func (s *StateStore) load(ctx context.Context, key string) ([]byte, error) {
	b, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.load %q: %w", key, err)
	}
	return b, nil
}
