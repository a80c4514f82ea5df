package storage

// codec.go — formato persistido de órdenes y audit log.
//
// Cada blob es {"version": N, "items": [...]}. Órdenes y log se versionan por
// separado. Un item corrupto se descarta solo; nunca tumba la carga completa.

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/autobid/internal/domain"
)

const (
	OrdersVersion = 1
	LogVersion    = 1
)

type envelope struct {
	Version int               `json:"version"`
	Items   []json.RawMessage `json:"items"`
}

// EncodeOrders serializa el set completo de órdenes.
func EncodeOrders(orders []domain.Order) ([]byte, error) {
	return encode(OrdersVersion, orders)
}

// DecodeOrders devuelve las órdenes válidas y cuántas se descartaron.
// Un blob de versión desconocida se descarta entero.
func DecodeOrders(b []byte) ([]domain.Order, int, error) {
	return decode(b, OrdersVersion, "orders", func(o domain.Order) error {
		return o.Validate()
	})
}

// EncodeLog serializa el audit log, más reciente primero.
func EncodeLog(entries []domain.LogEntry) ([]byte, error) {
	return encode(LogVersion, entries)
}

// DecodeLog devuelve las entradas válidas y cuántas se descartaron.
func DecodeLog(b []byte) ([]domain.LogEntry, int, error) {
	return decode(b, LogVersion, "log", validateEntry)
}

func validateEntry(e domain.LogEntry) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("missing id")
	case !e.Kind.Valid():
		return fmt.Errorf("unknown kind %q", e.Kind)
	case !e.Severity.Valid():
		return fmt.Errorf("unknown severity %q", e.Severity)
	case e.CreatedAt.IsZero():
		return fmt.Errorf("missing createdAt")
	}
	return nil
}

func encode[T any](version int, items []T) ([]byte, error) {
	env := envelope{Version: version, Items: make([]json.RawMessage, 0, len(items))}
	for _, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("storage.encode: %w", err)
		}
		env.Items = append(env.Items, raw)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("storage.encode: %w", err)
	}
	return b, nil
}

func decode[T any](b []byte, version int, name string, validate func(T) error) ([]T, int, error) {
	if len(b) == 0 {
		return nil, 0, nil
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, 0, fmt.Errorf("storage.decode %s: %w", name, err)
	}
	if env.Version != version {
		slog.Warn("storage: dropping blob with unknown version", "blob", name, "version", env.Version, "want", version)
		return nil, len(env.Items), nil
	}

	out := make([]T, 0, len(env.Items))
	dropped := 0
	for i, raw := range env.Items {
		var it T
		if err := json.Unmarshal(raw, &it); err != nil {
			slog.Warn("storage: dropping corrupt item", "blob", name, "index", i, "err", err)
			dropped++
			continue
		}
		if err := validate(it); err != nil {
			slog.Warn("storage: dropping invalid item", "blob", name, "index", i, "err", err)
			dropped++
			continue
		}
		out = append(out, it)
	}
	return out, dropped, nil
}
