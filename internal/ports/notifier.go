package ports

import (
	"context"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// Notifier presenta las entradas del audit log al usuario a medida que llegan.
type Notifier interface {
	// NotifyLog muestra una entrada recién añadida.
	// En la implementación de consola, imprime una línea formateada.
	NotifyLog(ctx context.Context, entry domain.LogEntry) error
}
