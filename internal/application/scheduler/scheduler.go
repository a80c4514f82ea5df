// Package scheduler runs the periodic auto-pause pass over the order store.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// DefaultInterval entre pasadas de auto-pause.
const DefaultInterval = 5 * time.Second

// OrderPauser es el subconjunto del order store que usa el scheduler.
type OrderPauser interface {
	ApplyAutoPause(ctx context.Context, now time.Time) []domain.Order
}

// Scheduler pausa órdenes cuya expiración ya pasó.
type Scheduler struct {
	orders   OrderPauser
	interval time.Duration
	now      func() time.Time
}

// New crea un Scheduler. interval <= 0 usa DefaultInterval.
func New(orders OrderPauser, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{orders: orders, interval: interval, now: time.Now}
}

// Run ejecuta una pasada inmediata y luego una por tick hasta que ctx se cancele.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler: starting", "interval", s.interval)
	s.Tick(ctx, s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler: stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick pausa las órdenes expiradas a now y devuelve cuántas cambiaron.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	changed := s.orders.ApplyAutoPause(ctx, now)
	for _, o := range changed {
		slog.Info("scheduler: order auto-paused", "id", o.ID, "order", o.Summary())
	}
	return len(changed)
}
