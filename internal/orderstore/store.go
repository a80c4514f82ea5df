// Package orderstore owns the user's standing orders. It is the only component
// that mutates them; everything else works on snapshots.
package orderstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/autobid/internal/auditlog"
	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/ports"
)

// DefaultDecimals of the collateral token (USDC).
const DefaultDecimals = 6

// Store is the mutex-guarded authoritative order set. User edits and the
// auto-pause scheduler go through the same methods, one at a time.
type Store struct {
	repo     ports.OrderRepository
	audit    *auditlog.Log
	now      func() time.Time
	decimals int32

	mu     sync.RWMutex
	orders map[string]domain.Order
}

// New creates an empty store. repo may be nil for a memory-only store.
func New(repo ports.OrderRepository, audit *auditlog.Log) *Store {
	return &Store{
		repo:     repo,
		audit:    audit,
		now:      time.Now,
		decimals: DefaultDecimals,
		orders:   make(map[string]domain.Order),
	}
}

// SetDecimals sets the collateral token's decimals used to check increment precision.
func (s *Store) SetDecimals(decimals int32) {
	if decimals > 0 {
		s.decimals = decimals
	}
}

// validate runs the order rules plus the increment precision check.
func (s *Store) validate(o domain.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	return o.ValidatePrecision(s.decimals)
}

// SetClock overrides the time source (tests).
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Load replaces the in-memory set with the persisted one. Invalid orders are skipped.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	orders, err := s.repo.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("orderstore.Load: %w", err)
	}
	loaded := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		if err := s.validate(o); err != nil {
			slog.Warn("orderstore: dropping invalid persisted order", "id", o.ID, "err", err)
			continue
		}
		loaded[o.ID] = o.Clone()
	}
	s.mu.Lock()
	s.orders = loaded
	s.mu.Unlock()
	slog.Info("orderstore: loaded", "orders", len(loaded))
	return nil
}

// Create validates draft, assigns it an id, and stores it. Status defaults to active.
func (s *Store) Create(ctx context.Context, draft domain.Order) (domain.Order, error) {
	o := draft.Clone()
	o.ID = uuid.New().String()
	o.CreatedAt = s.now().UTC()
	o.AutoPausedAt = nil
	if o.Status == "" {
		o.Status = domain.StatusActive
	}
	if err := s.validate(o); err != nil {
		return domain.Order{}, err
	}

	s.mu.Lock()
	s.orders[o.ID] = o
	label := s.labelLocked(o)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.record(ctx, o, label, domain.ActionCreated, domain.SeveritySuccess)
	return o.Clone(), nil
}

// Update replaces the order with the given id. id and createdAt are preserved;
// switching an order to active clears autoPausedAt.
func (s *Store) Update(ctx context.Context, id string, order domain.Order) error {
	o := order.Clone()
	o.ID = id

	s.mu.Lock()
	prev, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("orderstore.Update %s: %w", id, domain.ErrOrderNotFound)
	}
	o.CreatedAt = prev.CreatedAt
	if o.Status == domain.StatusActive {
		o.AutoPausedAt = nil
	}
	if err := s.validate(o); err != nil {
		s.mu.Unlock()
		return err
	}
	s.orders[id] = o
	label := s.labelLocked(o)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.record(ctx, o, label, domain.ActionUpdated, domain.SeverityInfo)
	return nil
}

// Delete removes the order.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("orderstore.Delete %s: %w", id, domain.ErrOrderNotFound)
	}
	label := s.labelLocked(o)
	delete(s.orders, id)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.record(ctx, o, label, domain.ActionDeleted, domain.SeverityWarning)
	return nil
}

// ToggleStatus flips active ⇄ paused. A manual resume clears autoPausedAt.
func (s *Store) ToggleStatus(ctx context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return domain.Order{}, fmt.Errorf("orderstore.ToggleStatus %s: %w", id, domain.ErrOrderNotFound)
	}
	o = o.Clone()
	action := domain.ActionPaused
	if o.Status == domain.StatusActive {
		o.Status = domain.StatusPaused
	} else {
		o.Status = domain.StatusActive
		o.AutoPausedAt = nil
		action = domain.ActionResumed
	}
	s.orders[id] = o
	label := s.labelLocked(o)
	s.persistLocked(ctx)
	s.mu.Unlock()

	sev := domain.SeverityInfo
	if action == domain.ActionResumed {
		sev = domain.SeveritySuccess
	}
	s.record(ctx, o, label, action, sev)
	return o.Clone(), nil
}

// ApplyAutoPause pauses every active order whose expiration is at or before now,
// clearing the expiration and stamping autoPausedAt. Returns the orders changed.
func (s *Store) ApplyAutoPause(ctx context.Context, now time.Time) []domain.Order {
	type change struct {
		order domain.Order
		label string
	}
	var changed []change

	s.mu.Lock()
	// labels are taken before the change so the tag matches what the user last saw
	for _, o := range s.orders {
		if o.Expired(now) {
			changed = append(changed, change{order: o, label: s.labelLocked(o)})
		}
	}
	for i := range changed {
		o := changed[i].order.Clone()
		pausedAt := now.UTC()
		o.Status = domain.StatusPaused
		o.Expiration = nil
		o.AutoPausedAt = &pausedAt
		s.orders[o.ID] = o
		changed[i].order = o
	}
	if len(changed) > 0 {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	sort.Slice(changed, func(i, j int) bool {
		a, b := changed[i].order, changed[j].order
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	out := make([]domain.Order, 0, len(changed))
	for _, c := range changed {
		s.audit.Append(ctx, domain.LogEntry{
			Kind:     domain.KindOrder,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("Order %s auto-paused: expiration reached", tagOf(c.label)),
			Metadata: &domain.LogMetadata{OrderID: c.order.ID, OrderLabel: c.label, Highlight: tagOf(c.label)},
		})
		out = append(out, c.order.Clone())
	}
	return out
}

// Get returns a copy of the order with the given id.
func (s *Store) Get(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

// Snapshot returns copies of all orders in display order.
func (s *Store) Snapshot() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// Active returns the active orders of the given strategy, in display order.
func (s *Store) Active(kind domain.StrategyKind) []domain.Order {
	var out []domain.Order
	for _, o := range s.Snapshot() {
		if o.IsActive() && o.Strategy == kind {
			out = append(out, o)
		}
	}
	return out
}

// Tag returns the order's display tag ("#N"), or "" if unknown.
func (s *Store) Tag(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, o := range s.sortedLocked() {
		if o.ID == id {
			return fmt.Sprintf("#%d", i+1)
		}
	}
	return ""
}

// Label is the tag plus a short description, e.g. "#2 copy 0x5290…9ee7 +0.5".
func (s *Store) Label(o domain.Order) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labelLocked(o)
}

// Len returns the number of orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *Store) labelLocked(o domain.Order) string {
	for i, cur := range s.sortedLocked() {
		if cur.ID == o.ID {
			return fmt.Sprintf("#%d %s", i+1, o.Summary())
		}
	}
	return o.Summary()
}

func (s *Store) sortedLocked() []domain.Order {
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	SortForDisplay(out)
	return out
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveOrders(ctx, s.sortedLocked()); err != nil {
		slog.Warn("orderstore: persist failed", "err", err)
	}
}

func (s *Store) record(ctx context.Context, o domain.Order, label, action string, sev domain.Severity) {
	tag := tagOf(label)
	s.audit.Append(ctx, domain.LogEntry{
		Kind:     domain.KindOrder,
		Severity: sev,
		Message:  fmt.Sprintf("Order %s %s", tag, action),
		Metadata: &domain.LogMetadata{OrderID: o.ID, OrderLabel: label, Highlight: tag},
	})
}

// SortForDisplay orders by soonest expiration first, orders without expiration
// last, then by creation time and id so tags are stable.
func SortForDisplay(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		switch {
		case a.Expiration != nil && b.Expiration == nil:
			return true
		case a.Expiration == nil && b.Expiration != nil:
			return false
		case a.Expiration != nil && b.Expiration != nil && !a.Expiration.Equal(*b.Expiration):
			return a.Expiration.Before(*b.Expiration)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func tagOf(label string) string {
	for i, r := range label {
		if r == ' ' {
			return label[:i]
		}
	}
	return label
}
