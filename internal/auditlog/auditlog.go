// Package auditlog is the append-only, bounded record of everything the engine
// did on the user's behalf. It is the only user-facing error surface during
// automated matching.
package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/autobid/internal/cache"
	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/ports"
)

const DefaultCapacity = 200

// Config sizes the log.
type Config struct {
	Capacity  int
	DedupSize int
	Now       func() time.Time
}

// Log keeps the newest Capacity entries, newest first.
type Log struct {
	cfg      Config
	repo     ports.LogRepository
	notifier ports.Notifier
	dedup    *cache.KeySet

	mu      sync.Mutex
	entries []domain.LogEntry
}

// New creates an empty log. repo and notifier may be nil.
func New(cfg Config, repo ports.LogRepository, notifier ports.Notifier) *Log {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = cache.DefaultNotifications
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Log{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		dedup:    cache.MustKeySet(cfg.DedupSize),
	}
}

// Load replaces the in-memory entries with the persisted ones.
func (l *Log) Load(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}
	entries, err := l.repo.LoadLog(ctx)
	if err != nil {
		return err
	}
	if len(entries) > l.cfg.Capacity {
		entries = entries[:l.cfg.Capacity]
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// Append records e, assigning an id and timestamp when missing, and returns
// the stored entry.
func (l *Log) Append(ctx context.Context, e domain.LogEntry) domain.LogEntry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.cfg.Now().UTC()
	}

	l.mu.Lock()
	next := make([]domain.LogEntry, 0, min(len(l.entries)+1, l.cfg.Capacity))
	next = append(next, e)
	next = append(next, l.entries...)
	if len(next) > l.cfg.Capacity {
		next = next[:l.cfg.Capacity]
	}
	l.entries = next
	if l.repo != nil {
		if err := l.repo.SaveLog(ctx, next); err != nil {
			slog.Warn("auditlog: persist failed", "err", err)
		}
	}
	l.mu.Unlock()

	slog.Debug("auditlog: append", "kind", e.Kind, "severity", e.Severity, "msg", e.Message)
	if l.notifier != nil {
		if err := l.notifier.NotifyLog(ctx, e); err != nil {
			slog.Warn("auditlog: notifier error", "err", err)
		}
	}
	return e
}

// AppendUnique appends e only the first time key is seen. An empty key always appends.
func (l *Log) AppendUnique(ctx context.Context, key string, e domain.LogEntry) (domain.LogEntry, bool) {
	if key != "" && !l.dedup.MarkIfNew(key) {
		return domain.LogEntry{}, false
	}
	return l.Append(ctx, e), true
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.LogEntry(nil), l.entries...)
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
