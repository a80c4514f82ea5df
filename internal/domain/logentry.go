package domain

import "time"

// LogKind groups audit entries by origin.
type LogKind string

const (
	KindOrder  LogKind = "order"
	KindMatch  LogKind = "match"
	KindSystem LogKind = "system"
)

// Severity of an audit entry.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityWarning, SeverityError, SeverityInfo:
		return true
	}
	return false
}

// Valid reports whether k is a known kind.
func (k LogKind) Valid() bool {
	switch k {
	case KindOrder, KindMatch, KindSystem:
		return true
	}
	return false
}

// LogMetadata is optional structured context attached to an entry.
// OrderLabel is a snapshot taken at log time; the order may since be deleted.
type LogMetadata struct {
	OrderID    string `json:"orderId,omitempty"`
	OrderLabel string `json:"orderLabel,omitempty"`
	Highlight  string `json:"highlight,omitempty"`
	AuctionID  string `json:"auctionId,omitempty"`
}

// LogEntry is one immutable audit record.
type LogEntry struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Kind      LogKind      `json:"kind"`
	Severity  Severity     `json:"severity"`
	Message   string       `json:"message"`
	Metadata  *LogMetadata `json:"metadata,omitempty"`
}

// Order actions recorded by the store and the scheduler.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionPaused  = "paused"
	ActionResumed = "resumed"
)
