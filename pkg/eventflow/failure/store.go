// Package failure records publication failures for later inspection.
//
// Entries are written when a subscription handler fails during
// publication. The log is diagnostic only; nothing is redelivered from it.
package failure

import (
	"context"
	"errors"
	"time"
)

// Store persists failure records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Record appends one failure. Empty IDs and zero times are filled in.
	Record(ctx context.Context, r Record) error

	// List returns up to limit records, newest first. A non-positive
	// limit returns every record.
	List(ctx context.Context, limit int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases any resources.
	Close() error
}

// Record describes one failed subscription handler.
type Record struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	ScopeID        string    `json:"scope_id"`
	SubscriptionID string    `json:"subscription_id"`
	SourceType     string    `json:"source_type"`
	EventField     string    `json:"event_field"`
	ArgsType       string    `json:"args_type"`
	Error          string    `json:"error"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("failure store closed")
