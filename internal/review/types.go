// Package review stores match results flagged for human adjudication:
// unverified literal matches and semantic-fallback matches that an
// administrator should confirm or reject before they are trusted again.
package review

import (
	"context"
	"io"
	"time"

	"github.com/trial-match-engine/internal/domain"
)

// Resolution represents an administrator's verdict on a flagged match.
type Resolution string

const (
	ResolutionPending  Resolution = "pending"
	ResolutionApproved Resolution = "approved"
	ResolutionRejected Resolution = "rejected"
)

// Entry is one stored review item: the payload the matching engine
// deposited plus the adjudication state.
type Entry struct {
	Payload    domain.ReviewPayload `json:"payload"`
	Resolution Resolution           `json:"resolution"`
	Notes      string               `json:"notes,omitempty"`
	ResolvedAt *time.Time           `json:"resolved_at,omitempty"`
}

// Store defines the review storage operations. Record satisfies the
// matching engine's sink capability; the rest serve the admin surface.
type Store interface {
	// Record stores a new payload in pending state. Recording the same
	// payload ID twice is an upsert, not an error.
	Record(ctx context.Context, payload *domain.ReviewPayload) error

	// Get retrieves one entry by payload ID; nil when absent.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns entries with the given resolution, newest first, with
	// pagination. An empty resolution returns all entries.
	List(ctx context.Context, resolution Resolution, limit, offset int) ([]*Entry, error)

	// Resolve records an administrator's verdict.
	Resolve(ctx context.Context, id string, resolution Resolution, notes string) error

	// Count returns the number of entries with the given resolution; empty
	// resolution counts everything.
	Count(ctx context.Context, resolution Resolution) (int64, error)

	// ExportJSON writes all entries to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}
