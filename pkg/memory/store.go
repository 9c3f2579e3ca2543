package memory

import (
	"context"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

// SearchOptions narrows a similarity search. Zero value means no filter.
// Metadata values may be scalars or slices; a slice matches when the
// entry's value is one of its elements.
type SearchOptions struct {
	MemoryTypes []model.MemoryType
	Metadata    map[string]any
}

// Store is the vector store behind the memory manager. Implementations
// must be safe for concurrent use. Every method except Init returns
// model.ErrNotInitialized until Init has completed.
type Store interface {
	// Init prepares the store and loads any persisted state
	Init(ctx context.Context) error

	// Add inserts one embedded entry and returns its ID
	Add(ctx context.Context, entry *model.MemoryEntry) (model.EntryID, error)

	// AddBatch inserts entries in one shot, failing before any insert if
	// one of them has no embedding
	AddBatch(ctx context.Context, entries []*model.MemoryEntry) ([]model.EntryID, error)

	// Search returns up to k entries ranked by similarity to the query
	// embedding, after applying opts. Matching entries get their access
	// count bumped.
	Search(ctx context.Context, embedding []float32, k int, opts *SearchOptions) ([]*model.SearchResult, error)

	// Get returns an entry by ID, or nil when absent
	Get(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error)

	// Update replaces an existing entry; returns false when absent
	Update(ctx context.Context, entry *model.MemoryEntry) (bool, error)

	// Delete removes an entry; returns false when absent
	Delete(ctx context.Context, id model.EntryID) (bool, error)

	// Clear removes every entry
	Clear(ctx context.Context) error

	// Count reports the number of stored entries
	Count(ctx context.Context) (int, error)

	// Save persists the store
	Save(ctx context.Context) error

	// Close saves and releases resources
	Close(ctx context.Context) error
}
