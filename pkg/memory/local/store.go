package local

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/IamTinashe/personal-assistant-agent/pkg/memory"
	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

// Store is the local vector store. Vectors live in an in-memory index
// with cosine similarity via normalized inner product; entries, raw
// embeddings, and the id/slot mappings are parallel maps guarded by one
// mutex. The index has no deletion, so Delete and embedding changes
// rebuild it from the embedding map.
type Store struct {
	mu          sync.Mutex
	dimension   int
	path        string
	kind        IndexKind
	index       vectorIndex
	entries     map[model.EntryID]*model.MemoryEntry
	embeddings  map[model.EntryID][]float32
	idToSlot    map[model.EntryID]int
	slotToID    map[int]model.EntryID
	nextSlot    int
	initialized bool
}

var _ memory.Store = (*Store)(nil)

// Option is a functional option for Store
type Option func(*Store)

// WithIndexKind selects the nearest-neighbor index structure.
func WithIndexKind(kind IndexKind) Option {
	return func(s *Store) {
		s.kind = kind
	}
}

// New creates a local store persisting under dir. The store is unusable
// until Init.
func New(dimension int, dir string, opts ...Option) *Store {
	s := &Store{
		dimension:  dimension,
		path:       dir,
		kind:       KindFlat,
		entries:    make(map[model.EntryID]*model.MemoryEntry),
		embeddings: make(map[model.EntryID][]float32),
		idToSlot:   make(map[model.EntryID]int),
		slotToID:   make(map[int]model.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init builds the index and loads persisted state if present. A store
// directory without the index or entry files starts empty.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	index, err := newIndex(s.kind, s.dimension)
	if err != nil {
		return err
	}
	s.index = index

	loaded, err := s.load()
	if err != nil {
		return err
	}
	if loaded {
		logging.From(ctx).Info("loaded vector store", "entries", len(s.entries), "kind", s.kind)
	} else {
		logging.From(ctx).Info("created new vector store", "kind", s.kind)
	}

	s.initialized = true
	return nil
}

func (s *Store) Add(ctx context.Context, entry *model.MemoryEntry) (model.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return "", goerr.Wrap(model.ErrNotInitialized, "cannot add entry")
	}
	if err := s.validate(entry); err != nil {
		return "", err
	}

	s.insert(entry)
	logging.From(ctx).Debug("added memory entry", "id", entry.ID)
	return entry.ID, nil
}

func (s *Store) AddBatch(ctx context.Context, entries []*model.MemoryEntry) ([]model.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, goerr.Wrap(model.ErrNotInitialized, "cannot add entries")
	}
	// Validate everything first so a bad entry mid-batch leaves no
	// partial insert behind.
	for _, entry := range entries {
		if err := s.validate(entry); err != nil {
			return nil, err
		}
	}

	ids := make([]model.EntryID, 0, len(entries))
	for _, entry := range entries {
		s.insert(entry)
		ids = append(ids, entry.ID)
	}

	logging.From(ctx).Debug("added memory entries", "count", len(entries))
	return ids, nil
}

func (s *Store) validate(entry *model.MemoryEntry) error {
	if len(entry.Embedding) == 0 {
		return goerr.Wrap(model.ErrMissingEmbedding, "cannot index entry", goerr.V("id", entry.ID))
	}
	if len(entry.Embedding) != s.dimension {
		return goerr.Wrap(model.ErrDimensionMismatch, "cannot index entry",
			goerr.V("id", entry.ID),
			goerr.V("want", s.dimension),
			goerr.V("got", len(entry.Embedding)),
		)
	}
	return nil
}

// insert adds the entry under the next free slot. Caller holds the lock
// and has validated the embedding.
func (s *Store) insert(entry *model.MemoryEntry) {
	s.index.Add(normalize(entry.Embedding))
	s.entries[entry.ID] = entry
	s.embeddings[entry.ID] = entry.Embedding
	s.idToSlot[entry.ID] = s.nextSlot
	s.slotToID[s.nextSlot] = entry.ID
	s.nextSlot++
}

func (s *Store) Search(ctx context.Context, embedding []float32, k int, opts *memory.SearchOptions) ([]*model.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, goerr.Wrap(model.ErrNotInitialized, "cannot search")
	}
	if s.index.Len() == 0 {
		return nil, nil
	}
	if len(embedding) != s.dimension {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "cannot search",
			goerr.V("want", s.dimension),
			goerr.V("got", len(embedding)),
		)
	}

	// Overfetch so post-filtering still has k survivors to pick from.
	searchK := k * 3
	if searchK > s.index.Len() {
		searchK = s.index.Len()
	}
	hits := s.index.Search(normalize(embedding), searchK)

	var results []*model.SearchResult
	for _, h := range hits {
		id, ok := s.slotToID[h.slot]
		if !ok {
			continue
		}
		entry, ok := s.entries[id]
		if !ok {
			continue
		}
		if !matchesOptions(entry, opts) {
			continue
		}

		entry.AccessCount++

		score := float64(h.score)
		results = append(results, &model.SearchResult{
			Entry:    entry,
			Score:    score,
			Distance: 1.0 - score,
		})
		if len(results) >= k {
			break
		}
	}

	return results, nil
}

func (s *Store) Get(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, goerr.Wrap(model.ErrNotInitialized, "cannot get entry")
	}
	return s.entries[id], nil
}

// Update replaces the stored entry. A changed embedding forces an index
// rebuild since slots cannot be rewritten in place.
func (s *Store) Update(ctx context.Context, entry *model.MemoryEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, goerr.Wrap(model.ErrNotInitialized, "cannot update entry")
	}
	if _, ok := s.entries[entry.ID]; !ok {
		return false, nil
	}

	entry.UpdatedAt = time.Now().UTC()
	s.entries[entry.ID] = entry

	if len(entry.Embedding) > 0 && !equalVectors(entry.Embedding, s.embeddings[entry.ID]) {
		if err := s.validate(entry); err != nil {
			return false, err
		}
		s.embeddings[entry.ID] = entry.Embedding
		s.rebuild()
	}

	logging.From(ctx).Debug("updated memory entry", "id", entry.ID)
	return true, nil
}

func (s *Store) Delete(ctx context.Context, id model.EntryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, goerr.Wrap(model.ErrNotInitialized, "cannot delete entry")
	}
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}

	delete(s.entries, id)
	delete(s.embeddings, id)
	if slot, ok := s.idToSlot[id]; ok {
		delete(s.idToSlot, id)
		delete(s.slotToID, slot)
	}

	s.rebuild()
	logging.From(ctx).Debug("deleted memory entry", "id", id)
	return true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return goerr.Wrap(model.ErrNotInitialized, "cannot clear")
	}

	s.index.Reset()
	s.entries = make(map[model.EntryID]*model.MemoryEntry)
	s.embeddings = make(map[model.EntryID][]float32)
	s.idToSlot = make(map[model.EntryID]int)
	s.slotToID = make(map[int]model.EntryID)
	s.nextSlot = 0

	logging.From(ctx).Info("cleared vector store")
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return 0, goerr.Wrap(model.ErrNotInitialized, "cannot count")
	}
	return len(s.entries), nil
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.Save(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()

	logging.From(ctx).Info("closed vector store")
	return nil
}

// rebuild reconstructs the index and slot mappings from the embedding
// map. Caller holds the lock.
func (s *Store) rebuild() {
	s.index.Reset()
	s.idToSlot = make(map[model.EntryID]int, len(s.embeddings))
	s.slotToID = make(map[int]model.EntryID, len(s.embeddings))
	s.nextSlot = 0

	for id, embedding := range s.embeddings {
		s.index.Add(normalize(embedding))
		s.idToSlot[id] = s.nextSlot
		s.slotToID[s.nextSlot] = id
		s.nextSlot++
	}
}

func matchesOptions(entry *model.MemoryEntry, opts *memory.SearchOptions) bool {
	if opts == nil {
		return true
	}

	if len(opts.MemoryTypes) > 0 {
		found := false
		for _, t := range opts.MemoryTypes {
			if entry.MemoryType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for key, want := range opts.Metadata {
		got, ok := entry.Metadata[key]
		if !ok {
			return false
		}
		if values, ok := want.([]any); ok {
			found := false
			for _, v := range values {
				if got == v {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		} else if got != want {
			return false
		}
	}

	return true
}

// normalize returns a unit-length copy; a zero vector comes back as-is.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return append([]float32(nil), vec...)
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func equalVectors(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
