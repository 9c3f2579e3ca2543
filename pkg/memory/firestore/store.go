package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IamTinashe/personal-assistant-agent/pkg/memory"
	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

const defaultCollection = "memories"

// document is the Firestore shape of a memory entry. The embedding is a
// native vector field so FindNearest can index it.
type document struct {
	ID          string             `firestore:"id"`
	Content     string             `firestore:"content"`
	Embedding   firestore.Vector32 `firestore:"embedding"`
	MemoryType  string             `firestore:"memory_type"`
	Metadata    map[string]any     `firestore:"metadata,omitempty"`
	CreatedAt   time.Time          `firestore:"created_at"`
	UpdatedAt   time.Time          `firestore:"updated_at"`
	Importance  float64            `firestore:"importance"`
	AccessCount int                `firestore:"access_count"`

	// Populated by FindNearest, never written.
	VectorDistance float64 `firestore:"vector_distance,omitempty"`
}

// Store is the Firestore-backed vector store. Unlike the local store,
// deletes are document-level and need no index rebuild, and Save is a
// no-op because every write is already durable.
type Store struct {
	projectID  string
	databaseID string
	collection string
	dimension  int
	client     *firestore.Client
}

var _ memory.Store = (*Store)(nil)

// Option is a functional option for Store
type Option func(*Store)

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(s *Store) {
		s.collection = name
	}
}

// New creates a Firestore store. The store is unusable until Init.
func New(projectID, databaseID string, dimension int, opts ...Option) *Store {
	s := &Store{
		projectID:  projectID,
		databaseID: databaseID,
		collection: defaultCollection,
		dimension:  dimension,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Init(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	client, err := firestore.NewClientWithDatabase(ctx, s.projectID, s.databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", s.projectID),
			goerr.V("database", s.databaseID),
		)
	}
	s.client = client

	logging.From(ctx).Info("connected to firestore memory store",
		"project", s.projectID, "database", s.databaseID, "collection", s.collection)
	return nil
}

func (s *Store) Add(ctx context.Context, entry *model.MemoryEntry) (model.EntryID, error) {
	if s.client == nil {
		return "", goerr.Wrap(model.ErrNotInitialized, "cannot add entry")
	}
	if err := s.validate(entry); err != nil {
		return "", err
	}

	doc := toDocument(entry)
	if _, err := s.client.Collection(s.collection).Doc(string(entry.ID)).Set(ctx, doc); err != nil {
		return "", goerr.Wrap(err, "failed to write memory entry", goerr.V("id", entry.ID))
	}

	logging.From(ctx).Debug("added memory entry", "id", entry.ID)
	return entry.ID, nil
}

func (s *Store) AddBatch(ctx context.Context, entries []*model.MemoryEntry) ([]model.EntryID, error) {
	if s.client == nil {
		return nil, goerr.Wrap(model.ErrNotInitialized, "cannot add entries")
	}
	for _, entry := range entries {
		if err := s.validate(entry); err != nil {
			return nil, err
		}
	}

	writer := s.client.BulkWriter(ctx)
	ids := make([]model.EntryID, 0, len(entries))
	for _, entry := range entries {
		ref := s.client.Collection(s.collection).Doc(string(entry.ID))
		if _, err := writer.Set(ref, toDocument(entry)); err != nil {
			return nil, goerr.Wrap(err, "failed to queue memory entry", goerr.V("id", entry.ID))
		}
		ids = append(ids, entry.ID)
	}
	writer.End()

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

func (s *Store) Search(ctx context.Context, embedding []float32, k int, opts *memory.SearchOptions) ([]*model.SearchResult, error) {
	if s.client == nil {
		return nil, goerr.Wrap(model.ErrNotInitialized, "cannot search")
	}
	if len(embedding) != s.dimension {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "cannot search",
			goerr.V("want", s.dimension),
			goerr.V("got", len(embedding)),
		)
	}

	query := s.client.Collection(s.collection).Query
	if opts != nil && len(opts.MemoryTypes) > 0 {
		types := make([]any, 0, len(opts.MemoryTypes))
		for _, t := range opts.MemoryTypes {
			types = append(types, string(t))
		}
		query = query.Where("memory_type", "in", types)
	}

	// Overfetch so client-side metadata filtering still has k survivors.
	vq := query.FindNearest("embedding", firestore.Vector32(embedding), k*3,
		firestore.DistanceMeasureCosine, &firestore.FindNearestOptions{
			DistanceResultField: "vector_distance",
		})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var results []*model.SearchResult
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "vector search failed")
		}

		var doc document
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory entry", goerr.V("doc", snap.Ref.ID))
		}

		entry := fromDocument(&doc)
		if !matchesMetadata(entry, opts) {
			continue
		}

		entry.AccessCount++
		if _, err := snap.Ref.Update(ctx, []firestore.Update{
			{Path: "access_count", Value: firestore.Increment(1)},
		}); err != nil {
			logging.From(ctx).Warn("failed to bump access count", "id", entry.ID, "error", err)
		}

		results = append(results, &model.SearchResult{
			Entry:    entry,
			Score:    1.0 - doc.VectorDistance,
			Distance: doc.VectorDistance,
		})
		if len(results) >= k {
			break
		}
	}

	return results, nil
}

func (s *Store) Get(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error) {
	if s.client == nil {
		return nil, goerr.Wrap(model.ErrNotInitialized, "cannot get entry")
	}

	snap, err := s.client.Collection(s.collection).Doc(string(id)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get memory entry", goerr.V("id", id))
	}

	var doc document
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode memory entry", goerr.V("id", id))
	}
	return fromDocument(&doc), nil
}

func (s *Store) Update(ctx context.Context, entry *model.MemoryEntry) (bool, error) {
	if s.client == nil {
		return false, goerr.Wrap(model.ErrNotInitialized, "cannot update entry")
	}

	ref := s.client.Collection(s.collection).Doc(string(entry.ID))
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return false, nil
	} else if err != nil {
		return false, goerr.Wrap(err, "failed to check memory entry", goerr.V("id", entry.ID))
	}

	entry.UpdatedAt = time.Now().UTC()
	if _, err := ref.Set(ctx, toDocument(entry)); err != nil {
		return false, goerr.Wrap(err, "failed to update memory entry", goerr.V("id", entry.ID))
	}

	logging.From(ctx).Debug("updated memory entry", "id", entry.ID)
	return true, nil
}

func (s *Store) Delete(ctx context.Context, id model.EntryID) (bool, error) {
	if s.client == nil {
		return false, goerr.Wrap(model.ErrNotInitialized, "cannot delete entry")
	}

	ref := s.client.Collection(s.collection).Doc(string(id))
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return false, nil
	} else if err != nil {
		return false, goerr.Wrap(err, "failed to check memory entry", goerr.V("id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to delete memory entry", goerr.V("id", id))
	}

	logging.From(ctx).Debug("deleted memory entry", "id", id)
	return true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if s.client == nil {
		return goerr.Wrap(model.ErrNotInitialized, "cannot clear")
	}

	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	writer := s.client.BulkWriter(ctx)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to list memory entries")
		}
		if _, err := writer.Delete(snap.Ref); err != nil {
			return goerr.Wrap(err, "failed to queue delete", goerr.V("doc", snap.Ref.ID))
		}
	}
	writer.End()

	logging.From(ctx).Info("cleared firestore memory store", "collection", s.collection)
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s.client == nil {
		return 0, goerr.Wrap(model.ErrNotInitialized, "cannot count")
	}

	agg, err := s.client.Collection(s.collection).NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count memory entries")
	}

	value, ok := agg["count"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("count aggregation missing from result")
	}
	return int(value.GetIntegerValue()), nil
}

// Save is a no-op: Firestore writes are durable as they happen.
func (s *Store) Save(ctx context.Context) error {
	if s.client == nil {
		return goerr.Wrap(model.ErrNotInitialized, "cannot save")
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	s.client = nil

	logging.From(ctx).Info("closed firestore memory store")
	return nil
}

func toDocument(entry *model.MemoryEntry) *document {
	return &document{
		ID:          string(entry.ID),
		Content:     entry.Content,
		Embedding:   firestore.Vector32(entry.Embedding),
		MemoryType:  string(entry.MemoryType),
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
		Importance:  entry.Importance,
		AccessCount: entry.AccessCount,
	}
}

func fromDocument(doc *document) *model.MemoryEntry {
	return &model.MemoryEntry{
		ID:          model.EntryID(doc.ID),
		Content:     doc.Content,
		Embedding:   []float32(doc.Embedding),
		MemoryType:  model.MemoryType(doc.MemoryType),
		Metadata:    doc.Metadata,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Importance:  doc.Importance,
		AccessCount: doc.AccessCount,
	}
}

func matchesMetadata(entry *model.MemoryEntry, opts *memory.SearchOptions) bool {
	if opts == nil {
		return true
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
