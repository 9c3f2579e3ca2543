package firestore_test

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/IamTinashe/personal-assistant-agent/pkg/memory"
	fsstore "github.com/IamTinashe/personal-assistant-agent/pkg/memory/firestore"
	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

const testDimension = 768

func setupStore(t *testing.T) *fsstore.Store {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	s := fsstore.New(projectID, databaseID, testDimension, fsstore.WithCollection("memories_test"))
	gt.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})
	return s
}

func testEmbedding(rng *rand.Rand, base float32) []float32 {
	vec := make([]float32, testDimension)
	for i := range vec {
		vec[i] = base + float32(rng.Float64()*0.02-0.01)
	}
	return vec
}

func TestFirestoreAddAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	entry := model.NewMemoryEntry("firestore test fact", model.MemoryFact)
	entry.Embedding = testEmbedding(rng, 0.5)
	entry.Metadata = map[string]any{"origin": "test"}

	id, err := s.Add(ctx, entry)
	gt.NoError(t, err)
	gt.Equal(t, id, entry.ID)

	got, err := s.Get(ctx, entry.ID)
	gt.NoError(t, err)
	gt.V(t, got).NotNil()
	gt.Equal(t, got.Content, "firestore test fact")
	gt.Equal(t, got.MemoryType, model.MemoryFact)
	gt.Equal(t, got.Metadata["origin"], "test")
	gt.Equal(t, len(got.Embedding), testDimension)
}

func TestFirestoreGetNotFound(t *testing.T) {
	s := setupStore(t)

	got, err := s.Get(context.Background(), model.EntryID("non-existent-entry"))
	gt.NoError(t, err)
	gt.V(t, got).Nil()
}

func TestFirestoreValidation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	entry := model.NewMemoryEntry("no embedding", model.MemoryFact)
	_, err := s.Add(ctx, entry)
	gt.Error(t, err)

	entry.Embedding = []float32{1, 0}
	_, err = s.Add(ctx, entry)
	gt.Error(t, err)
}

func TestFirestoreSearchSimilar(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	near := model.NewMemoryEntry("near the query", model.MemoryFact)
	near.Embedding = testEmbedding(rng, 0.5)
	far := model.NewMemoryEntry("far from the query", model.MemoryFact)
	far.Embedding = testEmbedding(rng, 0.9)

	_, err := s.AddBatch(ctx, []*model.MemoryEntry{near, far})
	gt.NoError(t, err)

	// Give the vector index a moment.
	time.Sleep(2 * time.Second)

	results, err := s.Search(ctx, testEmbedding(rng, 0.5), 3, nil)
	gt.NoError(t, err)
	gt.A(t, results).Longer(0)

	found := false
	for _, r := range results {
		if r.Entry.ID == near.ID {
			found = true
		}
	}
	gt.True(t, found)
}

func TestFirestoreSearchTypeFilter(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	note := model.NewMemoryEntry("a filtered note", model.MemoryNote)
	note.Embedding = testEmbedding(rng, 0.3)
	_, err := s.Add(ctx, note)
	gt.NoError(t, err)

	time.Sleep(2 * time.Second)

	results, err := s.Search(ctx, testEmbedding(rng, 0.3), 10, &memory.SearchOptions{
		MemoryTypes: []model.MemoryType{model.MemoryNote},
	})
	gt.NoError(t, err)
	gt.A(t, results).Longer(0)
	for _, r := range results {
		gt.Equal(t, r.Entry.MemoryType, model.MemoryNote)
	}
}

func TestFirestoreUpdateAndDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	entry := model.NewMemoryEntry("before update", model.MemoryFact)
	entry.Embedding = testEmbedding(rng, 0.4)
	_, err := s.Add(ctx, entry)
	gt.NoError(t, err)

	entry.Content = "after update"
	updated, err := s.Update(ctx, entry)
	gt.NoError(t, err)
	gt.True(t, updated)

	got, err := s.Get(ctx, entry.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Content, "after update")

	deleted, err := s.Delete(ctx, entry.ID)
	gt.NoError(t, err)
	gt.True(t, deleted)

	deleted, err = s.Delete(ctx, entry.ID)
	gt.NoError(t, err)
	gt.False(t, deleted)

	missing := model.NewMemoryEntry("ghost", model.MemoryFact)
	missing.Embedding = testEmbedding(rng, 0.1)
	updated, err = s.Update(ctx, missing)
	gt.NoError(t, err)
	gt.False(t, updated)
}

func TestFirestoreCount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	before, err := s.Count(ctx)
	gt.NoError(t, err)

	entry := model.NewMemoryEntry("counted entry", model.MemoryFact)
	entry.Embedding = testEmbedding(rng, 0.2)
	_, err = s.Add(ctx, entry)
	gt.NoError(t, err)

	after, err := s.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, after, before+1)
}

func TestFirestoreUninitialized(t *testing.T) {
	s := fsstore.New("project", "(default)", testDimension)

	_, err := s.Add(context.Background(), model.NewMemoryEntry("x", model.MemoryFact))
	gt.Error(t, err)

	_, err = s.Search(context.Background(), make([]float32, testDimension), 1, nil)
	gt.Error(t, err)

	_, err = s.Count(context.Background())
	gt.Error(t, err)
}
