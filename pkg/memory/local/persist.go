package local

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

const (
	indexFile      = "index.gob"
	entriesFile    = "entries.json"
	embeddingsFile = "embeddings.gob"
	mappingsFile   = "mappings.gob"
)

// slotMappings is the on-disk form of the id/slot bookkeeping.
type slotMappings struct {
	IDToSlot map[model.EntryID]int
	SlotToID map[int]model.EntryID
	NextSlot int
}

// Save writes the four store artifacts: slot-ordered vectors, entries as
// JSON for inspectability, raw embeddings, and the slot mappings.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return goerr.Wrap(model.ErrNotInitialized, "cannot save")
	}

	if err := os.MkdirAll(s.path, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create store directory", goerr.V("path", s.path))
	}

	// Slots are contiguous: adds are sequential and every delete rebuilds.
	vectors := make([][]float32, 0, s.nextSlot)
	for slot := 0; slot < s.nextSlot; slot++ {
		vectors = append(vectors, s.embeddings[s.slotToID[slot]])
	}
	if err := writeGob(filepath.Join(s.path, indexFile), vectors); err != nil {
		return err
	}

	entriesJSON, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal entries")
	}
	if err := os.WriteFile(filepath.Join(s.path, entriesFile), entriesJSON, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write entries", goerr.V("path", s.path))
	}

	if err := writeGob(filepath.Join(s.path, embeddingsFile), s.embeddings); err != nil {
		return err
	}
	if err := writeGob(filepath.Join(s.path, mappingsFile), slotMappings{
		IDToSlot: s.idToSlot,
		SlotToID: s.slotToID,
		NextSlot: s.nextSlot,
	}); err != nil {
		return err
	}

	logging.From(ctx).Info("saved vector store", "path", s.path, "entries", len(s.entries))
	return nil
}

// load restores persisted state. The vector and entry files are both
// required; if either is missing the store starts empty. The embedding
// and mapping files are reconstructible from the others, so an absent
// one is repaired, not fatal. Caller holds the lock.
func (s *Store) load() (bool, error) {
	var vectors [][]float32
	if ok, err := readGob(filepath.Join(s.path, indexFile), &vectors); err != nil || !ok {
		return false, err
	}
	entriesJSON, err := os.ReadFile(filepath.Join(s.path, entriesFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to read entries", goerr.V("path", s.path))
	}
	if err := json.Unmarshal(entriesJSON, &s.entries); err != nil {
		return false, goerr.Wrap(err, "failed to parse entries", goerr.V("path", s.path))
	}

	if _, err := readGob(filepath.Join(s.path, embeddingsFile), &s.embeddings); err != nil {
		return false, err
	}

	var mappings slotMappings
	hasMappings, err := readGob(filepath.Join(s.path, mappingsFile), &mappings)
	if err != nil {
		return false, err
	}

	if hasMappings {
		s.idToSlot = mappings.IDToSlot
		s.slotToID = mappings.SlotToID
		s.nextSlot = mappings.NextSlot

		if len(s.embeddings) == 0 {
			for slot, id := range s.slotToID {
				if slot < len(vectors) {
					s.embeddings[id] = vectors[slot]
				}
			}
		}
		for slot := 0; slot < s.nextSlot; slot++ {
			if slot < len(vectors) {
				s.index.Add(normalize(vectors[slot]))
			}
		}
		return true, nil
	}

	// No mappings: rebuild everything from the embedding map.
	s.rebuild()
	return true, nil
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create store file", goerr.V("path", path))
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(v); err != nil {
		return goerr.Wrap(err, "failed to encode store file", goerr.V("path", path))
	}
	return nil
}

// readGob decodes path into v; a missing file returns (false, nil).
func readGob(path string, v any) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to open store file", goerr.V("path", path))
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return false, goerr.Wrap(err, "failed to decode store file", goerr.V("path", path))
	}
	return true, nil
}
