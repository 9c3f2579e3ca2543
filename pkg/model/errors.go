package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidIntent     = goerr.New("invalid intent type")
	ErrInvalidMemoryType = goerr.New("invalid memory type")

	// ErrNotInitialized is returned by any memory operation issued before
	// Init has completed.
	ErrNotInitialized = goerr.New("memory subsystem not initialized")

	// ErrMissingEmbedding is returned when an entry without an embedding
	// is inserted into a vector store.
	ErrMissingEmbedding = goerr.New("memory entry has no embedding")

	// ErrDimensionMismatch is returned when an embedding does not match
	// the store's configured dimension.
	ErrDimensionMismatch = goerr.New("embedding dimension mismatch")

	ErrUnknownIndexKind = goerr.New("unknown vector index kind")
	ErrEntryNotFound    = goerr.New("memory entry not found")
)
