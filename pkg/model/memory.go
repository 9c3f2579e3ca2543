package model

import (
	"time"

	"github.com/google/uuid"
)

// EntryID identifies a memory entry
type EntryID string

// NewEntryID generates a new unique EntryID
func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

// MemoryType classifies stored memories.
type MemoryType string

const (
	MemoryConversation MemoryType = "conversation"
	MemoryFact         MemoryType = "fact"
	MemoryPreference   MemoryType = "preference"
	MemoryTask         MemoryType = "task"
	MemoryNote         MemoryType = "note"
	MemoryContext      MemoryType = "context"
)

// Validate checks if the memory type is valid
func (t MemoryType) Validate() error {
	switch t {
	case MemoryConversation, MemoryFact, MemoryPreference, MemoryTask, MemoryNote, MemoryContext:
		return nil
	default:
		return ErrInvalidMemoryType
	}
}

// MemoryEntry is one embedded, typed memory record. The vector store owns
// an entry once added; AccessCount is bumped in place every time the entry
// comes back from a search.
type MemoryEntry struct {
	ID          EntryID        `json:"id"`
	Content     string         `json:"content"`
	Embedding   []float32      `json:"-"`
	MemoryType  MemoryType     `json:"memory_type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Importance  float64        `json:"importance"`
	AccessCount int            `json:"access_count"`
}

// NewMemoryEntry creates an entry with defaults filled in.
func NewMemoryEntry(content string, memoryType MemoryType) *MemoryEntry {
	now := time.Now().UTC()
	return &MemoryEntry{
		ID:         NewEntryID(),
		Content:    content,
		MemoryType: memoryType,
		CreatedAt:  now,
		UpdatedAt:  now,
		Importance: 0.5,
	}
}

// SearchResult is one ranked hit from a vector similarity search.
// Distance is 1 - Score for cosine-similarity stores. Transient, never
// persisted.
type SearchResult struct {
	Entry    *MemoryEntry
	Score    float64
	Distance float64
}

// ConversationMessage is one turn in the short-term conversation buffer.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
