package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

// EmbedFunc turns text into an embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

const (
	defaultHistoryLength  = 10
	defaultRetrievalCount = 5

	factImportance       = 0.7
	preferenceImportance = 0.8

	// exportFetchLimit caps Export's overfetch; the store truncates to
	// its own size anyway.
	exportFetchLimit = 10000
)

// Manager is the high-level memory API: it embeds content, writes typed
// entries to the vector store, keeps a short-term conversation buffer,
// and renders retrieval results into prompt-ready context text.
type Manager struct {
	store     Store
	embed     EmbedFunc
	dimension int

	historyLength  int
	retrievalCount int

	mu          sync.Mutex
	buffer      []model.ConversationMessage
	initialized bool
}

// Option is a functional option for Manager
type Option func(*Manager)

// WithHistoryLength sets how many exchanges the conversation buffer keeps.
func WithHistoryLength(n int) Option {
	return func(m *Manager) {
		m.historyLength = n
	}
}

// WithRetrievalCount sets the default k for context retrieval.
func WithRetrievalCount(k int) Option {
	return func(m *Manager) {
		m.retrievalCount = k
	}
}

// NewManager creates a memory manager over the given store. dimension
// must match the store's embedding dimension; Export uses it to build
// its probe vector.
func NewManager(store Store, embed EmbedFunc, dimension int, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		embed:          embed,
		dimension:      dimension,
		historyLength:  defaultHistoryLength,
		retrievalCount: defaultRetrievalCount,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init prepares the underlying store.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if err := m.store.Init(ctx); err != nil {
		return goerr.Wrap(err, "failed to initialize memory store")
	}

	m.initialized = true
	logging.From(ctx).Info("memory manager initialized")
	return nil
}

func (m *Manager) ensureInit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return goerr.Wrap(model.ErrNotInitialized, "memory manager not ready")
	}
	return nil
}

// StoreConversation embeds one exchange and appends it to both long-term
// memory and the short-term buffer.
func (m *Manager) StoreConversation(ctx context.Context, userMessage, assistantResponse string, metadata map[string]any) (model.EntryID, error) {
	if err := m.ensureInit(); err != nil {
		return "", err
	}

	content := "User: " + userMessage + "\nAssistant: " + assistantResponse
	embedding, err := m.embed(ctx, content)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed conversation")
	}

	entry := model.NewMemoryEntry(content, model.MemoryConversation)
	entry.Embedding = embedding
	entry.Metadata = map[string]any{
		"user_message":       userMessage,
		"assistant_response": assistantResponse,
	}
	for k, v := range metadata {
		entry.Metadata[k] = v
	}

	m.mu.Lock()
	m.buffer = append(m.buffer,
		model.ConversationMessage{Role: "user", Content: userMessage},
		model.ConversationMessage{Role: "assistant", Content: assistantResponse},
	)
	if max := m.historyLength * 2; len(m.buffer) > max {
		m.buffer = m.buffer[len(m.buffer)-max:]
	}
	m.mu.Unlock()

	return m.store.Add(ctx, entry)
}

// StoreFact records a personal fact, e.g. "User's daughter is named Sarah".
func (m *Manager) StoreFact(ctx context.Context, fact string, metadata map[string]any) (model.EntryID, error) {
	if err := m.ensureInit(); err != nil {
		return "", err
	}

	embedding, err := m.embed(ctx, fact)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed fact")
	}

	entry := model.NewMemoryEntry(fact, model.MemoryFact)
	entry.Embedding = embedding
	entry.Importance = factImportance
	entry.Metadata = metadata

	return m.store.Add(ctx, entry)
}

// StorePreference records a user preference. Preferences rank above
// plain facts in importance.
func (m *Manager) StorePreference(ctx context.Context, preference, category string, metadata map[string]any) (model.EntryID, error) {
	if err := m.ensureInit(); err != nil {
		return "", err
	}

	embedding, err := m.embed(ctx, preference)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed preference")
	}

	entry := model.NewMemoryEntry(preference, model.MemoryPreference)
	entry.Embedding = embedding
	entry.Importance = preferenceImportance
	entry.Metadata = map[string]any{"category": category}
	for k, v := range metadata {
		entry.Metadata[k] = v
	}

	return m.store.Add(ctx, entry)
}

// StoreNote records a note. The title participates in the embedding so
// titled notes surface on title matches too.
func (m *Manager) StoreNote(ctx context.Context, note, title string, tags []string, metadata map[string]any) (model.EntryID, error) {
	if err := m.ensureInit(); err != nil {
		return "", err
	}

	content := note
	if title != "" {
		content = title + ": " + note
	}
	embedding, err := m.embed(ctx, content)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed note")
	}

	entry := model.NewMemoryEntry(note, model.MemoryNote)
	entry.Embedding = embedding
	entry.Metadata = map[string]any{
		"title": title,
		"tags":  tags,
	}
	for k, v := range metadata {
		entry.Metadata[k] = v
	}

	return m.store.Add(ctx, entry)
}

// RetrieveContext renders the context block injected ahead of the user's
// message: relevant memories first, then the tail of the conversation
// buffer. Returns "" when there is nothing to say.
func (m *Manager) RetrieveContext(ctx context.Context, query string, k int, memoryTypes []model.MemoryType, includeRecent bool) (string, error) {
	if err := m.ensureInit(); err != nil {
		return "", err
	}

	if k <= 0 {
		k = m.retrievalCount
	}

	embedding, err := m.embed(ctx, query)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed query")
	}

	results, err := m.store.Search(ctx, embedding, k, &SearchOptions{MemoryTypes: memoryTypes})
	if err != nil {
		return "", goerr.Wrap(err, "context search failed")
	}

	var parts []string
	if len(results) > 0 {
		parts = append(parts, "Relevant memories:")
		for _, r := range results {
			parts = append(parts, "  ["+capitalize(string(r.Entry.MemoryType))+"] "+r.Entry.Content)
		}
	}

	if includeRecent {
		m.mu.Lock()
		recent := m.buffer
		if len(recent) > 6 {
			recent = recent[len(recent)-6:]
		}
		if len(recent) > 0 {
			parts = append(parts, "\nRecent conversation:")
			for _, msg := range recent {
				content := msg.Content
				if len(content) > 200 {
					content = content[:200] + "..."
				}
				parts = append(parts, "  "+capitalize(msg.Role)+": "+content)
			}
		}
		m.mu.Unlock()
	}

	return strings.Join(parts, "\n"), nil
}

// SearchMemories returns full ranked results instead of rendered text.
func (m *Manager) SearchMemories(ctx context.Context, query string, k int, opts *SearchOptions) ([]*model.SearchResult, error) {
	if err := m.ensureInit(); err != nil {
		return nil, err
	}

	embedding, err := m.embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	return m.store.Search(ctx, embedding, k, opts)
}

// RecentConversation returns the last limit messages from the buffer;
// limit <= 0 means all of it.
func (m *Manager) RecentConversation(limit int) []model.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := m.buffer
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return append([]model.ConversationMessage(nil), messages...)
}

// ClearBuffer drops the short-term buffer for a new session. Long-term
// memory is untouched.
func (m *Manager) ClearBuffer(ctx context.Context) {
	m.mu.Lock()
	m.buffer = nil
	m.mu.Unlock()
	logging.From(ctx).Info("cleared conversation buffer")
}

// Consolidate is a placeholder for summarizing old, rarely-accessed
// memories into facts. It reports how many entries were consolidated.
// TODO: summarize conversation entries older than the cutoff into facts.
func (m *Manager) Consolidate(ctx context.Context, olderThanDays, minAccessCount int) (int, error) {
	if err := m.ensureInit(); err != nil {
		return 0, err
	}

	logging.From(ctx).Info("memory consolidation not yet implemented")
	return 0, nil
}

// Export returns stored entries for backup. It probes with a zero vector
// and a large k; ranking is meaningless here, coverage is the point.
func (m *Manager) Export(ctx context.Context, memoryTypes []model.MemoryType) ([]*model.MemoryEntry, error) {
	if err := m.ensureInit(); err != nil {
		return nil, err
	}

	probe := make([]float32, m.dimension)
	results, err := m.store.Search(ctx, probe, exportFetchLimit, &SearchOptions{MemoryTypes: memoryTypes})
	if err != nil {
		return nil, goerr.Wrap(err, "export search failed")
	}

	entries := make([]*model.MemoryEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, r.Entry)
	}
	return entries, nil
}

// Stats summarizes the memory subsystem.
type Stats struct {
	TotalMemories          int `json:"total_memories"`
	ConversationBufferSize int `json:"conversation_buffer_size"`
}

func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	if err := m.ensureInit(); err != nil {
		return nil, err
	}

	count, err := m.store.Count(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count memories")
	}

	m.mu.Lock()
	bufferSize := len(m.buffer)
	m.mu.Unlock()

	return &Stats{
		TotalMemories:          count,
		ConversationBufferSize: bufferSize,
	}, nil
}

// Save persists the underlying store.
func (m *Manager) Save(ctx context.Context) error {
	if err := m.ensureInit(); err != nil {
		return err
	}
	if err := m.store.Save(ctx); err != nil {
		return err
	}
	logging.From(ctx).Info("memory saved to storage")
	return nil
}

// Close saves and shuts down the store.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = false
	m.mu.Unlock()

	if err := m.store.Close(ctx); err != nil {
		return err
	}
	logging.From(ctx).Info("memory manager closed")
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
