package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

// Note is one saved note persisted to disk.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Skill creates and searches personal notes. Search is plain substring
// matching over content, title, and tags; semantic recall lives in the
// memory subsystem, not here.
type Skill struct {
	mu          sync.Mutex
	storagePath string
	notes       []*Note
	now         func() time.Time
}

// Option is a functional option for Skill
type Option func(*Skill)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Skill) {
		s.now = now
	}
}

// New creates a notes skill storing its state at storagePath.
func New(storagePath string, opts ...Option) *Skill {
	s := &Skill{
		storagePath: storagePath,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Skill) Name() string        { return "notes" }
func (s *Skill) Description() string { return "Create, search, and manage personal notes" }

func (s *Skill) SupportedIntents() []model.IntentType {
	return []model.IntentType{model.IntentCreateNote, model.IntentSearchNotes}
}

func (s *Skill) Priority() model.SkillPriority { return model.PriorityNormal }
func (s *Skill) RequiresConfirmation() bool    { return false }

func (s *Skill) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.storagePath), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create note storage directory")
	}

	data, err := os.ReadFile(s.storagePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return goerr.Wrap(err, "failed to read note storage", goerr.V("path", s.storagePath))
	}

	if err := json.Unmarshal(data, &s.notes); err != nil {
		logging.From(ctx).Warn("failed to load notes, starting empty", "error", err)
		s.notes = nil
		return nil
	}

	logging.From(ctx).Info("loaded notes", "count", len(s.notes))
	return nil
}

func (s *Skill) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *Skill) CanHandle(input *model.PreprocessedInput) bool {
	switch input.Intent {
	case model.IntentCreateNote, model.IntentSearchNotes:
		return true
	}

	text := strings.ToLower(input.CleanedText)
	for _, kw := range []string{"note", "write down", "jot down", "remember that"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (s *Skill) Execute(ctx context.Context, input *model.PreprocessedInput) (*model.SkillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Intent == model.IntentSearchNotes {
		return s.search(input), nil
	}
	return s.create(ctx, input)
}

func (s *Skill) create(ctx context.Context, input *model.PreprocessedInput) (*model.SkillResult, error) {
	content := input.CleanedText
	for _, phrase := range []string{
		"take a note", "make a note", "note that", "write down",
		"jot down", "remember that", "note:",
	} {
		content = strings.TrimSpace(strings.ReplaceAll(content, phrase, ""))
	}

	if quoted := input.Entity(model.EntityQuotedText); quoted != nil {
		if text, ok := quoted.Value.(string); ok {
			content = text
		}
	}

	if content == "" {
		return &model.SkillResult{
			Success:       false,
			Message:       "What would you like me to note down?",
			ShouldRespond: true,
		}, nil
	}

	now := s.now()
	n := &Note{
		ID:        uuid.New().String(),
		Title:     titleOf(content),
		Content:   content,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes = append(s.notes, n)

	if err := s.save(); err != nil {
		return nil, err
	}

	logging.From(ctx).Info("created note", "title", n.Title)

	return &model.SkillResult{
		Success:       true,
		Message:       fmt.Sprintf("I've saved your note: %q", n.Title),
		Data:          map[string]any{"note": n},
		ShouldRespond: true,
	}, nil
}

func (s *Skill) search(input *model.PreprocessedInput) *model.SkillResult {
	query := strings.ToLower(input.CleanedText)
	for _, phrase := range []string{
		"find note", "search notes", "look for note",
		"what did i write about", "find my note about",
	} {
		query = strings.TrimSpace(strings.ReplaceAll(query, phrase, ""))
	}

	if query == "" {
		return s.recent()
	}

	var matches []*Note
	for _, n := range s.notes {
		if strings.Contains(strings.ToLower(n.Content), query) ||
			strings.Contains(strings.ToLower(n.Title), query) ||
			tagMatch(n.Tags, query) {
			matches = append(matches, n)
		}
	}

	if len(matches) == 0 {
		return &model.SkillResult{
			Success:       true,
			Message:       fmt.Sprintf("I couldn't find any notes matching '%s'.", query),
			Data:          map[string]any{"notes": []*Note{}},
			ShouldRespond: true,
		}
	}

	lines := []string{fmt.Sprintf("Found %d note(s) matching '%s':", len(matches), query)}
	shown := matches
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for i, n := range shown {
		preview := n.Content
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, n.CreatedAt.Format("Jan 02"), n.Title))
		lines = append(lines, "   "+preview)
	}

	return &model.SkillResult{
		Success:       true,
		Message:       strings.Join(lines, "\n"),
		Data:          map[string]any{"notes": matches},
		ShouldRespond: true,
	}
}

// recent shows the last five notes, newest first.
func (s *Skill) recent() *model.SkillResult {
	if len(s.notes) == 0 {
		return &model.SkillResult{
			Success:       true,
			Message:       "You don't have any notes yet.",
			Data:          map[string]any{"notes": []*Note{}},
			ShouldRespond: true,
		}
	}

	start := len(s.notes) - 5
	if start < 0 {
		start = 0
	}
	var recent []*Note
	for i := len(s.notes) - 1; i >= start; i-- {
		recent = append(recent, s.notes[i])
	}

	lines := []string{"Here are your recent notes:"}
	for i, n := range recent {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, n.CreatedAt.Format("Jan 02"), n.Title))
	}

	return &model.SkillResult{
		Success:       true,
		Message:       strings.Join(lines, "\n"),
		Data:          map[string]any{"notes": recent},
		ShouldRespond: true,
	}
}

// titleOf derives a short title: the first sentence if one fits, otherwise
// the first 50 characters cut back to a word boundary.
func titleOf(content string) string {
	if i := strings.Index(content, "."); i >= 0 && i < 50 {
		return content[:i]
	}
	if len(content) <= 50 {
		return content
	}
	title := content[:50]
	if j := strings.LastIndex(title, " "); j > 0 {
		title = title[:j]
	}
	return title + "..."
}

func tagMatch(tags []string, query string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func (s *Skill) save() error {
	data, err := json.MarshalIndent(s.notes, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal notes")
	}
	if err := os.WriteFile(s.storagePath, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to save notes", goerr.V("path", s.storagePath))
	}
	return nil
}
