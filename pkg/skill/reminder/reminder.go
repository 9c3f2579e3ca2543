package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

// Reminder is one scheduled reminder persisted to disk.
type Reminder struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	RemindAt  time.Time `json:"remind_at"`
	CreatedAt time.Time `json:"created_at"`
	Completed bool      `json:"completed"`
}

// Skill creates and manages reminders parsed from natural language.
// State is a JSON array on disk, loaded at Setup and rewritten on every
// mutation so a crash never loses more than the in-flight change.
type Skill struct {
	mu          sync.Mutex
	storagePath string
	reminders   []*Reminder
	now         func() time.Time
}

// Option is a functional option for Skill
type Option func(*Skill)

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Skill) {
		s.now = now
	}
}

// New creates a reminder skill storing its state at storagePath.
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

func (s *Skill) Name() string { return "reminder" }
func (s *Skill) Description() string {
	return "Create, list, and manage reminders with natural language time parsing"
}

func (s *Skill) SupportedIntents() []model.IntentType {
	return []model.IntentType{model.IntentSetReminder, model.IntentListTasks, model.IntentDeleteTask}
}

func (s *Skill) Priority() model.SkillPriority { return model.PriorityHigh }
func (s *Skill) RequiresConfirmation() bool    { return false }

// Setup loads existing reminders. A corrupt file is logged and treated as
// empty rather than blocking startup.
func (s *Skill) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.storagePath), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create reminder storage directory")
	}

	data, err := os.ReadFile(s.storagePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return goerr.Wrap(err, "failed to read reminder storage", goerr.V("path", s.storagePath))
	}

	if err := json.Unmarshal(data, &s.reminders); err != nil {
		logging.From(ctx).Warn("failed to load reminders, starting empty", "error", err)
		s.reminders = nil
		return nil
	}

	logging.From(ctx).Info("loaded reminders", "count", len(s.reminders))
	return nil
}

func (s *Skill) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// CanHandle accepts the reminder intent plus keyword matches, so phrasing
// the classifier missed still lands here via the fallback scan.
func (s *Skill) CanHandle(input *model.PreprocessedInput) bool {
	if input.Intent == model.IntentSetReminder {
		return true
	}

	text := strings.ToLower(input.CleanedText)
	for _, kw := range []string{"reminder", "remind me", "don't forget"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (s *Skill) Execute(ctx context.Context, input *model.PreprocessedInput) (*model.SkillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch input.Intent {
	case model.IntentListTasks:
		return s.list(), nil
	case model.IntentDeleteTask:
		return s.complete(input), nil
	default:
		return s.create(ctx, input)
	}
}

func (s *Skill) create(ctx context.Context, input *model.PreprocessedInput) (*model.SkillResult, error) {
	dt := input.Entity(model.EntityDatetime)
	if dt == nil {
		return &model.SkillResult{
			Success: false,
			Message: "I couldn't understand when you want to be reminded. " +
				"Please specify a time like 'tomorrow at 3pm' or 'in 2 hours'.",
			ShouldRespond: true,
		}, nil
	}

	remindAt, ok := dt.Value.(time.Time)
	if !ok {
		return nil, goerr.New("datetime entity holds a non-time value", goerr.V("value", dt.Value))
	}

	// Strip the time span and lead-in phrases; what remains is the content.
	content := strings.TrimSpace(strings.ReplaceAll(input.CleanedText, dt.RawText, ""))
	for _, phrase := range []string{"remind me to", "remind me", "set a reminder to", "set reminder"} {
		content = strings.TrimSpace(strings.ReplaceAll(content, phrase, ""))
	}
	if content == "" {
		content = "Reminder"
	}

	r := &Reminder{
		ID:        uuid.New().String(),
		Content:   content,
		RemindAt:  remindAt,
		CreatedAt: s.now(),
	}
	s.reminders = append(s.reminders, r)

	if err := s.save(); err != nil {
		return nil, err
	}

	timeStr := remindAt.Format("Monday, January 02 at 03:04 PM")
	logging.From(ctx).Info("created reminder", "content", content, "remind_at", timeStr)

	return &model.SkillResult{
		Success:       true,
		Message:       fmt.Sprintf("I'll remind you to %s on %s.", content, timeStr),
		Data:          map[string]any{"reminder": r},
		ShouldRespond: true,
		ResponseHint:  fmt.Sprintf("Confirm the reminder was set for %s", timeStr),
	}, nil
}

func (s *Skill) list() *model.SkillResult {
	active := s.activeReminders()
	if len(active) == 0 {
		return &model.SkillResult{
			Success:       true,
			Message:       "You don't have any active reminders.",
			Data:          map[string]any{"reminders": []*Reminder{}},
			ShouldRespond: true,
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].RemindAt.Before(active[j].RemindAt)
	})

	lines := []string{"Here are your upcoming reminders:"}
	for i, r := range active {
		lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, r.Content, r.RemindAt.Format("Jan 02 at 03:04 PM")))
	}

	return &model.SkillResult{
		Success:       true,
		Message:       strings.Join(lines, "\n"),
		Data:          map[string]any{"reminders": active},
		ShouldRespond: true,
	}
}

func (s *Skill) complete(input *model.PreprocessedInput) *model.SkillResult {
	if num := input.Entity(model.EntityNumber); num != nil {
		idx := entityInt(num.Value) - 1
		active := s.activeReminders()
		if idx >= 0 && idx < len(active) {
			r := active[idx]
			r.Completed = true
			if err := s.save(); err == nil {
				return &model.SkillResult{
					Success:       true,
					Message:       fmt.Sprintf("Marked reminder '%s' as complete.", r.Content),
					Data:          map[string]any{"reminder": r},
					ShouldRespond: true,
				}
			}
		}
	}

	return &model.SkillResult{
		Success:       false,
		Message:       "I couldn't find that reminder. Try listing your reminders first.",
		ShouldRespond: true,
	}
}

// Due returns reminders whose time has passed and are not yet completed.
func (s *Skill) Due() []*Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var due []*Reminder
	for _, r := range s.reminders {
		if !r.Completed && !r.RemindAt.After(now) {
			due = append(due, r)
		}
	}
	return due
}

func (s *Skill) activeReminders() []*Reminder {
	var active []*Reminder
	for _, r := range s.reminders {
		if !r.Completed {
			active = append(active, r)
		}
	}
	return active
}

func (s *Skill) save() error {
	data, err := json.MarshalIndent(s.reminders, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal reminders")
	}
	if err := os.WriteFile(s.storagePath, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to save reminders", goerr.V("path", s.storagePath))
	}
	return nil
}

// entityInt normalizes a number entity value, which the extractor emits as
// int or float64 depending on the text.
func entityInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return -1
	}
}
