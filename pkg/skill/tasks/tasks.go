package tasks

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

// Task is one to-do item persisted to disk.
type Task struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Skill manages the to-do list: create with optional due dates and
// keyword-derived priority, list with filters, complete, and delete.
type Skill struct {
	mu          sync.Mutex
	storagePath string
	tasks       []*Task
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

// New creates a task skill storing its state at storagePath.
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

func (s *Skill) Name() string        { return "tasks" }
func (s *Skill) Description() string { return "Create, list, and manage to-do tasks" }

func (s *Skill) SupportedIntents() []model.IntentType {
	return []model.IntentType{
		model.IntentCreateTask,
		model.IntentListTasks,
		model.IntentCompleteTask,
		model.IntentDeleteTask,
	}
}

func (s *Skill) Priority() model.SkillPriority { return model.PriorityNormal }
func (s *Skill) RequiresConfirmation() bool    { return false }

func (s *Skill) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.storagePath), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create task storage directory")
	}

	data, err := os.ReadFile(s.storagePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return goerr.Wrap(err, "failed to read task storage", goerr.V("path", s.storagePath))
	}

	if err := json.Unmarshal(data, &s.tasks); err != nil {
		logging.From(ctx).Warn("failed to load tasks, starting empty", "error", err)
		s.tasks = nil
		return nil
	}

	logging.From(ctx).Info("loaded tasks", "count", len(s.tasks))
	return nil
}

func (s *Skill) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *Skill) CanHandle(input *model.PreprocessedInput) bool {
	switch input.Intent {
	case model.IntentCreateTask, model.IntentListTasks, model.IntentCompleteTask, model.IntentDeleteTask:
		return true
	}

	text := strings.ToLower(input.CleanedText)
	for _, kw := range []string{"task", "to-do", "todo", "add to list"} {
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
		return s.list(input), nil
	case model.IntentCompleteTask:
		return s.complete(input)
	case model.IntentDeleteTask:
		return s.delete(input)
	default:
		return s.create(ctx, input)
	}
}

func (s *Skill) create(ctx context.Context, input *model.PreprocessedInput) (*model.SkillResult, error) {
	content := input.CleanedText
	for _, phrase := range []string{
		"add task", "create task", "add to my list",
		"add to to-do", "add to todo", "i need to",
	} {
		content = strings.TrimSpace(strings.ReplaceAll(content, phrase, ""))
	}

	// Quoted text wins over the stripped sentence.
	if quoted := input.Entity(model.EntityQuotedText); quoted != nil {
		if text, ok := quoted.Value.(string); ok {
			content = text
		}
	}

	if content == "" {
		return &model.SkillResult{
			Success:       false,
			Message:       "What task would you like me to add?",
			ShouldRespond: true,
		}, nil
	}

	var dueDate *time.Time
	if dt := input.Entity(model.EntityDatetime); dt != nil {
		if t, ok := dt.Value.(time.Time); ok {
			dueDate = &t
			content = strings.TrimSpace(strings.ReplaceAll(content, dt.RawText, ""))
		}
	}

	priority := "normal"
	lower := strings.ToLower(content)
	switch {
	case containsAny(lower, "urgent", "asap", "important"):
		priority = "high"
	case containsAny(lower, "sometime", "eventually", "later"):
		priority = "low"
	}

	t := &Task{
		ID:        uuid.New().String(),
		Content:   content,
		Priority:  priority,
		DueDate:   dueDate,
		CreatedAt: s.now(),
	}
	s.tasks = append(s.tasks, t)

	if err := s.save(); err != nil {
		return nil, err
	}

	logging.From(ctx).Info("created task", "content", content, "priority", priority)

	message := fmt.Sprintf("Added to your to-do list: %q", content)
	if dueDate != nil {
		message += fmt.Sprintf(" (due %s)", dueDate.Format("Jan 02"))
	}

	return &model.SkillResult{
		Success:       true,
		Message:       message,
		Data:          map[string]any{"task": t},
		ShouldRespond: true,
	}, nil
}

var priorityRank = map[string]int{"high": 0, "normal": 1, "low": 2}

func (s *Skill) list(input *model.PreprocessedInput) *model.SkillResult {
	text := strings.ToLower(input.CleanedText)
	showCompleted := strings.Contains(text, "completed") || strings.Contains(text, "done")
	showAll := strings.Contains(text, "all")

	var tasks []*Task
	for _, t := range s.tasks {
		switch {
		case showAll:
			tasks = append(tasks, t)
		case showCompleted && t.Completed:
			tasks = append(tasks, t)
		case !showAll && !showCompleted && !t.Completed:
			tasks = append(tasks, t)
		}
	}

	if len(tasks) == 0 {
		message := "Your to-do list is empty!"
		if showCompleted {
			message = "You haven't completed any tasks yet."
		}
		return &model.SkillResult{
			Success:       true,
			Message:       message,
			Data:          map[string]any{"tasks": []*Task{}},
			ShouldRespond: true,
		}
	}

	// High priority first, then earliest due date; undated tasks sink.
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := rankOf(tasks[i]), rankOf(tasks[j])
		if ri != rj {
			return ri < rj
		}
		return dueKey(tasks[i]).Before(dueKey(tasks[j]))
	})

	lines := []string{fmt.Sprintf("You have %d task(s):", len(tasks))}
	for i, t := range tasks {
		status := "[ ]"
		if t.Completed {
			status = "[x]"
		}
		line := fmt.Sprintf("%s %d. %s", status, i+1, t.Content)
		if t.Priority == "high" {
			line = fmt.Sprintf("%s %d. (!) %s", status, i+1, t.Content)
		}
		if t.DueDate != nil {
			line += fmt.Sprintf(" (due %s)", t.DueDate.Format("Jan 02"))
		}
		lines = append(lines, line)
	}

	return &model.SkillResult{
		Success:       true,
		Message:       strings.Join(lines, "\n"),
		Data:          map[string]any{"tasks": tasks},
		ShouldRespond: true,
	}
}

func (s *Skill) complete(input *model.PreprocessedInput) (*model.SkillResult, error) {
	var pending []*Task
	for _, t := range s.tasks {
		if !t.Completed {
			pending = append(pending, t)
		}
	}

	if num := input.Entity(model.EntityNumber); num != nil {
		idx := entityInt(num.Value) - 1
		if idx >= 0 && idx < len(pending) {
			return s.markDone(pending[idx])
		}
	}

	// Fall back to matching the task text inside the utterance.
	text := strings.ToLower(input.CleanedText)
	for _, t := range pending {
		if strings.Contains(text, strings.ToLower(t.Content)) {
			return s.markDone(t)
		}
	}

	return &model.SkillResult{
		Success:       false,
		Message:       "I couldn't find that task. Try listing your tasks first with 'show my tasks'.",
		ShouldRespond: true,
	}, nil
}

func (s *Skill) markDone(t *Task) (*model.SkillResult, error) {
	t.Completed = true
	now := s.now()
	t.CompletedAt = &now

	if err := s.save(); err != nil {
		return nil, err
	}

	return &model.SkillResult{
		Success:       true,
		Message:       fmt.Sprintf("Great job! Marked %q as complete.", t.Content),
		Data:          map[string]any{"task": t},
		ShouldRespond: true,
	}, nil
}

func (s *Skill) delete(input *model.PreprocessedInput) (*model.SkillResult, error) {
	if num := input.Entity(model.EntityNumber); num != nil {
		idx := entityInt(num.Value) - 1
		if idx >= 0 && idx < len(s.tasks) {
			t := s.tasks[idx]
			s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)

			if err := s.save(); err != nil {
				return nil, err
			}

			return &model.SkillResult{
				Success:       true,
				Message:       fmt.Sprintf("Deleted task: %q", t.Content),
				Data:          map[string]any{"task": t},
				ShouldRespond: true,
			}, nil
		}
	}

	return &model.SkillResult{
		Success:       false,
		Message:       "I couldn't find that task. Use task number from the list.",
		ShouldRespond: true,
	}, nil
}

func (s *Skill) save() error {
	data, err := json.MarshalIndent(s.tasks, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal tasks")
	}
	if err := os.WriteFile(s.storagePath, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to save tasks", goerr.V("path", s.storagePath))
	}
	return nil
}

func rankOf(t *Task) int {
	if r, ok := priorityRank[t.Priority]; ok {
		return r
	}
	return 1
}

// dueKey gives undated tasks a far-future sort key.
func dueKey(t *Task) time.Time {
	if t.DueDate != nil {
		return *t.DueDate
	}
	return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

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
