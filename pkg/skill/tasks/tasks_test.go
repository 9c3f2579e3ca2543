package tasks_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill/tasks"
)

func taskInput(text string, intent model.IntentType, entities ...model.ExtractedEntity) *model.PreprocessedInput {
	return &model.PreprocessedInput{
		OriginalText: text,
		CleanedText:  text,
		Intent:       intent,
		Entities:     entities,
	}
}

func newSkill(t *testing.T) *tasks.Skill {
	s := tasks.New(filepath.Join(t.TempDir(), "tasks.json"))
	gt.NoError(t, s.Setup(context.Background()))
	return s
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	result, err := s.Execute(ctx, taskInput("add task buy groceries", model.IntentCreateTask))
	gt.NoError(t, err)
	gt.True(t, result.Success)
	gt.Equal(t, result.Message, `Added to your to-do list: "buy groceries"`)
	gt.Map(t, result.Data).HasKey("task")
}

func TestCreateTaskQuotedWins(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	result, err := s.Execute(ctx, taskInput(`add task "buy milk" please`, model.IntentCreateTask,
		model.ExtractedEntity{Type: model.EntityQuotedText, Value: "buy milk", RawText: `"buy milk"`}))
	gt.NoError(t, err)
	gt.Equal(t, result.Message, `Added to your to-do list: "buy milk"`)
}

func TestCreateTaskWithDueDate(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	due := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	result, err := s.Execute(ctx, taskInput("add task submit report friday", model.IntentCreateTask,
		model.ExtractedEntity{Type: model.EntityDatetime, Value: due, RawText: "friday"}))
	gt.NoError(t, err)
	gt.Equal(t, result.Message, `Added to your to-do list: "submit report" (due Aug 28)`)
}

func TestCreateTaskPriorityKeywords(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	result, err := s.Execute(ctx, taskInput("add task urgent fix the heater", model.IntentCreateTask))
	gt.NoError(t, err)
	task := result.Data["task"].(*tasks.Task)
	gt.Equal(t, task.Priority, "high")

	result, err = s.Execute(ctx, taskInput("add task clean garage sometime", model.IntentCreateTask))
	gt.NoError(t, err)
	task = result.Data["task"].(*tasks.Task)
	gt.Equal(t, task.Priority, "low")
}

func TestCreateEmptyTask(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	result, err := s.Execute(ctx, taskInput("add task", model.IntentCreateTask))
	gt.NoError(t, err)
	gt.False(t, result.Success)
	gt.Equal(t, result.Message, "What task would you like me to add?")
}

func TestListTasksOrdering(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	_, err := s.Execute(ctx, taskInput("add task wash the car", model.IntentCreateTask))
	gt.NoError(t, err)
	_, err = s.Execute(ctx, taskInput("add task urgent call the bank", model.IntentCreateTask))
	gt.NoError(t, err)

	result, err := s.Execute(ctx, taskInput("show my tasks", model.IntentListTasks))
	gt.NoError(t, err)
	gt.S(t, result.Message).Contains("You have 2 task(s):")
	// High priority sorts first and carries the marker.
	gt.S(t, result.Message).Contains("[ ] 1. (!) urgent call the bank")
	gt.S(t, result.Message).Contains("[ ] 2. wash the car")
}

func TestListEmpty(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	result, err := s.Execute(ctx, taskInput("show my tasks", model.IntentListTasks))
	gt.NoError(t, err)
	gt.Equal(t, result.Message, "Your to-do list is empty!")

	result, err = s.Execute(ctx, taskInput("show completed tasks", model.IntentListTasks))
	gt.NoError(t, err)
	gt.Equal(t, result.Message, "You haven't completed any tasks yet.")
}

func TestCompleteByNumber(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	_, err := s.Execute(ctx, taskInput("add task water plants", model.IntentCreateTask))
	gt.NoError(t, err)

	result, err := s.Execute(ctx, taskInput("complete task 1", model.IntentCompleteTask,
		model.ExtractedEntity{Type: model.EntityNumber, Value: 1}))
	gt.NoError(t, err)
	gt.True(t, result.Success)
	gt.Equal(t, result.Message, `Great job! Marked "water plants" as complete.`)

	// Completed tasks leave the default list and appear under completed.
	result, err = s.Execute(ctx, taskInput("show my tasks", model.IntentListTasks))
	gt.NoError(t, err)
	gt.Equal(t, result.Message, "Your to-do list is empty!")

	result, err = s.Execute(ctx, taskInput("show completed tasks", model.IntentListTasks))
	gt.NoError(t, err)
	gt.S(t, result.Message).Contains("[x] 1. water plants")
}

func TestCompleteBySubstring(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	_, err := s.Execute(ctx, taskInput("add task water plants", model.IntentCreateTask))
	gt.NoError(t, err)

	result, err := s.Execute(ctx, taskInput("I finished water plants", model.IntentCompleteTask))
	gt.NoError(t, err)
	gt.True(t, result.Success)
	gt.S(t, result.Message).Contains("water plants")
}

func TestCompleteUnknown(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	result, err := s.Execute(ctx, taskInput("complete something", model.IntentCompleteTask))
	gt.NoError(t, err)
	gt.False(t, result.Success)
	gt.S(t, result.Message).Contains("couldn't find that task")
}

func TestDeleteByNumber(t *testing.T) {
	ctx := context.Background()
	s := newSkill(t)

	_, err := s.Execute(ctx, taskInput("add task old chore", model.IntentCreateTask))
	gt.NoError(t, err)

	result, err := s.Execute(ctx, taskInput("delete task 1", model.IntentDeleteTask,
		model.ExtractedEntity{Type: model.EntityNumber, Value: 1}))
	gt.NoError(t, err)
	gt.True(t, result.Success)
	gt.Equal(t, result.Message, `Deleted task: "old chore"`)

	result, err = s.Execute(ctx, taskInput("show my tasks", model.IntentListTasks))
	gt.NoError(t, err)
	gt.Equal(t, result.Message, "Your to-do list is empty!")
}

func TestTasksPersistAcrossSetup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.json")

	s := tasks.New(path)
	gt.NoError(t, s.Setup(ctx))
	_, err := s.Execute(ctx, taskInput("add task recurring thing", model.IntentCreateTask))
	gt.NoError(t, err)

	reopened := tasks.New(path)
	gt.NoError(t, reopened.Setup(ctx))

	result, err := reopened.Execute(ctx, taskInput("show my tasks", model.IntentListTasks))
	gt.NoError(t, err)
	gt.S(t, result.Message).Contains("recurring thing")
}

func TestCanHandleKeywords(t *testing.T) {
	s := tasks.New(filepath.Join(t.TempDir(), "tasks.json"))

	gt.True(t, s.CanHandle(taskInput("x", model.IntentCreateTask)))
	gt.True(t, s.CanHandle(taskInput("put this on my todo", model.IntentGeneral)))
	gt.False(t, s.CanHandle(taskInput("how are you", model.IntentGeneral)))
}
