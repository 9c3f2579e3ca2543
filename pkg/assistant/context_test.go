package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

func testInput(text string) *model.PreprocessedInput {
	return &model.PreprocessedInput{OriginalText: text, CleanedText: text}
}

func TestBuildSystemPrompt(t *testing.T) {
	now := time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)

	prompt := buildSystemPrompt("", now)
	gt.S(t, prompt).Contains("personal assistant")
	gt.S(t, prompt).Contains("Monday, August 24, 2026 at 03:30 PM")

	custom := buildSystemPrompt("You are a pirate.", now)
	gt.Equal(t, custom, "You are a pirate.")
}

func TestSystemInstructionSections(t *testing.T) {
	c := &conversationContext{
		systemPrompt:  "base prompt",
		memoryContext: "Relevant memories:\n  [Fact] user likes tea",
		skillNote:     "Reminder saved",
		input:         testInput("hi"),
	}

	instruction := c.systemInstruction()
	gt.S(t, instruction).Contains("base prompt")
	gt.S(t, instruction).Contains("--- User Context ---")
	gt.S(t, instruction).Contains("[Fact] user likes tea")
	gt.S(t, instruction).Contains("[Task completed] Reminder saved. Confirm this to the user naturally.")

	bare := &conversationContext{systemPrompt: "base prompt", input: testInput("hi")}
	gt.Equal(t, bare.systemInstruction(), "base prompt")
}

func TestTrimDropsOldestPairsFirst(t *testing.T) {
	c := &conversationContext{
		systemPrompt: "p",
		input:        testInput("current"),
		recentMessages: []model.ConversationMessage{
			{Role: "user", Content: strings.Repeat("a", 400)},
			{Role: "assistant", Content: strings.Repeat("b", 400)},
			{Role: "user", Content: "short"},
			{Role: "assistant", Content: "reply"},
		},
		memoryContext: "Relevant memories:\n  [Fact] keep me",
	}

	c.trim(30)

	// The oldest pair goes, the newest survives along with the memories.
	gt.Equal(t, len(c.recentMessages), 2)
	gt.Equal(t, c.recentMessages[0].Content, "short")
	gt.S(t, c.memoryContext).Contains("keep me")
}

func TestTrimCutsMemoryLinesAfterHistory(t *testing.T) {
	c := &conversationContext{
		systemPrompt: "p",
		input:        testInput("current"),
		recentMessages: []model.ConversationMessage{
			{Role: "user", Content: "q"},
			{Role: "assistant", Content: "a"},
		},
		memoryContext: "Relevant memories:\n  [Fact] " + strings.Repeat("x", 400) + "\n  [Fact] " + strings.Repeat("y", 400),
	}

	c.trim(30)

	// Memory lines drop from the bottom up.
	gt.S(t, c.memoryContext).NotContains("y")
	gt.Equal(t, len(c.recentMessages), 2)
}

func TestTrimKeepsFittingContext(t *testing.T) {
	c := &conversationContext{
		systemPrompt: "p",
		input:        testInput("hello"),
		recentMessages: []model.ConversationMessage{
			{Role: "user", Content: "q"},
			{Role: "assistant", Content: "a"},
		},
		memoryContext: "Relevant memories:\n  [Fact] small",
	}

	c.trim(4000)

	gt.Equal(t, len(c.recentMessages), 2)
	gt.S(t, c.memoryContext).Contains("small")
}
