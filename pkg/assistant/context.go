package assistant

import (
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

const defaultSystemPrompt = `You are a helpful, friendly personal assistant. Your primary goals are:

1. Be helpful and provide accurate information
2. Remember important details about the user
3. Help manage tasks, reminders, and schedules
4. Be concise but thorough in your responses
5. Ask clarifying questions when needed

You have access to the user's personal context and memories to provide personalized assistance.
When the user asks you to remember something, acknowledge it and I'll store it in memory.
When performing tasks like setting reminders, confirm the details back to the user.

Current date and time: `

// conversationContext carries everything one model call needs: the
// system prompt, retrieved memories, the buffered history, and the
// current turn. Trimming mutates it until it fits the token budget.
type conversationContext struct {
	systemPrompt   string
	memoryContext  string
	recentMessages []model.ConversationMessage
	input          *model.PreprocessedInput
	skillNote      string
}

func buildSystemPrompt(custom string, now time.Time) string {
	if custom != "" {
		return custom
	}
	return defaultSystemPrompt + now.Format("Monday, January 02, 2006 at 03:04 PM")
}

// systemInstruction renders the system content: prompt, then memory
// context, then a completed-task note when a skill already acted.
func (c *conversationContext) systemInstruction() string {
	content := c.systemPrompt
	if c.memoryContext != "" {
		content += "\n\n--- User Context ---\n" + c.memoryContext
	}
	if c.skillNote != "" {
		content += "\n\n[Task completed] " + c.skillNote + ". Confirm this to the user naturally."
	}
	return content
}

// toContents converts the buffered history plus the current turn into
// model-call contents. The system prompt travels separately as the
// system instruction.
func (c *conversationContext) toContents() []*genai.Content {
	contents := make([]*genai.Content, 0, len(c.recentMessages)+1)
	for _, msg := range c.recentMessages {
		var role genai.Role = genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(c.input.CleanedText, genai.RoleUser))
	return contents
}

// estimateTokens approximates the context size at four characters per
// token. Close enough to keep requests under the window.
func (c *conversationContext) estimateTokens() int {
	total := len(c.systemInstruction()) + len(c.input.CleanedText)
	for _, msg := range c.recentMessages {
		total += len(msg.Content)
	}
	return total / 4
}

// trim shrinks the context until it fits maxTokens: oldest history pair
// first, then memory lines from the bottom. The system prompt and the
// current turn always survive.
func (c *conversationContext) trim(maxTokens int) {
	for c.estimateTokens() > maxTokens {
		if len(c.recentMessages) > 2 {
			c.recentMessages = c.recentMessages[2:]
			continue
		}

		if c.memoryContext != "" {
			lines := strings.Split(c.memoryContext, "\n")
			if len(lines) > 1 {
				c.memoryContext = strings.Join(lines[:len(lines)-1], "\n")
			} else {
				c.memoryContext = ""
			}
			continue
		}

		break
	}
}
