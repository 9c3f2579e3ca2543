package assistant

import (
	"context"
	"iter"
	"regexp"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/IamTinashe/personal-assistant-agent/pkg/adapter"
	"github.com/IamTinashe/personal-assistant-agent/pkg/memory"
	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/orchestrator"
	"github.com/IamTinashe/personal-assistant-agent/pkg/preprocess"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

const defaultMaxContextTokens = 4000

// Assistant wires the pipeline together: preprocess the input, let a
// skill try to handle it, retrieve memory context, and fall back to the
// model for the reply. Every exchange is written back to memory.
type Assistant struct {
	preprocessor *preprocess.Preprocessor
	orchestrator *orchestrator.Orchestrator
	gemini       adapter.Gemini
	memory       *memory.Manager

	systemPrompt     string
	maxContextTokens int
	now              func() time.Time
	initialized      bool
}

// Option is a functional option for Assistant
type Option func(*Assistant)

// WithSystemPrompt replaces the built-in system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Assistant) {
		a.systemPrompt = prompt
	}
}

// WithMaxContextTokens caps the estimated context size per model call.
func WithMaxContextTokens(n int) Option {
	return func(a *Assistant) {
		a.maxContextTokens = n
	}
}

// WithClock overrides the time source used in the system prompt.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.now = now
	}
}

// New assembles an assistant from its collaborators. Call Init before use.
func New(gemini adapter.Gemini, mgr *memory.Manager, pre *preprocess.Preprocessor, orch *orchestrator.Orchestrator, opts ...Option) *Assistant {
	a := &Assistant{
		preprocessor:     pre,
		orchestrator:     orch,
		gemini:           gemini,
		memory:           mgr,
		maxContextTokens: defaultMaxContextTokens,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init brings up memory and the registered skills.
func (a *Assistant) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}

	if err := a.memory.Init(ctx); err != nil {
		return goerr.Wrap(err, "failed to initialize memory")
	}
	a.orchestrator.Init(ctx)

	a.initialized = true
	logging.From(ctx).Info("assistant initialized")
	return nil
}

// Shutdown tears down skills and closes memory.
func (a *Assistant) Shutdown(ctx context.Context) error {
	if !a.initialized {
		return nil
	}

	a.orchestrator.Shutdown(ctx)
	if err := a.memory.Close(ctx); err != nil {
		return goerr.Wrap(err, "failed to close memory")
	}

	a.initialized = false
	logging.From(ctx).Info("assistant shut down")
	return nil
}

// Chat processes one user turn and returns the reply.
func (a *Assistant) Chat(ctx context.Context, message string) (string, error) {
	if !a.initialized {
		return "", goerr.Wrap(model.ErrNotInitialized, "assistant not ready")
	}

	input := a.preprocessor.Preprocess(ctx, message)
	logging.From(ctx).Info("processing message", "intent", input.Intent, "confidence", input.IntentConfidence)

	handled, result := a.orchestrator.Process(ctx, input)

	// A skill that fully answered skips the model entirely.
	if handled && result != nil && !result.ShouldRespond {
		a.storeExchange(ctx, input, result.Message)
		return result.Message, nil
	}

	convCtx, err := a.buildContext(ctx, input, result, handled)
	if err != nil {
		return "", err
	}

	resp, err := a.gemini.GenerateContent(ctx, convCtx.toContents(), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(convCtx.systemInstruction(), ""),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate response")
	}
	response := responseText(resp)

	a.storeExchange(ctx, input, response)
	return response, nil
}

// ChatStream processes one user turn and yields the reply in chunks.
// The exchange is written to memory only after the stream drains
// completely; a stream the consumer abandons is never persisted.
func (a *Assistant) ChatStream(ctx context.Context, message string) (iter.Seq2[string, error], error) {
	if !a.initialized {
		return nil, goerr.Wrap(model.ErrNotInitialized, "assistant not ready")
	}

	input := a.preprocessor.Preprocess(ctx, message)
	handled, result := a.orchestrator.Process(ctx, input)

	if handled && result != nil && !result.ShouldRespond {
		return func(yield func(string, error) bool) {
			if !yield(result.Message, nil) {
				return
			}
			a.storeExchange(ctx, input, result.Message)
		}, nil
	}

	convCtx, err := a.buildContext(ctx, input, result, handled)
	if err != nil {
		return nil, err
	}

	stream := a.gemini.GenerateContentStream(ctx, convCtx.toContents(), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(convCtx.systemInstruction(), ""),
	})

	return func(yield func(string, error) bool) {
		var full string
		for resp, err := range stream {
			if err != nil {
				yield("", goerr.Wrap(err, "stream failed"))
				return
			}
			chunk := responseText(resp)
			if chunk == "" {
				continue
			}
			full += chunk
			if !yield(chunk, nil) {
				return
			}
		}
		a.storeExchange(ctx, input, full)
	}, nil
}

// buildContext assembles the trimmed conversation context for a model
// call, folding in the skill result when one exists.
func (a *Assistant) buildContext(ctx context.Context, input *model.PreprocessedInput, result *model.SkillResult, handled bool) (*conversationContext, error) {
	memoryContext, err := a.memory.RetrieveContext(ctx, input.CleanedText, 0, nil, false)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to retrieve memory context")
	}

	convCtx := &conversationContext{
		systemPrompt:   buildSystemPrompt(a.systemPrompt, a.now()),
		memoryContext:  memoryContext,
		recentMessages: a.memory.RecentConversation(0),
		input:          input,
	}

	if handled && result != nil && result.Success {
		convCtx.skillNote = result.Message
		if result.ResponseHint != "" {
			convCtx.skillNote = result.Message + " (" + result.ResponseHint + ")"
		}
	}

	convCtx.trim(a.maxContextTokens)
	return convCtx, nil
}

// storeExchange writes the turn into long-term memory, plus any facts a
// heuristic scan finds. Storage failures are logged, never surfaced; a
// reply the user already saw must not turn into an error.
func (a *Assistant) storeExchange(ctx context.Context, input *model.PreprocessedInput, response string) {
	if _, err := a.memory.StoreConversation(ctx, input.CleanedText, response, nil); err != nil {
		logging.From(ctx).Warn("failed to store conversation", "error", err)
		return
	}

	for _, fact := range extractFacts(input.CleanedText) {
		if _, err := a.memory.StoreFact(ctx, fact, nil); err != nil {
			logging.From(ctx).Warn("failed to store fact", "error", err)
		}
	}
}

// Remember stores an explicit fact.
func (a *Assistant) Remember(ctx context.Context, fact string) (model.EntryID, error) {
	if !a.initialized {
		return "", goerr.Wrap(model.ErrNotInitialized, "assistant not ready")
	}
	return a.memory.StoreFact(ctx, fact, nil)
}

// Recall searches long-term memory.
func (a *Assistant) Recall(ctx context.Context, query string, k int, types []model.MemoryType) ([]*model.SearchResult, error) {
	if !a.initialized {
		return nil, goerr.Wrap(model.ErrNotInitialized, "assistant not ready")
	}
	return a.memory.SearchMemories(ctx, query, k, &memory.SearchOptions{MemoryTypes: types})
}

// NewSession clears the short-term buffer; long-term memory persists
// across sessions.
func (a *Assistant) NewSession(ctx context.Context) {
	a.memory.ClearBuffer(ctx)
}

// Stats reports memory counts and registered skills.
type Stats struct {
	Memory *memory.Stats            `json:"memory"`
	Skills []orchestrator.SkillInfo `json:"skills"`
}

func (a *Assistant) Stats(ctx context.Context) (*Stats, error) {
	if !a.initialized {
		return nil, goerr.Wrap(model.ErrNotInitialized, "assistant not ready")
	}

	memStats, err := a.memory.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Memory: memStats,
		Skills: a.orchestrator.List(),
	}, nil
}

// Capabilities summarizes what the registered skills can do.
func (a *Assistant) Capabilities() string {
	return a.orchestrator.Capabilities()
}

// responseText flattens the first candidate's text parts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// factPatterns catch self-descriptions worth remembering long-term. A
// crude net on purpose; the model is not in the loop here.
var factPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)my (?:name is|wife|husband|daughter|son|pet|dog|cat|favorite) (?:is )?(\w+)`),
	regexp.MustCompile(`(?i)i (?:am|live in|work at|work for) (\w+)`),
	regexp.MustCompile(`(?i)(?:remember|note|save) that (.+)`),
}

// extractFacts returns the whole message when it looks like a personal
// fact. At most one fact per message.
func extractFacts(message string) []string {
	for _, re := range factPatterns {
		if re.MatchString(message) {
			return []string{message}
		}
	}
	return nil
}
