package assistant_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"

	"github.com/IamTinashe/personal-assistant-agent/pkg/assistant"
	"github.com/IamTinashe/personal-assistant-agent/pkg/memory"
	"github.com/IamTinashe/personal-assistant-agent/pkg/memory/local"
	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/orchestrator"
	"github.com/IamTinashe/personal-assistant-agent/pkg/preprocess"
)

const testDimension = 4

type mockGemini struct {
	response  string
	chunks    []string
	genErr    error
	streamErr error

	generateCalls int
	lastContents  []*genai.Content
	lastConfig    *genai.GenerateContentConfig
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.generateCalls++
	m.lastContents = contents
	m.lastConfig = config
	if m.genErr != nil {
		return nil, m.genErr
	}
	return textResponse(m.response), nil
}

func (m *mockGemini) GenerateContentStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	m.lastContents = contents
	m.lastConfig = config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range m.chunks {
			if !yield(textResponse(chunk), nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield(nil, m.streamErr)
		}
	}
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}

type stubSkill struct {
	result *model.SkillResult
}

func (s *stubSkill) Name() string                         { return "stub" }
func (s *stubSkill) Description() string                  { return "stub skill" }
func (s *stubSkill) SupportedIntents() []model.IntentType { return []model.IntentType{model.IntentGeneral} }
func (s *stubSkill) Priority() model.SkillPriority        { return model.PriorityHigh }
func (s *stubSkill) RequiresConfirmation() bool           { return false }
func (s *stubSkill) CanHandle(input *model.PreprocessedInput) bool {
	return s.result != nil
}
func (s *stubSkill) Execute(ctx context.Context, input *model.PreprocessedInput) (*model.SkillResult, error) {
	return s.result, nil
}
func (s *stubSkill) Setup(ctx context.Context) error    { return nil }
func (s *stubSkill) Teardown(ctx context.Context) error { return nil }

func newAssistant(t *testing.T, mock *mockGemini, skills ...*stubSkill) *assistant.Assistant {
	ctx := context.Background()

	pre, err := preprocess.New()
	gt.NoError(t, err)

	orch := orchestrator.New()
	for _, s := range skills {
		orch.Register(ctx, s)
	}

	store := local.New(testDimension, t.TempDir())
	mgr := memory.NewManager(store, mock.Embedding, testDimension)

	a := assistant.New(mock, mgr, pre, orch)
	gt.NoError(t, a.Init(ctx))
	return a
}

func systemInstructionText(config *genai.GenerateContentConfig) string {
	if config == nil || config.SystemInstruction == nil {
		return ""
	}
	var text string
	for _, part := range config.SystemInstruction.Parts {
		text += part.Text
	}
	return text
}

func TestChatBeforeInit(t *testing.T) {
	pre, err := preprocess.New()
	gt.NoError(t, err)

	mock := &mockGemini{}
	store := local.New(testDimension, t.TempDir())
	mgr := memory.NewManager(store, mock.Embedding, testDimension)
	a := assistant.New(mock, mgr, pre, orchestrator.New())

	_, err = a.Chat(context.Background(), "hello")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrNotInitialized))
}

func TestChatGeneratesAndStores(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{response: "Paris is the capital of France."}
	a := newAssistant(t, mock)

	reply, err := a.Chat(ctx, "what is the capital of France?")
	gt.NoError(t, err)
	gt.Equal(t, reply, "Paris is the capital of France.")
	gt.Equal(t, mock.generateCalls, 1)

	// The exchange landed in long-term memory and the buffer.
	stats, err := a.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Memory.TotalMemories, 1)
	gt.Equal(t, stats.Memory.ConversationBufferSize, 2)
}

func TestChatSkillShortCircuit(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{response: "model reply"}
	skill := &stubSkill{result: &model.SkillResult{
		Success:       true,
		Message:       "You have 2 task(s).",
		ShouldRespond: false,
	}}
	a := newAssistant(t, mock, skill)

	reply, err := a.Chat(ctx, "show my stuff")
	gt.NoError(t, err)
	gt.Equal(t, reply, "You have 2 task(s).")
	gt.Equal(t, mock.generateCalls, 0)

	// The skill reply is still persisted as an exchange.
	stats, err := a.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Memory.TotalMemories, 1)
}

func TestChatFoldsSkillNoteIntoSystemInstruction(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{response: "All set!"}
	skill := &stubSkill{result: &model.SkillResult{
		Success:       true,
		Message:       "Reminder saved",
		ShouldRespond: true,
		ResponseHint:  "confirm the time",
	}}
	a := newAssistant(t, mock, skill)

	reply, err := a.Chat(ctx, "remind me later")
	gt.NoError(t, err)
	gt.Equal(t, reply, "All set!")
	gt.Equal(t, mock.generateCalls, 1)

	instruction := systemInstructionText(mock.lastConfig)
	gt.S(t, instruction).Contains("[Task completed] Reminder saved (confirm the time). Confirm this to the user naturally.")
}

func TestChatSendsHistory(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{response: "second reply"}
	a := newAssistant(t, mock)

	_, err := a.Chat(ctx, "first message")
	gt.NoError(t, err)
	_, err = a.Chat(ctx, "second message")
	gt.NoError(t, err)

	// History pair plus the current turn.
	gt.Equal(t, len(mock.lastContents), 3)
	gt.Equal(t, mock.lastContents[0].Role, genai.RoleUser)
	gt.Equal(t, mock.lastContents[1].Role, genai.RoleModel)
	gt.Equal(t, mock.lastContents[2].Parts[0].Text, "second message")
}

func TestChatGenerateError(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{genErr: errors.New("quota exceeded")}
	a := newAssistant(t, mock)

	_, err := a.Chat(ctx, "hello there")
	gt.Error(t, err)

	// A failed call leaves nothing behind in memory.
	stats, err := a.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Memory.TotalMemories, 0)
}

func TestChatStreamDrainPersists(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{chunks: []string{"Once ", "upon ", "a time."}}
	a := newAssistant(t, mock)

	seq, err := a.ChatStream(ctx, "tell me a story")
	gt.NoError(t, err)

	var full string
	for chunk, err := range seq {
		gt.NoError(t, err)
		full += chunk
	}
	gt.Equal(t, full, "Once upon a time.")

	stats, err := a.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Memory.TotalMemories, 1)
}

func TestChatStreamAbandonedNotPersisted(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{chunks: []string{"Once ", "upon ", "a time."}}
	a := newAssistant(t, mock)

	seq, err := a.ChatStream(ctx, "tell me a story")
	gt.NoError(t, err)

	for range seq {
		break
	}

	stats, err := a.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Memory.TotalMemories, 0)
}

func TestChatStreamError(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{chunks: []string{"partial "}, streamErr: errors.New("connection reset")}
	a := newAssistant(t, mock)

	seq, err := a.ChatStream(ctx, "tell me a story")
	gt.NoError(t, err)

	var streamErr error
	for _, err := range seq {
		if err != nil {
			streamErr = err
		}
	}
	gt.Error(t, streamErr)

	// A broken stream is never written back.
	stats, err := a.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Memory.TotalMemories, 0)
}

func TestChatStreamSkillShortCircuit(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{}
	skill := &stubSkill{result: &model.SkillResult{
		Success:       true,
		Message:       "Here is your list.",
		ShouldRespond: false,
	}}
	a := newAssistant(t, mock, skill)

	seq, err := a.ChatStream(ctx, "show the list")
	gt.NoError(t, err)

	var chunks []string
	for chunk, err := range seq {
		gt.NoError(t, err)
		chunks = append(chunks, chunk)
	}
	gt.Equal(t, len(chunks), 1)
	gt.Equal(t, chunks[0], "Here is your list.")
}

func TestChatExtractsFacts(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{response: "Nice to meet you, Alice!"}
	a := newAssistant(t, mock)

	_, err := a.Chat(ctx, "my name is Alice")
	gt.NoError(t, err)

	facts, err := a.Recall(ctx, "name", 5, []model.MemoryType{model.MemoryFact})
	gt.NoError(t, err)
	gt.Equal(t, len(facts), 1)
	gt.Equal(t, facts[0].Entry.Content, "my name is Alice")
}

func TestRememberAndRecall(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{}
	a := newAssistant(t, mock)

	id, err := a.Remember(ctx, "the garage code is 9944")
	gt.NoError(t, err)
	gt.True(t, id != "")

	results, err := a.Recall(ctx, "garage code", 5, nil)
	gt.NoError(t, err)
	gt.Equal(t, len(results), 1)
	gt.Equal(t, results[0].Entry.Content, "the garage code is 9944")
}

func TestNewSessionClearsBufferOnly(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{response: "hello!"}
	a := newAssistant(t, mock)

	_, err := a.Chat(ctx, "good morning")
	gt.NoError(t, err)

	a.NewSession(ctx)

	stats, err := a.Stats(ctx)
	gt.NoError(t, err)
	gt.Equal(t, stats.Memory.ConversationBufferSize, 0)
	gt.Equal(t, stats.Memory.TotalMemories, 1)
}

func TestShutdownIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mock := &mockGemini{}
	a := newAssistant(t, mock)

	gt.NoError(t, a.Shutdown(ctx))
	gt.NoError(t, a.Shutdown(ctx))
}

func TestCapabilities(t *testing.T) {
	mock := &mockGemini{}
	a := newAssistant(t, mock, &stubSkill{})

	gt.S(t, a.Capabilities()).Contains("stub skill")
}
