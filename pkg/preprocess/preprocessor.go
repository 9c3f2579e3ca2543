package preprocess

import (
	"context"
	"strings"
	"time"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Preprocessor cleans user input, detects the intent, and extracts typed
// entities. It holds only precompiled pattern tables; there is no mutable
// state across calls.
type Preprocessor struct {
	order []model.IntentType
	table map[model.IntentType][]intentPattern
	extra map[model.IntentType][]string
	now   func() time.Time
}

// Option is a functional option for Preprocessor
type Option func(*Preprocessor)

// WithClock overrides the time source used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(p *Preprocessor) {
		p.now = now
	}
}

// WithIntentPatterns merges extra regex sources into the built-in intent
// table. Sources are compiled case-insensitively.
func WithIntentPatterns(extra map[model.IntentType][]string) Option {
	return func(p *Preprocessor) {
		p.extra = extra
	}
}

// New creates a Preprocessor with all pattern tables compiled.
func New(opts ...Option) (*Preprocessor, error) {
	p := &Preprocessor{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	order, table, err := compileIntents(p.extra)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile intent patterns")
	}
	p.order = order
	p.table = table

	return p, nil
}

// Preprocess produces the structured input for one user turn. The original
// text is preserved unmodified for audit; entities are extracted from it,
// while classification runs on the cleaned form.
func (p *Preprocessor) Preprocess(ctx context.Context, text string) *model.PreprocessedInput {
	cleaned := cleanText(text)
	intent, confidence := classify(p.order, p.table, cleaned)

	now := p.now()
	var entities []model.ExtractedEntity
	entities = append(entities, extractDatetime(text, now)...)
	entities = append(entities, extractDuration(text)...)
	entities = append(entities, extractQuoted(text)...)
	entities = append(entities, extractNumbers(text)...)

	logging.From(ctx).Debug("preprocessed input",
		"intent", intent,
		"confidence", confidence,
		"entities", len(entities),
	)

	return &model.PreprocessedInput{
		OriginalText:     text,
		CleanedText:      cleaned,
		Intent:           intent,
		IntentConfidence: confidence,
		Entities:         entities,
		Metadata:         map[string]any{},
	}
}

// cleanText collapses whitespace runs to single spaces and trims the ends.
// It never removes semantic content.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
