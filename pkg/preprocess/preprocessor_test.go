package preprocess_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/preprocess"
)

func newPreprocessor(t *testing.T, opts ...preprocess.Option) *preprocess.Preprocessor {
	p, err := preprocess.New(opts...)
	gt.NoError(t, err)
	return p
}

func TestPreprocessReminderScenario(t *testing.T) {
	now := time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC)
	p := newPreprocessor(t, preprocess.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	input := p.Preprocess(ctx, "Remind me to call mom tomorrow at 3pm")

	gt.Equal(t, input.Intent, model.IntentSetReminder)
	gt.True(t, input.IntentConfidence >= 0.6)

	dt := input.Entity(model.EntityDatetime)
	gt.V(t, dt).NotNil()

	parsed, ok := dt.Value.(time.Time)
	gt.True(t, ok)

	gt.Equal(t, parsed.Day(), 25)
	gt.Equal(t, parsed.Hour(), 15)
}

func TestPreprocessQuotedTaskScenario(t *testing.T) {
	p := newPreprocessor(t)
	ctx := context.Background()

	input := p.Preprocess(ctx, `Add task "buy milk"`)

	gt.Equal(t, input.Intent, model.IntentCreateTask)

	quoted := input.Entity(model.EntityQuotedText)
	gt.V(t, quoted).NotNil()
	gt.Equal(t, quoted.Value, "buy milk")
}

func TestClassificationIdempotent(t *testing.T) {
	p := newPreprocessor(t)
	ctx := context.Background()

	messages := []string{
		"Remind me to call mom tomorrow at 3pm",
		"what is the capital of France?",
		"hello there",
		"thanks a lot",
		"completely unclassifiable gibberish xyzzy",
	}

	for _, msg := range messages {
		first := p.Preprocess(ctx, msg)
		for i := 0; i < 5; i++ {
			again := p.Preprocess(ctx, msg)
			gt.Equal(t, again.Intent, first.Intent)
			gt.Equal(t, again.IntentConfidence, first.IntentConfidence)
		}
	}
}

func TestClassifyNoMatchFallsBackToGeneral(t *testing.T) {
	p := newPreprocessor(t)

	input := p.Preprocess(context.Background(), "zzz qqq xxx")
	gt.Equal(t, input.Intent, model.IntentGeneral)
	gt.Equal(t, input.IntentConfidence, 0.5)
}

func TestCleanTextPreservesContent(t *testing.T) {
	p := newPreprocessor(t)

	input := p.Preprocess(context.Background(), "  hello    world\t\n again ")
	gt.Equal(t, input.CleanedText, "hello world again")
	gt.Equal(t, input.OriginalText, "  hello    world\t\n again ")
}

func TestRelativeTimeEntity(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	p := newPreprocessor(t, preprocess.WithClock(func() time.Time { return now }))

	input := p.Preprocess(context.Background(), "remind me in 2 hours")

	dt := input.Entity(model.EntityDatetime)
	gt.V(t, dt).NotNil()

	parsed := dt.Value.(time.Time)
	want := now.Add(2 * time.Hour)
	diff := parsed.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	gt.True(t, diff <= time.Minute)
}

func TestRelativeDayEntities(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC) // a Monday
	p := newPreprocessor(t, preprocess.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	testCases := []struct {
		text string
		want time.Time
	}{
		{"see you tomorrow", time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)},
		{"do it today", time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)},
		{"dinner tonight", time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC)},
		{"next friday works", time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)},
		{"next week then", time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			input := p.Preprocess(ctx, tc.text)
			dt := input.Entity(model.EntityDatetime)
			gt.V(t, dt).NotNil()
			gt.Equal(t, dt.Value.(time.Time), tc.want)
		})
	}
}

func TestClockTimeRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC)
	p := newPreprocessor(t, preprocess.WithClock(func() time.Time { return now }))

	// 3pm already passed at 18:00, so the entity lands on tomorrow.
	input := p.Preprocess(context.Background(), "call me at 3pm")

	dt := input.Entity(model.EntityDatetime)
	gt.V(t, dt).NotNil()

	parsed := dt.Value.(time.Time)
	gt.Equal(t, parsed.Day(), 25)
	gt.Equal(t, parsed.Hour(), 15)
}

func TestDurationEntity(t *testing.T) {
	p := newPreprocessor(t)

	input := p.Preprocess(context.Background(), "block my calendar for 2 hours")

	d := input.Entity(model.EntityDuration)
	gt.V(t, d).NotNil()
	gt.Equal(t, d.Value.(time.Duration), 2*time.Hour)
}

func TestNumberEntitySuppressedNearDelimiters(t *testing.T) {
	p := newPreprocessor(t)
	ctx := context.Background()

	// Plain numbers are extracted.
	input := p.Preprocess(ctx, "buy 3 apples")
	num := input.Entity(model.EntityNumber)
	gt.V(t, num).NotNil()
	gt.Equal(t, num.Value, 3)

	// Time components are not.
	input = p.Preprocess(ctx, "meet at 15:30")
	gt.V(t, input.Entity(model.EntityNumber)).Nil()
}

func TestNumberEntityDecimal(t *testing.T) {
	p := newPreprocessor(t)

	input := p.Preprocess(context.Background(), "it weighs 2.5 kilos")
	num := input.Entity(model.EntityNumber)
	gt.V(t, num).NotNil()
	gt.Equal(t, num.Value, 2.5)
}

func TestCustomIntentPatterns(t *testing.T) {
	p := newPreprocessor(t, preprocess.WithIntentPatterns(map[model.IntentType][]string{
		model.IntentSetReminder: {`ping\s+me`},
	}))

	input := p.Preprocess(context.Background(), "ping me before the meeting")
	gt.Equal(t, input.Intent, model.IntentSetReminder)
}

func TestCustomPatternsForUncoveredIntent(t *testing.T) {
	// delete_task has no built-in patterns; a user-supplied table must
	// still reach it.
	p := newPreprocessor(t, preprocess.WithIntentPatterns(map[model.IntentType][]string{
		model.IntentDeleteTask: {`remove\s+task`},
	}))

	input := p.Preprocess(context.Background(), "remove task 2")
	gt.Equal(t, input.Intent, model.IntentDeleteTask)
}

func TestInvalidCustomPatternFails(t *testing.T) {
	_, err := preprocess.New(preprocess.WithIntentPatterns(map[model.IntentType][]string{
		model.IntentSetReminder: {`broken(`},
	}))
	gt.Error(t, err)
}
