package skill

import (
	"context"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

// Skill is a named, intent-scoped handler. A skill may decline an input
// via CanHandle; if it accepts, Execute runs and its result either fully
// answers the user (ShouldRespond=false) or feeds the response generator.
//
// Declining and failing are expressed as return values: CanHandle returns
// false, Execute returns an error. The orchestrator logs an Execute error
// and moves on to the next candidate, so one broken skill never aborts
// dispatch.
type Skill interface {
	// Name is the unique identifier for the skill
	Name() string

	// Description is a human-readable summary of what the skill does
	Description() string

	// SupportedIntents lists the intents this skill registers for
	SupportedIntents() []model.IntentType

	// Priority orders skills within one intent; lower value wins
	Priority() model.SkillPriority

	// RequiresConfirmation reports whether execution needs user approval
	RequiresConfirmation() bool

	// CanHandle checks whether this skill accepts the input
	CanHandle(input *model.PreprocessedInput) bool

	// Execute runs the skill against the input
	Execute(ctx context.Context, input *model.PreprocessedInput) (*model.SkillResult, error)

	// Setup initializes skill resources (storage, connections)
	Setup(ctx context.Context) error

	// Teardown releases skill resources
	Teardown(ctx context.Context) error
}
