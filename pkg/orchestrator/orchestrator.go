package orchestrator

import (
	"context"
	"sort"
	"strings"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
	"github.com/IamTinashe/personal-assistant-agent/pkg/skill"
	"github.com/IamTinashe/personal-assistant-agent/pkg/utils/logging"
)

// Orchestrator routes preprocessed input to the first capable skill.
// Skills are indexed by supported intent and kept sorted by priority; a
// full-registry fallback scan covers inputs whose intent no registered
// skill claims. At most one skill executes per input.
type Orchestrator struct {
	skills       map[string]skill.Skill
	names        []string // registration order
	intentSkills map[model.IntentType][]skill.Skill
	initialized  bool
}

// New creates an empty Orchestrator. Register skills, then call Init.
func New() *Orchestrator {
	return &Orchestrator{
		skills:       make(map[string]skill.Skill),
		intentSkills: make(map[model.IntentType][]skill.Skill),
	}
}

// Register adds a skill to the registry and indexes it by intent. The
// per-intent lists are re-sorted on every registration; the sort is
// stable, so equal priorities keep registration order.
func (o *Orchestrator) Register(ctx context.Context, s skill.Skill) {
	logger := logging.From(ctx)

	if _, ok := o.skills[s.Name()]; ok {
		logger.Warn("overwriting existing skill", "skill", s.Name())
	} else {
		o.names = append(o.names, s.Name())
	}
	o.skills[s.Name()] = s

	for _, intent := range s.SupportedIntents() {
		o.intentSkills[intent] = append(o.intentSkills[intent], s)
		list := o.intentSkills[intent]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() < list[j].Priority()
		})
	}

	logger.Info("registered skill", "skill", s.Name(), "intents", s.SupportedIntents())
}

// Unregister removes a skill from the registry and the intent index.
func (o *Orchestrator) Unregister(name string) bool {
	s, ok := o.skills[name]
	if !ok {
		return false
	}
	delete(o.skills, name)
	for i, n := range o.names {
		if n == name {
			o.names = append(o.names[:i], o.names[i+1:]...)
			break
		}
	}

	for _, intent := range s.SupportedIntents() {
		list := o.intentSkills[intent]
		kept := list[:0]
		for _, candidate := range list {
			if candidate.Name() != name {
				kept = append(kept, candidate)
			}
		}
		o.intentSkills[intent] = kept
	}

	return true
}

// Init calls Setup on every registered skill. One setup failure is logged
// and does not block the others or abort startup.
func (o *Orchestrator) Init(ctx context.Context) {
	if o.initialized {
		return
	}

	logger := logging.From(ctx)
	for _, name := range o.names {
		if err := o.skills[name].Setup(ctx); err != nil {
			logger.Error("failed to set up skill", "skill", name, "error", err)
			continue
		}
		logger.Info("initialized skill", "skill", name)
	}

	o.initialized = true
}

// Shutdown calls Teardown on every skill, logging failures.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	logger := logging.From(ctx)
	for _, name := range o.names {
		if err := o.skills[name].Teardown(ctx); err != nil {
			logger.Error("failed to tear down skill", "skill", name, "error", err)
		}
	}
	o.initialized = false
}

// Process routes the input. It returns (true, result) from the first
// accepting skill, or (false, nil) when nothing accepts — the caller then
// falls back to a plain model completion.
func (o *Orchestrator) Process(ctx context.Context, input *model.PreprocessedInput) (bool, *model.SkillResult) {
	logger := logging.From(ctx)

	candidates := o.intentSkills[input.Intent]
	// GENERAL skills act as catch-alls for every other intent.
	if input.Intent != model.IntentGeneral {
		candidates = append(append([]skill.Skill{}, candidates...), o.intentSkills[model.IntentGeneral]...)
	}

	tried := make(map[string]bool, len(candidates))

	for _, s := range candidates {
		if tried[s.Name()] {
			continue
		}
		tried[s.Name()] = true

		if handled, result := o.try(ctx, s, input); handled {
			logger.Info("skill handled input", "skill", s.Name(), "intent", input.Intent)
			return true, result
		}
	}

	// Fallback: scan every skill not already tried, in registration order.
	for _, name := range o.names {
		if tried[name] {
			continue
		}
		s := o.skills[name]
		if handled, result := o.try(ctx, s, input); handled {
			logger.Info("fallback skill handled input", "skill", s.Name())
			return true, result
		}
	}

	return false, nil
}

// try runs one skill against the input. An Execute error counts as a
// decline so dispatch continues.
func (o *Orchestrator) try(ctx context.Context, s skill.Skill, input *model.PreprocessedInput) (bool, *model.SkillResult) {
	if !s.CanHandle(input) {
		return false, nil
	}

	result, err := s.Execute(ctx, input)
	if err != nil {
		logging.From(ctx).Error("skill execution failed", "skill", s.Name(), "error", err)
		return false, nil
	}

	return true, result
}

// Get returns a skill by name, or nil.
func (o *Orchestrator) Get(name string) skill.Skill {
	return o.skills[name]
}

// SkillInfo describes one registered skill.
type SkillInfo struct {
	Name        string
	Description string
	Intents     []model.IntentType
	Priority    model.SkillPriority
}

// List returns information about all registered skills in registration order.
func (o *Orchestrator) List() []SkillInfo {
	infos := make([]SkillInfo, 0, len(o.names))
	for _, name := range o.names {
		s := o.skills[name]
		infos = append(infos, SkillInfo{
			Name:        s.Name(),
			Description: s.Description(),
			Intents:     s.SupportedIntents(),
			Priority:    s.Priority(),
		})
	}
	return infos
}

// Capabilities renders a human-readable summary of what the skills can do.
func (o *Orchestrator) Capabilities() string {
	lines := []string{"I can help you with:"}
	for _, name := range o.names {
		lines = append(lines, "- "+o.skills[name].Description())
	}
	return strings.Join(lines, "\n")
}
