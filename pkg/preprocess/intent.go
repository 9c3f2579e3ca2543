package preprocess

import (
	"regexp"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

// intentPatterns maps each intent to the regex sources that signal it.
// Sources are kept without flags; compilation prepends (?i) so the
// specificity heuristic below measures the raw pattern length.
var intentPatterns = map[model.IntentType][]string{
	model.IntentSetReminder: {
		`remind\s+me`,
		`set\s+(?:a\s+)?reminder`,
		`don'?t\s+let\s+me\s+forget`,
		`alert\s+me`,
	},
	model.IntentCreateTask: {
		`add\s+(?:a\s+)?task`,
		`create\s+(?:a\s+)?task`,
		`add\s+to\s+(?:my\s+)?(?:to-?do|list)`,
		`i\s+need\s+to`,
	},
	model.IntentListTasks: {
		`(?:show|list|what\s+are)\s+(?:my\s+)?tasks`,
		`(?:show|list)\s+(?:my\s+)?to-?do`,
		`what\s+(?:do\s+i\s+have|is)\s+on\s+my\s+(?:list|plate)`,
	},
	model.IntentCompleteTask: {
		`(?:mark|set)\s+.*?\s+(?:as\s+)?(?:done|complete|finished)`,
		`i(?:'ve)?\s+(?:done|finished|completed)`,
	},
	model.IntentCreateEvent: {
		`schedule\s+(?:a\s+)?(?:meeting|event|appointment)`,
		`add\s+(?:a\s+)?(?:meeting|event|appointment)`,
		`book\s+(?:a\s+)?(?:meeting|room|time)`,
	},
	model.IntentListEvents: {
		`(?:show|what(?:'s)?|list)\s+(?:my\s+)?(?:calendar|schedule|events)`,
		`what\s+(?:do\s+i\s+have|is)\s+(?:on|scheduled)`,
	},
	model.IntentCheckAvailability: {
		`am\s+i\s+(?:free|available|busy)`,
		`do\s+i\s+have\s+(?:anything|something)`,
		`check\s+(?:my\s+)?availability`,
	},
	model.IntentCreateNote: {
		`(?:take|make|create|add)\s+(?:a\s+)?note`,
		`(?:write|jot)\s+(?:this\s+)?down`,
		`remember\s+(?:that|this)`,
	},
	model.IntentSearchNotes: {
		`(?:find|search|look\s+for)\s+(?:my\s+)?note`,
		`what\s+did\s+i\s+(?:write|note)`,
	},
	model.IntentQuestion: {
		`^(?:what|who|where|when|why|how|which|is|are|can|could|would|will|do|does)\b`,
		`\?$`,
	},
	model.IntentSearch: {
		`(?:search|look\s+up|find|google)`,
	},
	model.IntentDefine: {
		`(?:what\s+is|define|meaning\s+of|explain)`,
	},
	model.IntentGreeting: {
		`^(?:hi|hello|hey|good\s+(?:morning|afternoon|evening)|greetings)`,
	},
	model.IntentFarewell: {
		`^(?:bye|goodbye|see\s+you|talk\s+(?:to\s+you\s+)?later|good\s+night)`,
	},
	model.IntentThanks: {
		`(?:thank|thanks|thx|appreciate)`,
	},
	model.IntentHelp: {
		`(?:help|assist|support|how\s+(?:do|can)\s+(?:i|you))`,
		`what\s+can\s+you\s+do`,
	},
}

type intentPattern struct {
	re     *regexp.Regexp
	source string
}

// compileIntents builds the classification table in model.IntentOrder so
// that confidence ties always resolve the same way.
func compileIntents(extra map[model.IntentType][]string) ([]model.IntentType, map[model.IntentType][]intentPattern, error) {
	merged := make(map[model.IntentType][]string, len(intentPatterns))
	for intent, sources := range intentPatterns {
		merged[intent] = append(merged[intent], sources...)
	}
	for intent, sources := range extra {
		merged[intent] = append(merged[intent], sources...)
	}

	order := make([]model.IntentType, 0, len(merged))
	compiled := make(map[model.IntentType][]intentPattern, len(merged))
	for _, intent := range model.IntentOrder {
		sources, ok := merged[intent]
		if !ok {
			continue
		}
		patterns := make([]intentPattern, 0, len(sources))
		for _, src := range sources {
			re, err := regexp.Compile("(?i)" + src)
			if err != nil {
				return nil, nil, err
			}
			patterns = append(patterns, intentPattern{re: re, source: src})
		}
		order = append(order, intent)
		compiled[intent] = patterns
	}
	return order, compiled, nil
}

// classify maps cleaned text to exactly one (intent, confidence) pair.
// Pure function over the compiled table: same text, same result.
func classify(order []model.IntentType, table map[model.IntentType][]intentPattern, text string) (model.IntentType, float64) {
	best := model.IntentGeneral
	bestConfidence := 0.0

	for _, intent := range order {
		for _, p := range table[intent] {
			if !p.re.MatchString(text) {
				continue
			}
			// Longer patterns are specific enough to trust more.
			confidence := 0.6
			if len(p.source) > 20 {
				confidence = 0.8
			}
			if confidence > bestConfidence {
				best = intent
				bestConfidence = confidence
			}
			break
		}
	}

	if bestConfidence == 0 {
		return model.IntentGeneral, 0.5
	}
	return best, bestConfidence
}
