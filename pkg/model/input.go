package model

// Entity type names shared between the extractor and the skills.
const (
	EntityDatetime   = "datetime"
	EntityDate       = "date"
	EntityDuration   = "duration"
	EntityQuotedText = "quoted_text"
	EntityNumber     = "number"
)

// ExtractedEntity is one typed span pulled out of the user's text. Value
// holds the parsed form (time.Time, time.Duration, string, int, float64)
// while RawText preserves the matched span as written.
type ExtractedEntity struct {
	Type       string `json:"type"`
	Value      any    `json:"value"`
	RawText    string `json:"raw_text"`
	StartPos   int    `json:"start_pos"`
	EndPos     int    `json:"end_pos"`
	Confidence float64
}

// PreprocessedInput is the structured form of one user turn. OriginalText
// is never modified; entity offsets point into it.
type PreprocessedInput struct {
	OriginalText     string
	CleanedText      string
	Intent           IntentType
	IntentConfidence float64
	Entities         []ExtractedEntity
	Metadata         map[string]any
}

// Entity returns the first entity of the given type, or nil.
func (x *PreprocessedInput) Entity(entityType string) *ExtractedEntity {
	for i := range x.Entities {
		if x.Entities[i].Type == entityType {
			return &x.Entities[i]
		}
	}
	return nil
}

// EntitiesOf returns all entities of the given type in extraction order.
func (x *PreprocessedInput) EntitiesOf(entityType string) []ExtractedEntity {
	var matched []ExtractedEntity
	for _, e := range x.Entities {
		if e.Type == entityType {
			matched = append(matched, e)
		}
	}
	return matched
}
