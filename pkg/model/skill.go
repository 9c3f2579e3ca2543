package model

// SkillPriority orders skills competing for one intent; lower wins.
type SkillPriority int

const (
	PriorityCritical SkillPriority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityBackground
)

func (p SkillPriority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

// SkillResult is what a skill produced for one input. When ShouldRespond
// is true the response generator phrases a reply around ResponseHint;
// when false, Message is shown to the user as-is.
type SkillResult struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data,omitempty"`
	ShouldRespond bool           `json:"should_respond"`
	ResponseHint  string         `json:"response_hint,omitempty"`
}
