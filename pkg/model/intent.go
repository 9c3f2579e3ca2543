package model

// IntentType classifies what the user is trying to do.
type IntentType string

const (
	IntentSetReminder       IntentType = "set_reminder"
	IntentCreateTask        IntentType = "create_task"
	IntentListTasks         IntentType = "list_tasks"
	IntentCompleteTask      IntentType = "complete_task"
	IntentDeleteTask        IntentType = "delete_task"
	IntentCreateEvent       IntentType = "create_event"
	IntentListEvents        IntentType = "list_events"
	IntentCheckAvailability IntentType = "check_availability"
	IntentCreateNote        IntentType = "create_note"
	IntentSearchNotes       IntentType = "search_notes"
	IntentQuestion          IntentType = "question"
	IntentSearch            IntentType = "search"
	IntentDefine            IntentType = "define"
	IntentGreeting          IntentType = "greeting"
	IntentFarewell          IntentType = "farewell"
	IntentThanks            IntentType = "thanks"
	IntentHelp              IntentType = "help"
	IntentGeneral           IntentType = "general"
	IntentUnknown           IntentType = "unknown"
)

// IntentOrder fixes the evaluation order of classifiable intents. When
// two intents match with equal confidence, the earlier one here wins, so
// classification is deterministic across runs.
var IntentOrder = []IntentType{
	IntentSetReminder,
	IntentCreateTask,
	IntentListTasks,
	IntentCompleteTask,
	IntentDeleteTask,
	IntentCreateEvent,
	IntentListEvents,
	IntentCheckAvailability,
	IntentCreateNote,
	IntentSearchNotes,
	IntentQuestion,
	IntentSearch,
	IntentDefine,
	IntentGreeting,
	IntentFarewell,
	IntentThanks,
	IntentHelp,
}

// Validate checks if the intent type is valid
func (t IntentType) Validate() error {
	switch t {
	case IntentSetReminder, IntentCreateTask, IntentListTasks, IntentCompleteTask,
		IntentDeleteTask, IntentCreateEvent, IntentListEvents, IntentCheckAvailability,
		IntentCreateNote, IntentSearchNotes, IntentQuestion, IntentSearch,
		IntentDefine, IntentGreeting, IntentFarewell, IntentThanks,
		IntentHelp, IntentGeneral, IntentUnknown:
		return nil
	default:
		return ErrInvalidIntent
	}
}
