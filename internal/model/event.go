package model

// EventKind identifies a domain event produced by a state-changing operation.
// Events are turned into notifications by the notify dispatcher; business
// logic never writes notification rows directly.
type EventKind string

const (
	EventDeadlineExtended  EventKind = "deadline_extended"
	EventAchievementEarned EventKind = "achievement_earned"
	EventCommentAdded      EventKind = "comment_added"
	EventPathAssigned      EventKind = "path_assigned"
	EventPathCompleted     EventKind = "path_completed"
)

// Event is an in-process domain event addressed to one recipient. Data feeds
// the localized message template for the event kind.
type Event struct {
	Kind          EventKind
	RecipientID   int64
	RecipientKind RecipientKind
	RelatedID     *int64
	Data          map[string]any
}
