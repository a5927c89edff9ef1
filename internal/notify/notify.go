// Package notify is the single path from domain events to stored
// notifications. State-changing operations return events; the Emitter renders
// them into localized, unread notification records. No other component writes
// notification rows.
package notify

import (
	"fmt"
	"log/slog"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"

	appI18n "github.com/akosarev/mentorio/internal/i18n"
	"github.com/akosarev/mentorio/internal/model"
	"github.com/akosarev/mentorio/internal/store"
)

// rendering maps an event kind to its notification category and message ids.
type rendering struct {
	category  model.NotificationCategory
	titleID   string
	messageID string
}

var renderings = map[model.EventKind]rendering{
	model.EventDeadlineExtended:  {model.CategoryDeadline, "DeadlineExtendedTitle", "DeadlineExtendedMsg"},
	model.EventAchievementEarned: {model.CategoryAchievement, "AchievementEarnedTitle", "AchievementEarnedMsg"},
	model.EventCommentAdded:      {model.CategorySystem, "CommentAddedTitle", "CommentAddedMsg"},
	model.EventPathAssigned:      {model.CategoryAssignment, "PathAssignedTitle", "PathAssignedMsg"},
	model.EventPathCompleted:     {model.CategorySystem, "PathCompletedTitle", "PathCompletedMsg"},
}

// Emitter persists notifications. It is a local durable write with no
// delivery mechanism beyond storage, so no retry logic exists here.
type Emitter struct {
	store *store.Store
	loc   *goi18n.Localizer
}

// New creates an emitter rendering messages in the given language.
func New(s *store.Store, lang string) *Emitter {
	return &Emitter{store: s, loc: appI18n.NewLocalizer(lang)}
}

// Dispatch renders each event into one unread notification and persists it.
func (e *Emitter) Dispatch(events []model.Event) ([]model.Notification, error) {
	var created []model.Notification
	for _, ev := range events {
		r, ok := renderings[ev.Kind]
		if !ok {
			return created, fmt.Errorf("no rendering for event kind %q", ev.Kind)
		}
		n, err := e.store.CreateNotification(model.Notification{
			RecipientID:   ev.RecipientID,
			RecipientKind: ev.RecipientKind,
			Title:         appI18n.Localize(e.loc, r.titleID, ev.Data),
			Message:       appI18n.Localize(e.loc, r.messageID, ev.Data),
			Category:      r.category,
			RelatedID:     ev.RelatedID,
		})
		if err != nil {
			return created, fmt.Errorf("create notification for %s: %w", ev.Kind, err)
		}
		slog.Info("dispatched notification",
			"kind", ev.Kind,
			"recipient_id", ev.RecipientID,
			"recipient_kind", ev.RecipientKind,
		)
		created = append(created, n)
	}
	return created, nil
}

// ListForRecipient returns a recipient's notifications, newest first, with
// the unread count.
func (e *Emitter) ListForRecipient(recipientID int64, kind model.RecipientKind) ([]model.Notification, int, error) {
	notifications, err := e.store.ListNotifications(recipientID, kind)
	if err != nil {
		return nil, 0, err
	}
	unread, err := e.store.UnreadNotificationCount(recipientID, kind)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

// MarkRead advances one notification's read flag for the given recipient.
func (e *Emitter) MarkRead(id string, recipientID int64, kind model.RecipientKind) error {
	return e.store.MarkNotificationRead(id, recipientID, kind)
}

// MarkAllRead advances the read flag on all of a recipient's notifications.
func (e *Emitter) MarkAllRead(recipientID int64, kind model.RecipientKind) error {
	return e.store.MarkAllNotificationsRead(recipientID, kind)
}
