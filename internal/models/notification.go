package models

import "time"

// NotificationType tags the origin of a notification.
type NotificationType string

// Notification types.
const (
	NotificationReply  NotificationType = "reply"
	NotificationFollow NotificationType = "follow"
	NotificationLike   NotificationType = "like"
	NotificationSystem NotificationType = "system"
)

// Notification is a mailbox item in the notifications collection.
type Notification struct {
	ID        string           `json:"id"`        // Document id.
	TargetUID string           `json:"targetUid"` // Recipient uid.
	Type      NotificationType `json:"type"`      // Origin tag.
	Content   string           `json:"content"`   // Rendered message.
	Date      time.Time        `json:"date"`      // Creation timestamp.
	Read      bool             `json:"read"`      // Read flag, the only mutable field.
}
