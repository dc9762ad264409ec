package models

import "time"

// Feedback is a support ticket in the feedback collection.
type Feedback struct {
	ID        string     `json:"id"`                  // Document id.
	UID       string     `json:"uid,omitempty"`       // Submitter uid, empty when anonymous.
	Username  string     `json:"username,omitempty"`  // Submitter name.
	Type      string     `json:"type"`                // Free-form category tag.
	Content   string     `json:"content"`             // Ticket body.
	Contact   string     `json:"contact,omitempty"`   // Optional contact detail.
	Date      time.Time  `json:"date"`                // Submission timestamp.
	Reply     string     `json:"reply,omitempty"`     // Latest admin reply.
	ReplyDate *time.Time `json:"replyDate,omitempty"` // Latest admin reply timestamp.
}
