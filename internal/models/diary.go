package models

import "time"

// Visibility controls who may read a diary entry.
type Visibility string

// Supported visibility modes.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilitySecret  Visibility = "secret"
	VisibilityGroup   Visibility = "group"
)

// Valid reports whether v is a known visibility mode.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilitySecret, VisibilityGroup:
		return true
	default:
		return false
	}
}

// Diary is a journal entry in the diaries collection.
type Diary struct {
	ID         string    `json:"id"`                   // Document id.
	UID        string    `json:"uid"`                  // Author uid, immutable.
	AuthorName string    `json:"authorName"`           // Author username at creation time.
	Title      string    `json:"title"`                // Entry title.
	Content    string    `json:"content"`              // Entry body.
	CoverImage string    `json:"coverImage,omitempty"` // Optional embedded image data.
	Date       time.Time `json:"date"`                 // Creation timestamp, immutable.
	LastEdited time.Time `json:"lastEdited"`           // Last title/content/cover change.

	Visibility   Visibility `json:"visibility"`             // Access mode.
	SecretKey    string     `json:"secretKey,omitempty"`    // Shared secret when visibility is secret.
	AllowedUsers []string   `json:"allowedUsers,omitempty"` // Usernames when visibility is group.

	MajorEvents []string `json:"majorEvents"` // Extracted events in extraction order.
	IsPinned    bool     `json:"isPinned"`    // Admin pin flag.
	LikedBy     []string `json:"likedBy"`     // UIDs that liked the entry.
}

// Clone returns a deep copy of the diary.
func (d Diary) Clone() Diary {
	out := d
	out.AllowedUsers = CloneStrings(d.AllowedUsers)
	out.MajorEvents = CloneStrings(d.MajorEvents)
	out.LikedBy = CloneStrings(d.LikedBy)
	return out
}
