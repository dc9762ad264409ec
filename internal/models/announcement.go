package models

import "time"

// Announcement is a site-wide broadcast in the announcements collection.
type Announcement struct {
	ID      string    `json:"id"`      // Document id.
	Content string    `json:"content"` // Broadcast text.
	Active  bool      `json:"active"`  // Always true on creation.
	Date    time.Time `json:"date"`    // Publication timestamp.
}
