package models

import (
	"time"

	"gorm.io/datatypes"
)

// Logical collection names shared by every document store backend.
const (
	CollectionUsers         = "users"
	CollectionDiaries       = "diaries"
	CollectionNotifications = "notifications"
	CollectionFeedback      = "feedback"
	CollectionAnnouncements = "announcements"
)

// Collections lists every logical collection in subscription order.
var Collections = []string{
	CollectionUsers,
	CollectionDiaries,
	CollectionNotifications,
	CollectionFeedback,
	CollectionAnnouncements,
}

// Document stores one JSON document of a logical collection in SQL backends.
type Document struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Collection string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_documents_collection_key,priority:1;index:idx_documents_collection_updated,priority:1"` // Logical collection name.
	Key        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_documents_collection_key,priority:2"`                                                 // Document id within the collection.
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`                                                                                                            // Document body.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"`                                                           // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index:idx_documents_collection_updated,priority:2"` // Last update timestamp.
}

// TableName pins the table name for documents.
func (Document) TableName() string { return "documents" }
