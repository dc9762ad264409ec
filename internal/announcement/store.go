// Package announcement holds the site-wide broadcast and its per-client seen gate.
package announcement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/DiaryHub/internal/cache"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
	log "github.com/sirupsen/logrus"
)

// ErrContentRequired rejects an empty broadcast.
var ErrContentRequired = errors.New("content is required")

// Store is the announcement store backed by the announcements collection.
// Superseded announcements stay stored; the newest by date is current.
type Store struct {
	docs    docstore.Store
	items   *cache.Collection[models.Announcement]
	current *cache.View[*models.Announcement]
	now     func() time.Time
	newID   func() string
}

// NewStore constructs an announcement store; Start must be called before use.
func NewStore(docs docstore.Store) *Store {
	items := cache.NewCollection(func(a models.Announcement) string { return a.ID }, nil)
	return &Store{
		docs:    docs,
		items:   items,
		current: cache.NewView(items, newest),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Start subscribes to the announcements collection.
func (s *Store) Start(ctx context.Context) error {
	if s == nil || s.docs == nil {
		return fmt.Errorf("announcement: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errWatch := s.docs.Watch(ctx, models.CollectionAnnouncements, func(docs []models.Document) {
		s.items.Replace(docstore.Decode[models.Announcement](docs))
	}); errWatch != nil {
		return fmt.Errorf("announcement: watch: %w", errWatch)
	}
	return nil
}

// Current returns the most recent announcement.
func (s *Store) Current() (models.Announcement, bool) {
	a := s.current.Get()
	if a == nil {
		return models.Announcement{}, false
	}
	return *a, true
}

// SetAnnouncement publishes a new announcement; non-admin callers are ignored.
func (s *Store) SetAnnouncement(ctx context.Context, scope *session.Scope, content string) (models.Announcement, error) {
	if !scope.IsAdmin() {
		return models.Announcement{}, nil
	}
	if strings.TrimSpace(content) == "" {
		return models.Announcement{}, ErrContentRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a := models.Announcement{
		ID:      s.newID(),
		Content: content,
		Active:  true,
		Date:    s.now().UTC(),
	}
	if errPut := docstore.PutJSON(ctx, s.docs, models.CollectionAnnouncements, a.ID, a); errPut != nil {
		return models.Announcement{}, docstore.Persisted("announcement", errPut)
	}
	log.Infof("announcement: %s published by %s", a.ID, scope.UID())
	return a, nil
}

// ClearAnnouncement removes the current announcement; non-admin callers are ignored.
func (s *Store) ClearAnnouncement(ctx context.Context, scope *session.Scope) error {
	if !scope.IsAdmin() {
		return nil
	}
	a, ok := s.Current()
	if !ok {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return docstore.Persisted("announcement", s.docs.Delete(ctx, models.CollectionAnnouncements, a.ID))
}

// newest picks the latest by date; on equal dates the later snapshot entry wins.
func newest(items []models.Announcement) *models.Announcement {
	var best *models.Announcement
	for i := range items {
		if best == nil || !items[i].Date.Before(best.Date) {
			best = &items[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
