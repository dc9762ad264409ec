// Package notification implements the per-user mailbox fed by social actions.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/DiaryHub/internal/cache"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
	log "github.com/sirupsen/logrus"
)

// Store is the notification store backed by the notifications collection.
type Store struct {
	docs  docstore.Store
	items *cache.Collection[models.Notification]
	now   func() time.Time
	newID func() string
}

// NewStore constructs a notification store; Start must be called before use.
func NewStore(docs docstore.Store) *Store {
	return &Store{
		docs:  docs,
		items: cache.NewCollection(func(n models.Notification) string { return n.ID }, nil),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Start subscribes to the notifications collection.
func (s *Store) Start(ctx context.Context) error {
	if s == nil || s.docs == nil {
		return fmt.Errorf("notification: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errWatch := s.docs.Watch(ctx, models.CollectionNotifications, func(docs []models.Document) {
		s.items.Replace(docstore.Decode[models.Notification](docs))
	}); errWatch != nil {
		return fmt.Errorf("notification: watch: %w", errWatch)
	}
	return nil
}

// Subscribe registers fn to run after every notifications snapshot and returns its
// cancel func.
func (s *Store) Subscribe(fn func()) func() { return s.items.Subscribe(fn) }

// Notify appends a notification for targetUID. Failures are logged and dropped.
func (s *Store) Notify(ctx context.Context, targetUID string, kind models.NotificationType, content string) {
	if s == nil || targetUID == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	n := models.Notification{
		ID:        s.newID(),
		TargetUID: targetUID,
		Type:      kind,
		Content:   content,
		Date:      s.now().UTC(),
	}
	if errPut := docstore.PutJSON(ctx, s.docs, models.CollectionNotifications, n.ID, n); errPut != nil {
		log.WithError(errPut).Warnf("notification: append %s for %s failed", kind, targetUID)
	}
}

// Notification returns one notification by id.
func (s *Store) Notification(id string) (models.Notification, bool) { return s.items.Get(id) }

// ForUser lists the notifications of uid, newest first.
func (s *Store) ForUser(uid string) []models.Notification {
	out := s.items.Filter(func(n models.Notification) bool { return n.TargetUID == uid })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// UnreadCount counts the unread notifications of uid.
func (s *Store) UnreadCount(uid string) int {
	return len(s.items.Filter(func(n models.Notification) bool { return n.TargetUID == uid && !n.Read }))
}

// MarkAsRead flags one notification as read. Only the recipient may flag it;
// other callers and missing ids are ignored.
func (s *Store) MarkAsRead(ctx context.Context, scope *session.Scope, id string) error {
	n, ok := s.items.Get(id)
	if !ok || n.Read || n.TargetUID != scope.UID() {
		return nil
	}
	n.Read = true
	return s.put(ctx, n)
}

// MarkAllAsRead flags the unread notifications of uid present at call time.
func (s *Store) MarkAllAsRead(ctx context.Context, scope *session.Scope, uid string) error {
	if uid == "" || (scope.UID() != uid && !scope.IsAdmin()) {
		return nil
	}
	unread := s.items.Filter(func(n models.Notification) bool { return n.TargetUID == uid && !n.Read })
	var errs []error
	for _, n := range unread {
		n.Read = true
		if errPut := s.put(ctx, n); errPut != nil {
			errs = append(errs, errPut)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) put(ctx context.Context, n models.Notification) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return docstore.Persisted("notification", docstore.PutJSON(ctx, s.docs, models.CollectionNotifications, n.ID, n))
}
