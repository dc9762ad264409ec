// Package feedback implements the support-ticket mailbox and its admin reply workflow.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/DiaryHub/internal/cache"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
	log "github.com/sirupsen/logrus"
)

// AnonymousName is recorded as the submitter of anonymous tickets.
const AnonymousName = "Guest"

// replyPreviewRunes bounds the reply excerpt in the submitter's notification.
const replyPreviewRunes = 20

var (
	ErrContentRequired = errors.New("content is required")
	ErrReplyRequired   = errors.New("reply is required")
)

// Notifier receives the reply notifications.
type Notifier interface {
	Notify(ctx context.Context, targetUID string, kind models.NotificationType, content string)
}

// Store is the feedback store backed by the feedback collection.
type Store struct {
	docs     docstore.Store
	notifier Notifier
	items    *cache.Collection[models.Feedback]
	now      func() time.Time
	newID    func() string
}

// NewStore constructs a feedback store; Start must be called before use.
func NewStore(docs docstore.Store, notifier Notifier) *Store {
	return &Store{
		docs:     docs,
		notifier: notifier,
		items:    cache.NewCollection(func(f models.Feedback) string { return f.ID }, nil),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Start subscribes to the feedback collection.
func (s *Store) Start(ctx context.Context) error {
	if s == nil || s.docs == nil {
		return fmt.Errorf("feedback: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errWatch := s.docs.Watch(ctx, models.CollectionFeedback, func(docs []models.Document) {
		s.items.Replace(docstore.Decode[models.Feedback](docs))
	}); errWatch != nil {
		return fmt.Errorf("feedback: watch: %w", errWatch)
	}
	return nil
}

// Submission holds the fields a submitter provides.
type Submission struct {
	Type    string
	Content string
	Contact string
}

// AddFeedback records a ticket, attaching the submitter when the scope is authenticated.
func (s *Store) AddFeedback(ctx context.Context, scope *session.Scope, sub Submission) (models.Feedback, error) {
	if strings.TrimSpace(sub.Content) == "" {
		return models.Feedback{}, ErrContentRequired
	}
	f := models.Feedback{
		ID:       s.newID(),
		Username: AnonymousName,
		Type:     strings.TrimSpace(sub.Type),
		Content:  sub.Content,
		Contact:  strings.TrimSpace(sub.Contact),
		Date:     s.now().UTC(),
	}
	if cur := scope.Current(); cur != nil {
		f.UID = cur.UID
		f.Username = cur.Username
	}
	if errPut := s.put(ctx, f); errPut != nil {
		return models.Feedback{}, errPut
	}
	return f, nil
}

// ReplyToFeedback sets or overwrites the admin reply and notifies an identified submitter.
func (s *Store) ReplyToFeedback(ctx context.Context, scope *session.Scope, id, reply string) error {
	if !scope.IsAdmin() {
		return nil
	}
	if strings.TrimSpace(reply) == "" {
		return ErrReplyRequired
	}
	f, ok := s.items.Get(id)
	if !ok {
		return nil
	}
	now := s.now().UTC()
	f.Reply = reply
	f.ReplyDate = &now
	if errPut := s.put(ctx, f); errPut != nil {
		return errPut
	}
	if f.UID != "" && s.notifier != nil {
		s.notifier.Notify(ctx, f.UID, models.NotificationReply, replyNotice(reply))
	}
	return nil
}

// DeleteFeedback removes a ticket; non-admin callers are ignored.
func (s *Store) DeleteFeedback(ctx context.Context, scope *session.Scope, id string) error {
	if !scope.IsAdmin() {
		return nil
	}
	if _, ok := s.items.Get(id); !ok {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errDelete := s.docs.Delete(ctx, models.CollectionFeedback, id); errDelete != nil {
		return docstore.Persisted("feedback", errDelete)
	}
	log.Infof("feedback: %s deleted by %s", id, scope.UID())
	return nil
}

// All lists every ticket newest first; empty for non-admins.
func (s *Store) All(scope *session.Scope) []models.Feedback {
	if !scope.IsAdmin() {
		return []models.Feedback{}
	}
	return newestFirst(s.items.Snapshot())
}

// Mine lists the scope's own tickets newest first.
func (s *Store) Mine(scope *session.Scope) []models.Feedback {
	uid := scope.UID()
	if uid == "" {
		return []models.Feedback{}
	}
	return newestFirst(s.items.Filter(func(f models.Feedback) bool { return f.UID == uid }))
}

func replyNotice(reply string) string {
	preview := []rune(reply)
	if len(preview) > replyPreviewRunes {
		return fmt.Sprintf("管理员回复了你的反馈: \"%s...\"", string(preview[:replyPreviewRunes]))
	}
	return fmt.Sprintf("管理员回复了你的反馈: \"%s\"", reply)
}

func newestFirst(list []models.Feedback) []models.Feedback {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	return list
}

func (s *Store) put(ctx context.Context, f models.Feedback) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return docstore.Persisted("feedback", docstore.PutJSON(ctx, s.docs, models.CollectionFeedback, f.ID, f))
}
