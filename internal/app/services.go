package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/feedback"
	"github.com/router-for-me/DiaryHub/internal/identity"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/notification"
	"github.com/router-for-me/DiaryHub/internal/session"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Services holds the domain stores sharing one document store.
type Services struct {
	Docs          docstore.Store
	Users         *identity.Store
	Diaries       *content.Store
	Notifications *notification.Store
	Feedback      *feedback.Store
	Announcements *announcement.Store
}

// NewServices builds every store on top of docs.
func NewServices(docs docstore.Store, identityCfg config.IdentityConfig) *Services {
	notifications := notification.NewStore(docs)
	return &Services{
		Docs:          docs,
		Users:         identity.NewStore(docs, notifications, identityCfg),
		Diaries:       content.NewStore(docs),
		Notifications: notifications,
		Feedback:      feedback.NewStore(docs, notifications),
		Announcements: announcement.NewStore(docs),
	}
}

// Start subscribes every store in parallel and returns once all initial snapshots
// loaded. Subscriptions live until ctx is done.
func (s *Services) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("app: nil services")
	}
	var g errgroup.Group
	g.Go(func() error { return s.Notifications.Start(ctx) })
	g.Go(func() error { return s.Users.Start(ctx) })
	g.Go(func() error { return s.Diaries.Start(ctx) })
	g.Go(func() error { return s.Feedback.Start(ctx) })
	g.Go(func() error { return s.Announcements.Start(ctx) })
	if errWait := g.Wait(); errWait != nil {
		return fmt.Errorf("app: start stores: %w", errWait)
	}
	log.Infof("stores ready (users=%d public_diaries=%d)", len(s.Users.Users()), len(s.Diaries.PublicFeed()))
	return nil
}

// RemoveUser deletes an account and then every diary it authored. The master
// account is refused; a non-admin scope is ignored.
func (s *Services) RemoveUser(ctx context.Context, scope *session.Scope, uid string) error {
	if !scope.IsAdmin() {
		return nil
	}
	if uid == s.Users.MasterUID() {
		return identity.ErrProtectedUser
	}
	if _, ok := s.Users.User(uid); !ok {
		return identity.ErrUserNotFound
	}
	if errUser := s.Users.DeleteUser(ctx, scope, uid); errUser != nil {
		return errUser
	}
	if errDiaries := s.Diaries.DeleteDiariesByAuthor(ctx, scope, uid); errDiaries != nil {
		log.WithError(errDiaries).Warnf("app: cascade diaries of %s incomplete", uid)
		return errDiaries
	}
	return nil
}

// Healthy probes the document store with a cheap read.
func (s *Services) Healthy(ctx context.Context) error {
	_, errGet := s.Docs.Get(ctx, models.CollectionAnnouncements, "healthz")
	if errGet != nil && !errors.Is(errGet, docstore.ErrNotFound) {
		return errGet
	}
	return nil
}

// Close releases the document store.
func (s *Services) Close() error {
	if s == nil || s.Docs == nil {
		return nil
	}
	return s.Docs.Close()
}
