// Package content owns diary entries, their visibility rules and the derived feeds.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/DiaryHub/internal/cache"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
	"github.com/router-for-me/DiaryHub/internal/settings"
	log "github.com/sirupsen/logrus"
)

// Store is the content store backed by the diaries collection.
type Store struct {
	docs    docstore.Store
	diaries *cache.Collection[models.Diary]
	public  *cache.View[[]models.Diary]
	byDate  *cache.View[[]models.Diary]
	now     func() time.Time
	newID   func() string

	// mu serializes read-modify-write commands issued by this process.
	mu sync.Mutex
}

// NewStore constructs a content store; Start must be called before use.
func NewStore(docs docstore.Store) *Store {
	diaries := cache.NewCollection(func(d models.Diary) string { return d.ID }, models.Diary.Clone)
	return &Store{
		docs:    docs,
		diaries: diaries,
		public:  cache.NewView(diaries, buildPublicFeed),
		byDate:  cache.NewView(diaries, sortByDateDesc),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Start subscribes to the diaries collection.
func (s *Store) Start(ctx context.Context) error {
	if s == nil || s.docs == nil {
		return fmt.Errorf("content: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errWatch := s.docs.Watch(ctx, models.CollectionDiaries, func(docs []models.Document) {
		s.diaries.Replace(docstore.Decode[models.Diary](docs))
	}); errWatch != nil {
		return fmt.Errorf("content: watch diaries: %w", errWatch)
	}
	log.Infof("content store started (diaries=%d)", s.diaries.Len())
	return nil
}

// Diary returns the raw entry, bypassing access control.
func (s *Store) Diary(id string) (models.Diary, bool) { return s.diaries.Get(id) }

// Draft holds the caller-supplied fields of a new entry.
type Draft struct {
	Title        string
	Content      string
	CoverImage   string
	Visibility   models.Visibility
	SecretKey    string
	AllowedUsers []string
	MajorEvents  []string
}

// AddDiary creates an entry authored by the scope's identity.
func (s *Store) AddDiary(ctx context.Context, scope *session.Scope, draft Draft) (models.Diary, error) {
	author := scope.Current()
	if author == nil {
		return models.Diary{}, ErrNotLoggedIn
	}
	now := s.now().UTC()
	d := models.Diary{
		ID:           s.newID(),
		UID:          author.UID,
		AuthorName:   author.Username,
		Title:        strings.TrimSpace(draft.Title),
		Content:      draft.Content,
		CoverImage:   draft.CoverImage,
		Date:         now,
		LastEdited:   now,
		Visibility:   draft.Visibility,
		SecretKey:    draft.SecretKey,
		AllowedUsers: models.CloneStrings(draft.AllowedUsers),
		MajorEvents:  models.CloneStrings(draft.MajorEvents),
		LikedBy:      []string{},
	}
	if d.Visibility == "" {
		d.Visibility = models.VisibilityPrivate
	}
	if d.MajorEvents == nil {
		d.MajorEvents = []string{}
	}
	if errValidate := normalize(&d); errValidate != nil {
		return models.Diary{}, errValidate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if errPut := s.put(ctx, d); errPut != nil {
		return models.Diary{}, errPut
	}
	return d, nil
}

// Patch lists the fields to change; nil fields are untouched.
type Patch struct {
	Title        *string
	Content      *string
	CoverImage   *string
	Visibility   *models.Visibility
	SecretKey    *string
	AllowedUsers *[]string
	MajorEvents  *[]string
	IsPinned     *bool
}

// touchesBody reports whether the patch counts as an edit.
func (p Patch) touchesBody() bool {
	return p.Title != nil || p.Content != nil || p.CoverImage != nil
}

// UpdateDiary applies patch to the entry. Only the author may change its fields and
// only an admin may pin. Callers left with nothing to apply, and missing ids, are
// ignored and get a zero Diary.
func (s *Store) UpdateDiary(ctx context.Context, scope *session.Scope, id string, patch Patch) (models.Diary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.diaries.Get(id)
	if !ok {
		return models.Diary{}, nil
	}
	isAuthor := scope.UID() != "" && scope.UID() == d.UID
	pin := patch.IsPinned != nil && scope.IsAdmin()
	if !isAuthor {
		if !pin {
			return models.Diary{}, nil
		}
		patch = Patch{IsPinned: patch.IsPinned}
	}
	if patch.Title != nil {
		d.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		d.Content = *patch.Content
	}
	if patch.CoverImage != nil {
		d.CoverImage = *patch.CoverImage
	}
	if patch.Visibility != nil {
		d.Visibility = *patch.Visibility
	}
	if patch.SecretKey != nil {
		d.SecretKey = *patch.SecretKey
	}
	if patch.AllowedUsers != nil {
		d.AllowedUsers = models.CloneStrings(*patch.AllowedUsers)
	}
	if patch.MajorEvents != nil {
		d.MajorEvents = models.CloneStrings(*patch.MajorEvents)
	}
	if pin {
		d.IsPinned = *patch.IsPinned
	}
	if patch.touchesBody() {
		d.LastEdited = s.now().UTC()
	}
	if errValidate := normalize(&d); errValidate != nil {
		return models.Diary{}, errValidate
	}
	if errPut := s.put(ctx, d); errPut != nil {
		return models.Diary{}, errPut
	}
	return d, nil
}

// DeleteDiary removes the entry when the scope is its author or an admin.
func (s *Store) DeleteDiary(ctx context.Context, scope *session.Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.diaries.Get(id)
	if !ok || !canManage(scope, d) {
		return nil
	}
	return s.delete(ctx, d.ID)
}

// DeleteDiariesByAuthor removes every entry of uid. Only an admin or the author may purge.
func (s *Store) DeleteDiariesByAuthor(ctx context.Context, scope *session.Scope, uid string) error {
	if !scope.IsAdmin() && scope.UID() != uid {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	removed := 0
	for _, d := range s.diaries.Filter(func(d models.Diary) bool { return d.UID == uid }) {
		if errDelete := s.delete(ctx, d.ID); errDelete != nil {
			errs = append(errs, errDelete)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Infof("content: removed %d diaries of %s", removed, uid)
	}
	return errors.Join(errs...)
}

// TogglePin flips the pin flag; non-admin callers are ignored.
func (s *Store) TogglePin(ctx context.Context, scope *session.Scope, id string) error {
	if !scope.IsAdmin() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.diaries.Get(id)
	if !ok {
		return nil
	}
	d.IsPinned = !d.IsPinned
	return s.put(ctx, d)
}

// ToggleLike flips the caller's like on the entry and reports the new state.
func (s *Store) ToggleLike(ctx context.Context, scope *session.Scope, id string) (bool, error) {
	uid := scope.UID()
	if uid == "" {
		return false, ErrNotLoggedIn
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.diaries.Get(id)
	if !ok {
		return false, nil
	}
	if d.UID == uid {
		return false, ErrSelfLike
	}
	liked := models.ContainsString(d.LikedBy, uid)
	if liked {
		d.LikedBy = models.RemoveString(d.LikedBy, uid)
	} else {
		d.LikedBy = models.AddString(d.LikedBy, uid)
	}
	if errPut := s.put(ctx, d); errPut != nil {
		return liked, errPut
	}
	return !liked, nil
}

// Open returns the entry when the scope may read it with key.
func (s *Store) Open(scope *session.Scope, id, key string) (models.Diary, error) {
	d, ok := s.diaries.Get(id)
	if !ok {
		return models.Diary{}, ErrNotFound
	}
	if !CanView(scope, d, key) {
		if d.Visibility == models.VisibilitySecret {
			return models.Diary{}, ErrWrongKey
		}
		return models.Diary{}, ErrForbidden
	}
	return redact(scope, d), nil
}

// normalize validates visibility and drops the fields the mode does not use.
func normalize(d *models.Diary) error {
	if d.Title == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(d.Content) == "" {
		return ErrContentRequired
	}
	if len(d.CoverImage) > settings.MaxImageBytes {
		return ErrImageTooLarge
	}
	if !d.Visibility.Valid() {
		return ErrInvalidVisibility
	}
	if d.Visibility == models.VisibilitySecret {
		if d.SecretKey == "" {
			return ErrSecretKeyRequired
		}
	} else {
		d.SecretKey = ""
	}
	if d.Visibility == models.VisibilityGroup {
		if len(d.AllowedUsers) == 0 {
			return ErrAllowedUsersRequired
		}
	} else {
		d.AllowedUsers = nil
	}
	return nil
}

func (s *Store) put(ctx context.Context, d models.Diary) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return docstore.Persisted("content", docstore.PutJSON(ctx, s.docs, models.CollectionDiaries, d.ID, d))
}

func (s *Store) delete(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return docstore.Persisted("content", s.docs.Delete(ctx, models.CollectionDiaries, id))
}
