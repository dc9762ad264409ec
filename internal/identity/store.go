// Package identity owns accounts, sessions and the follow/like social graph.
package identity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/DiaryHub/internal/cache"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
	"github.com/router-for-me/DiaryHub/internal/settings"
	log "github.com/sirupsen/logrus"
)

const (
	// likeWindow is the rolling window of one like per (caller, target) pair.
	likeWindow = 24 * time.Hour
	// maxProfileCoverBytes caps the embedded profile cover size.
	maxProfileCoverBytes = settings.MaxImageBytes
)

// Notifier receives the notifications produced by social actions.
type Notifier interface {
	Notify(ctx context.Context, targetUID string, kind models.NotificationType, content string)
}

// Store is the identity store backed by the users collection.
type Store struct {
	docs     docstore.Store
	notifier Notifier
	cfg      config.IdentityConfig
	users    *cache.Collection[models.User]
	ranks    *cache.View[rankings]
	now      func() time.Time
	newID    func() string

	// mu serializes read-modify-write commands issued by this process.
	mu sync.Mutex
}

// NewStore constructs an identity store; Start must be called before use.
func NewStore(docs docstore.Store, notifier Notifier, cfg config.IdentityConfig) *Store {
	users := cache.NewCollection(func(u models.User) string { return u.UID }, models.User.Clone)
	return &Store{
		docs:     docs,
		notifier: notifier,
		cfg:      cfg.WithDefaults(),
		users:    users,
		ranks:    cache.NewView(users, buildRankings),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Start subscribes to the users collection and seeds the master identity.
func (s *Store) Start(ctx context.Context) error {
	if s == nil || s.docs == nil {
		return fmt.Errorf("identity: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errWatch := s.docs.Watch(ctx, models.CollectionUsers, func(docs []models.Document) {
		s.users.Replace(docstore.Decode[models.User](docs))
	}); errWatch != nil {
		return fmt.Errorf("identity: watch users: %w", errWatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, errSeed := s.ensureMasterLocked(ctx); errSeed != nil {
		return fmt.Errorf("identity: seed master: %w", errSeed)
	}
	log.Infof("identity store started (users=%d)", s.users.Len())
	return nil
}

// Users returns the credential-stripped directory.
func (s *Store) Users() []models.Session {
	users := s.users.Snapshot()
	out := make([]models.Session, 0, len(users))
	for _, u := range users {
		out = append(out, s.project(u))
	}
	return out
}

// Profile returns the credential-stripped projection of uid.
func (s *Store) Profile(uid string) (models.Session, bool) {
	u, ok := s.users.Get(uid)
	if !ok {
		return models.Session{}, false
	}
	return s.project(u), true
}

// User returns the full directory record of uid.
func (s *Store) User(uid string) (models.User, bool) {
	return s.users.Get(uid)
}

// MasterUID returns the reserved master uid.
func (s *Store) MasterUID() string { return s.cfg.MasterUID }

// Register creates an account and logs scope into it.
func (s *Store) Register(ctx context.Context, scope *session.Scope, username, password string) (models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Session{}, ErrEmptyUsername
	}
	if password == "" {
		return models.Session{}, ErrEmptyPassword
	}
	if username == s.cfg.MasterUsername {
		return models.Session{}, ErrReservedUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users.Find(func(u models.User) bool { return u.Username == username }); exists {
		return models.Session{}, ErrDuplicateUsername
	}
	user := models.User{
		UID:           s.newID(),
		Username:      username,
		Password:      password,
		Followers:     []string{},
		Following:     []string{},
		LikedUsersLog: map[string]time.Time{},
		CreatedAt:     s.now().UTC(),
	}
	if errPut := s.put(ctx, user); errPut != nil {
		return models.Session{}, errPut
	}
	sess := s.project(user)
	scope.Set(sess)
	return sess, nil
}

// Login matches the credentials against the master account, then the directory.
func (s *Store) Login(ctx context.Context, scope *session.Scope, username, password string) (models.Session, error) {
	if username == s.cfg.MasterUsername && password == s.cfg.MasterPassword {
		s.mu.Lock()
		master, errSeed := s.ensureMasterLocked(ctx)
		s.mu.Unlock()
		if errSeed != nil {
			return models.Session{}, errSeed
		}
		sess := s.project(master)
		scope.Set(sess)
		return sess, nil
	}

	user, ok := s.users.Find(func(u models.User) bool {
		return u.UID != s.cfg.MasterUID && u.Username == username && u.Password == password
	})
	if !ok {
		return models.Session{}, ErrInvalidCredentials
	}
	sess := s.project(user)
	scope.Set(sess)
	return sess, nil
}

// Logout clears scope; logging out twice is harmless.
func (s *Store) Logout(scope *session.Scope) {
	scope.Clear()
}

// Resolve refreshes scope from the directory and logs it out when the record is gone.
func (s *Store) Resolve(scope *session.Scope) (models.Session, error) {
	cur := scope.Current()
	if cur == nil {
		return models.Session{}, ErrNotLoggedIn
	}
	user, ok := s.users.Get(cur.UID)
	if !ok {
		scope.Clear()
		return models.Session{}, ErrSessionExpired
	}
	sess := s.project(user)
	if cur.IsAdmin {
		sess.IsAdmin = true
	}
	scope.Set(sess)
	return sess, nil
}

// ActivateAdmin grants the admin capability when key matches the admin passphrase.
func (s *Store) ActivateAdmin(ctx context.Context, scope *session.Scope, key string) (models.Session, error) {
	cur := scope.Current()
	if cur == nil {
		return models.Session{}, ErrNotLoggedIn
	}
	if key != s.cfg.AdminKey {
		return models.Session{}, ErrWrongKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur.UID != s.cfg.MasterUID {
		if user, ok := s.users.Get(cur.UID); ok && !user.IsAdmin {
			user.IsAdmin = true
			if errPut := s.put(ctx, user); errPut != nil {
				return models.Session{}, errPut
			}
		}
	}
	cur.IsAdmin = true
	scope.Set(*cur)
	return *cur, nil
}

// ProfilePatch lists the profile fields to change; nil fields are untouched.
type ProfilePatch struct {
	Bio          *string
	ProfileCover *string
	Username     *string
}

// UpdateProfile edits the caller's own profile. Usernames are not re-checked for uniqueness.
func (s *Store) UpdateProfile(ctx context.Context, scope *session.Scope, patch ProfilePatch) (models.Session, error) {
	cur := scope.Current()
	if cur == nil {
		return models.Session{}, ErrNotLoggedIn
	}
	if patch.ProfileCover != nil && len(*patch.ProfileCover) > maxProfileCoverBytes {
		return models.Session{}, ErrImageTooLarge
	}
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		return models.Session{}, ErrEmptyUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users.Get(cur.UID)
	if !ok {
		return *cur, nil
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.ProfileCover != nil {
		user.ProfileCover = *patch.ProfileCover
	}
	if patch.Username != nil {
		user.Username = strings.TrimSpace(*patch.Username)
	}
	if errPut := s.put(ctx, user); errPut != nil {
		return models.Session{}, errPut
	}
	sess := s.project(user)
	sess.IsAdmin = sess.IsAdmin || cur.IsAdmin
	scope.Set(sess)
	return sess, nil
}

// DeleteUser removes uid from the directory. Non-admin callers are ignored and the
// master account is refused. The caller purges the user's diaries.
func (s *Store) DeleteUser(ctx context.Context, scope *session.Scope, uid string) error {
	if !scope.IsAdmin() {
		return nil
	}
	if uid == s.cfg.MasterUID {
		return ErrProtectedUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users.Get(uid); !ok {
		return nil
	}
	if errDelete := s.docs.Delete(ctx, models.CollectionUsers, uid); errDelete != nil {
		return docstore.Persisted("identity", errDelete)
	}
	log.Infof("identity: user %s deleted by %s", uid, scope.UID())
	return nil
}

// put writes user to the users collection.
func (s *Store) put(ctx context.Context, user models.User) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return docstore.Persisted("identity", docstore.PutJSON(ctx, s.docs, models.CollectionUsers, user.UID, user))
}

// ensureMasterLocked seeds the master identity when the directory lacks it.
func (s *Store) ensureMasterLocked(ctx context.Context) (models.User, error) {
	if master, ok := s.users.Get(s.cfg.MasterUID); ok {
		return master, nil
	}
	master := models.User{
		UID:           s.cfg.MasterUID,
		Username:      s.cfg.MasterUsername,
		Password:      s.cfg.MasterPassword,
		IsAdmin:       true,
		Followers:     []string{},
		Following:     []string{},
		LikedUsersLog: map[string]time.Time{},
		CreatedAt:     s.now().UTC(),
	}
	if errPut := s.put(ctx, master); errPut != nil {
		return models.User{}, errPut
	}
	log.Infof("identity: seeded master account %s", s.cfg.MasterUsername)
	return master, nil
}

// project strips the credential; the master account is always an admin.
func (s *Store) project(u models.User) models.Session {
	sess := u.Session()
	if u.UID == s.cfg.MasterUID {
		sess.IsAdmin = true
	}
	return sess
}

// rankings holds the directory sorted for the leaderboard.
type rankings struct {
	byFollowers []models.User
	byLikes     []models.User
}

func buildRankings(users []models.User) rankings {
	byFollowers := append([]models.User(nil), users...)
	sort.SliceStable(byFollowers, func(i, j int) bool {
		if len(byFollowers[i].Followers) != len(byFollowers[j].Followers) {
			return len(byFollowers[i].Followers) > len(byFollowers[j].Followers)
		}
		return byFollowers[i].Username < byFollowers[j].Username
	})
	byLikes := append([]models.User(nil), users...)
	sort.SliceStable(byLikes, func(i, j int) bool {
		if byLikes[i].LikesReceived != byLikes[j].LikesReceived {
			return byLikes[i].LikesReceived > byLikes[j].LikesReceived
		}
		return byLikes[i].Username < byLikes[j].Username
	})
	return rankings{byFollowers: byFollowers, byLikes: byLikes}
}

// Leaderboard lists the most followed and most liked users.
type Leaderboard struct {
	TopFollowed []models.Session `json:"topFollowed"`
	TopLiked    []models.Session `json:"topLiked"`
}

// Leaderboard returns the top n users by followers and by likes received.
func (s *Store) Leaderboard(n int) Leaderboard {
	if n <= 0 {
		n = settings.LeaderboardSize
	}
	r := s.ranks.Get()
	out := Leaderboard{
		TopFollowed: make([]models.Session, 0, n),
		TopLiked:    make([]models.Session, 0, n),
	}
	for i := 0; i < len(r.byFollowers) && i < n; i++ {
		out.TopFollowed = append(out.TopFollowed, s.project(r.byFollowers[i]))
	}
	for i := 0; i < len(r.byLikes) && i < n; i++ {
		out.TopLiked = append(out.TopLiked, s.project(r.byLikes[i]))
	}
	return out
}
