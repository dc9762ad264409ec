package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
	"github.com/stretchr/testify/require"
)

type recordedNotice struct {
	target  string
	kind    models.NotificationType
	content string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
}

func (n *recordingNotifier) Notify(_ context.Context, target string, kind models.NotificationType, content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{target: target, kind: kind, content: content})
}

func (n *recordingNotifier) all() []recordedNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedNotice(nil), n.notices...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store, *docstore.MemoryStore, *recordingNotifier, *fakeClock) {
	t.Helper()
	docs := docstore.NewMemoryStore()
	notifier := &recordingNotifier{}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := NewStore(docs, notifier, config.IdentityConfig{})
	store.now = clock.Now
	seq := 0
	store.newID = func() string {
		seq++
		return fmt.Sprintf("u%03d", seq)
	}
	require.NoError(t, store.Start(context.Background()))
	return store, docs, notifier, clock
}

func register(t *testing.T, store *Store, name string) *session.Scope {
	t.Helper()
	scope := session.Anonymous()
	_, err := store.Register(context.Background(), scope, name, "pw-"+name)
	require.NoError(t, err)
	return scope
}

func TestStartSeedsMaster(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	master, ok := store.User(config.DefaultMasterUID)
	require.True(t, ok)
	require.Equal(t, config.DefaultMasterUsername, master.Username)
	require.True(t, master.IsAdmin)
	require.Len(t, store.Users(), 1)
}

func TestRegisterAndDuplicate(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	scope := session.Anonymous()
	sess, err := store.Register(ctx, scope, "alice", "p1")
	require.NoError(t, err)
	require.Equal(t, "alice", sess.Username)
	require.False(t, sess.IsAdmin)
	require.Equal(t, sess.UID, scope.UID())

	_, err = store.Register(ctx, session.Anonymous(), "alice", "other")
	require.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = store.Register(ctx, session.Anonymous(), "Alice", "other")
	require.NoError(t, err, "usernames are case-sensitive")

	_, err = store.Register(ctx, session.Anonymous(), config.DefaultMasterUsername, "x")
	require.ErrorIs(t, err, ErrReservedUsername)

	_, err = store.Register(ctx, session.Anonymous(), "  ", "x")
	require.ErrorIs(t, err, ErrEmptyUsername)
}

func TestRegisterPersistFailure(t *testing.T) {
	store, docs, _, _ := newTestStore(t)
	docs.SetWriteError(errors.New("disk full"))
	scope := session.Anonymous()
	_, err := store.Register(context.Background(), scope, "bob", "pw")
	require.ErrorIs(t, err, docstore.ErrPersist)
	require.False(t, scope.Authenticated())
	require.Len(t, store.Users(), 1)
}

func TestLogin(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()
	register(t, store, "alice")

	scope := session.Anonymous()
	sess, err := store.Login(ctx, scope, "alice", "pw-alice")
	require.NoError(t, err)
	require.Equal(t, "alice", sess.Username)

	_, err = store.Login(ctx, session.Anonymous(), "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	master := session.Anonymous()
	sess, err = store.Login(ctx, master, config.DefaultMasterUsername, config.DefaultMasterPassword)
	require.NoError(t, err)
	require.Equal(t, config.DefaultMasterUID, sess.UID)
	require.True(t, sess.IsAdmin)
}

func TestLogoutTwiceIsHarmless(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	scope := register(t, store, "alice")
	store.Logout(scope)
	store.Logout(scope)
	require.False(t, scope.Authenticated())
}

func TestResolveLogsOutDeletedUser(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := register(t, store, "alice")

	admin := session.Anonymous()
	_, err := store.Login(ctx, admin, config.DefaultMasterUsername, config.DefaultMasterPassword)
	require.NoError(t, err)
	require.NoError(t, store.DeleteUser(ctx, admin, alice.UID()))

	_, err = store.Resolve(alice)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, alice.Authenticated())
}

func TestActivateAdmin(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := register(t, store, "alice")

	_, err := store.ActivateAdmin(ctx, alice, "nope")
	require.ErrorIs(t, err, ErrWrongKey)
	require.False(t, alice.IsAdmin())

	sess, err := store.ActivateAdmin(ctx, alice, config.DefaultAdminKey)
	require.NoError(t, err)
	require.True(t, sess.IsAdmin)
	require.True(t, alice.IsAdmin())

	user, ok := store.User(alice.UID())
	require.True(t, ok)
	require.True(t, user.IsAdmin)

	_, err = store.ActivateAdmin(ctx, session.Anonymous(), config.DefaultAdminKey)
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestDeleteUserRules(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := register(t, store, "alice")
	bob := register(t, store, "bob")

	require.NoError(t, store.DeleteUser(ctx, alice, bob.UID()))
	_, ok := store.User(bob.UID())
	require.True(t, ok, "non-admin delete is ignored")

	admin := session.Anonymous()
	_, err := store.Login(ctx, admin, config.DefaultMasterUsername, config.DefaultMasterPassword)
	require.NoError(t, err)
	require.ErrorIs(t, store.DeleteUser(ctx, admin, config.DefaultMasterUID), ErrProtectedUser)
	require.NoError(t, store.DeleteUser(ctx, admin, "missing"))
	require.NoError(t, store.DeleteUser(ctx, admin, bob.UID()))
	_, ok = store.User(bob.UID())
	require.False(t, ok)
}

func TestUpdateProfile(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := register(t, store, "alice")

	bio := "hello"
	sess, err := store.UpdateProfile(ctx, alice, ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "hello", sess.Bio)

	huge := strings.Repeat("a", maxProfileCoverBytes+1)
	_, err = store.UpdateProfile(ctx, alice, ProfilePatch{ProfileCover: &huge})
	require.ErrorIs(t, err, ErrImageTooLarge)

	user, _ := store.User(alice.UID())
	require.Equal(t, "hello", user.Bio)
	require.Empty(t, user.ProfileCover)
}

func TestToggleFollowIsSymmetric(t *testing.T) {
	store, _, notifier, _ := newTestStore(t)
	ctx := context.Background()
	alice := register(t, store, "alice")
	bob := register(t, store, "bob")

	following, err := store.ToggleFollow(ctx, alice, bob.UID())
	require.NoError(t, err)
	require.True(t, following)

	a, _ := store.User(alice.UID())
	b, _ := store.User(bob.UID())
	require.Equal(t, []string{bob.UID()}, a.Following)
	require.Equal(t, []string{alice.UID()}, b.Followers)
	require.Equal(t, []string{bob.UID()}, alice.Current().Following)

	notices := notifier.all()
	require.Len(t, notices, 1)
	require.Equal(t, bob.UID(), notices[0].target)
	require.Equal(t, models.NotificationFollow, notices[0].kind)
	require.Equal(t, "alice 关注了你", notices[0].content)

	following, err = store.ToggleFollow(ctx, alice, bob.UID())
	require.NoError(t, err)
	require.False(t, following)
	a, _ = store.User(alice.UID())
	b, _ = store.User(bob.UID())
	require.Empty(t, a.Following)
	require.Empty(t, b.Followers)
	require.Len(t, notifier.all(), 1, "unfollow does not notify")

	following, err = store.ToggleFollow(ctx, alice, alice.UID())
	require.NoError(t, err)
	require.False(t, following)

	_, err = store.ToggleFollow(ctx, session.Anonymous(), bob.UID())
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLikeUserRateLimit(t *testing.T) {
	store, _, notifier, clock := newTestStore(t)
	ctx := context.Background()
	alice := register(t, store, "alice")
	bob := register(t, store, "bob")

	require.NoError(t, store.LikeUser(ctx, alice, bob.UID()))
	require.ErrorIs(t, store.LikeUser(ctx, alice, bob.UID()), ErrRateLimited)

	clock.Advance(23 * time.Hour)
	require.ErrorIs(t, store.LikeUser(ctx, alice, bob.UID()), ErrRateLimited)

	clock.Advance(2 * time.Hour)
	require.NoError(t, store.LikeUser(ctx, alice, bob.UID()))

	b, _ := store.User(bob.UID())
	require.Equal(t, 2, b.LikesReceived)

	notices := notifier.all()
	require.Len(t, notices, 2)
	require.Equal(t, "alice 赞了你", notices[1].content)
	require.Equal(t, models.NotificationLike, notices[1].kind)

	require.ErrorIs(t, store.LikeUser(ctx, alice, alice.UID()), ErrSelfLike)
	require.ErrorIs(t, store.LikeUser(ctx, alice, "ghost"), ErrUserNotFound)
	require.ErrorIs(t, store.LikeUser(ctx, session.Anonymous(), bob.UID()), ErrNotLoggedIn)
}

// failingPuts fails exactly the nth Put issued after it is armed.
type failingPuts struct {
	*docstore.MemoryStore
	mu    sync.Mutex
	armed bool
	puts  int
	nth   int
}

func (f *failingPuts) arm(nth int) {
	f.mu.Lock()
	f.armed, f.puts, f.nth = true, 0, nth
	f.mu.Unlock()
}

func (f *failingPuts) Put(ctx context.Context, collection, id string, data []byte) error {
	f.mu.Lock()
	fail := false
	if f.armed {
		f.puts++
		fail = f.puts == f.nth
	}
	f.mu.Unlock()
	if fail {
		return errors.New("boom")
	}
	return f.MemoryStore.Put(ctx, collection, id, data)
}

func TestLikeUserPartialWriteNeverDoubleCounts(t *testing.T) {
	for _, nth := range []int{1, 2} {
		t.Run(fmt.Sprintf("fail write %d", nth), func(t *testing.T) {
			docs := &failingPuts{MemoryStore: docstore.NewMemoryStore()}
			store := NewStore(docs, nil, config.IdentityConfig{})
			ctx := context.Background()
			require.NoError(t, store.Start(ctx))
			alice := register(t, store, "alice")
			bob := register(t, store, "bob")

			docs.arm(nth)
			require.ErrorIs(t, store.LikeUser(ctx, alice, bob.UID()), docstore.ErrPersist)
			errRetry := store.LikeUser(ctx, alice, bob.UID())

			b, _ := store.User(bob.UID())
			require.LessOrEqual(t, b.LikesReceived, 1)
			if nth == 1 {
				require.NoError(t, errRetry)
				require.Equal(t, 1, b.LikesReceived)
			} else {
				require.ErrorIs(t, errRetry, ErrRateLimited)
				require.Equal(t, 0, b.LikesReceived)
			}
		})
	}
}

func TestLeaderboard(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := register(t, store, "alice")
	bob := register(t, store, "bob")
	carol := register(t, store, "carol")

	_, err := store.ToggleFollow(ctx, alice, carol.UID())
	require.NoError(t, err)
	_, err = store.ToggleFollow(ctx, bob, carol.UID())
	require.NoError(t, err)
	_, err = store.ToggleFollow(ctx, carol, bob.UID())
	require.NoError(t, err)
	require.NoError(t, store.LikeUser(ctx, carol, alice.UID()))

	board := store.Leaderboard(2)
	require.Len(t, board.TopFollowed, 2)
	require.Equal(t, "carol", board.TopFollowed[0].Username)
	require.Equal(t, "bob", board.TopFollowed[1].Username)
	require.Len(t, board.TopLiked, 2)
	require.Equal(t, "alice", board.TopLiked[0].Username)
}
