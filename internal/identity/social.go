package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
)

// ToggleFollow flips whether the caller follows target and reports the new state.
// The two sides are written separately; a failure between them leaves the relation
// asymmetric until the next toggle.
func (s *Store) ToggleFollow(ctx context.Context, scope *session.Scope, targetUID string) (bool, error) {
	cur := scope.Current()
	if cur == nil {
		return false, ErrNotLoggedIn
	}
	if targetUID == cur.UID {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	me, ok := s.users.Get(cur.UID)
	if !ok {
		return false, nil
	}
	target, ok := s.users.Get(targetUID)
	if !ok {
		return false, nil
	}

	wasFollowing := models.ContainsString(me.Following, targetUID)
	if wasFollowing {
		me.Following = models.RemoveString(me.Following, targetUID)
		target.Followers = models.RemoveString(target.Followers, me.UID)
	} else {
		me.Following = models.AddString(me.Following, targetUID)
		target.Followers = models.AddString(target.Followers, me.UID)
	}

	if errPut := s.put(ctx, me); errPut != nil {
		return wasFollowing, errPut
	}
	if errPut := s.put(ctx, target); errPut != nil {
		return wasFollowing, errPut
	}

	if !wasFollowing && s.notifier != nil {
		s.notifier.Notify(ctx, targetUID, models.NotificationFollow, fmt.Sprintf("%s 关注了你", me.Username))
	}
	s.refreshScope(scope, me, cur.IsAdmin)
	return !wasFollowing, nil
}

// IsFollowing reports whether uid follows targetUID.
func (s *Store) IsFollowing(uid, targetUID string) bool {
	me, ok := s.users.Get(uid)
	if !ok {
		return false
	}
	return models.ContainsString(me.Following, targetUID)
}

// LikeUser adds one like to target's profile, at most once per 24h per caller.
// A failure between the two writes leaves the like unrecorded but still rate limited.
func (s *Store) LikeUser(ctx context.Context, scope *session.Scope, targetUID string) error {
	cur := scope.Current()
	if cur == nil {
		return ErrNotLoggedIn
	}
	if targetUID == cur.UID {
		return ErrSelfLike
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.users.Get(targetUID)
	if !ok {
		return ErrUserNotFound
	}
	me, ok := s.users.Get(cur.UID)
	if !ok {
		scope.Clear()
		return ErrSessionExpired
	}
	now := s.now().UTC()
	if last, liked := me.LikedUsersLog[targetUID]; liked && now.Sub(last) < likeWindow {
		return ErrRateLimited
	}

	// The caller's log is written first so a failed second write loses the like
	// instead of counting it twice on retry.
	if me.LikedUsersLog == nil {
		me.LikedUsersLog = make(map[string]time.Time)
	}
	me.LikedUsersLog[targetUID] = now
	if errPut := s.put(ctx, me); errPut != nil {
		return errPut
	}
	target.LikesReceived++
	if errPut := s.put(ctx, target); errPut != nil {
		return errPut
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, targetUID, models.NotificationLike, fmt.Sprintf("%s 赞了你", me.Username))
	}
	s.refreshScope(scope, me, cur.IsAdmin)
	return nil
}

// refreshScope installs the latest projection of me, keeping an activated admin flag.
func (s *Store) refreshScope(scope *session.Scope, me models.User, wasAdmin bool) {
	sess := s.project(me)
	sess.IsAdmin = sess.IsAdmin || wasAdmin
	scope.Set(sess)
}
