package content

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

func newTestStore(t *testing.T) (*Store, *docstore.MemoryStore) {
	t.Helper()
	docs := docstore.NewMemoryStore()
	store := NewStore(docs)
	clock := &stepClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	seq := 0
	store.newID = func() string {
		seq++
		return fmt.Sprintf("d%02d", seq)
	}
	if err := store.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return store, docs
}

func scopeFor(uid, username string, admin bool) *session.Scope {
	return session.NewScope(&models.Session{UID: uid, Username: username, IsAdmin: admin}, nil)
}

func mustAdd(t *testing.T, store *Store, scope *session.Scope, draft Draft) models.Diary {
	t.Helper()
	if draft.Title == "" {
		draft.Title = "entry"
	}
	if draft.Content == "" {
		draft.Content = "body"
	}
	d, err := store.AddDiary(context.Background(), scope, draft)
	if err != nil {
		t.Fatalf("add diary: %v", err)
	}
	return d
}

func TestAddDiaryStampsAuthor(t *testing.T) {
	store, _ := newTestStore(t)
	alice := scopeFor("u1", "alice", false)

	d := mustAdd(t, store, alice, Draft{Visibility: models.VisibilityPublic})
	if d.UID != "u1" || d.AuthorName != "alice" {
		t.Fatalf("author not stamped: %+v", d)
	}
	if !d.Date.Equal(d.LastEdited) || d.IsPinned || len(d.LikedBy) != 0 {
		t.Fatalf("unexpected initial state: %+v", d)
	}
	if _, ok := store.Diary(d.ID); !ok {
		t.Fatalf("expected diary in cache")
	}

	if _, err := store.AddDiary(context.Background(), session.Anonymous(), Draft{Title: "x", Content: "y"}); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := store.AddDiary(context.Background(), alice, Draft{Title: "x", Content: "y", Visibility: models.VisibilitySecret}); !errors.Is(err, ErrSecretKeyRequired) {
		t.Fatalf("expected ErrSecretKeyRequired, got %v", err)
	}
	if _, err := store.AddDiary(context.Background(), alice, Draft{Title: "x", Content: "y", Visibility: models.VisibilityGroup}); !errors.Is(err, ErrAllowedUsersRequired) {
		t.Fatalf("expected ErrAllowedUsersRequired, got %v", err)
	}
	if _, err := store.AddDiary(context.Background(), alice, Draft{Title: "x", Content: " "}); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}
}

func TestAddDiaryDropsUnusedAccessFields(t *testing.T) {
	store, _ := newTestStore(t)
	d := mustAdd(t, store, scopeFor("u1", "alice", false), Draft{
		Visibility:   models.VisibilityPublic,
		SecretKey:    "k",
		AllowedUsers: []string{"bob"},
	})
	if d.SecretKey != "" || d.AllowedUsers != nil {
		t.Fatalf("expected access fields dropped, got %+v", d)
	}
}

func TestUpdateDiaryLastEditedRule(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	alice := scopeFor("u1", "alice", false)
	admin := scopeFor("100000", "awealy", true)
	d := mustAdd(t, store, alice, Draft{Visibility: models.VisibilityPublic})

	pinned := true
	updated, err := store.UpdateDiary(ctx, admin, d.ID, Patch{IsPinned: &pinned})
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !updated.IsPinned || !updated.LastEdited.Equal(d.LastEdited) {
		t.Fatalf("pin must not bump lastEdited: %+v", updated)
	}

	content := "new"
	updated, err = store.UpdateDiary(ctx, alice, d.ID, Patch{Content: &content})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Content != "new" || !updated.LastEdited.After(d.LastEdited) {
		t.Fatalf("edit must bump lastEdited: %+v", updated)
	}
	if !updated.Date.Equal(d.Date) || updated.UID != "u1" || updated.AuthorName != "alice" {
		t.Fatalf("immutable fields changed: %+v", updated)
	}
}

func TestUpdateDiaryIgnoresStrangers(t *testing.T) {
	store, _ := newTestStore(t)
	d := mustAdd(t, store, scopeFor("u1", "alice", false), Draft{Visibility: models.VisibilityPublic})

	content := "hijack"
	ignored, err := store.UpdateDiary(context.Background(), scopeFor("u2", "bob", false), d.ID, Patch{Content: &content})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ignored.ID != "" {
		t.Fatalf("ignored update must not return the entry: %+v", ignored)
	}
	got, _ := store.Diary(d.ID)
	if got.Content != "body" {
		t.Fatalf("stranger edit applied: %+v", got)
	}

	pinned := true
	if _, err := store.UpdateDiary(context.Background(), scopeFor("u1", "alice", false), d.ID, Patch{IsPinned: &pinned}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.Diary(d.ID)
	if got.IsPinned {
		t.Fatalf("author must not pin")
	}
}

func TestCanViewPrivate(t *testing.T) {
	store, _ := newTestStore(t)
	author := scopeFor("u1", "alice", false)
	d := mustAdd(t, store, author, Draft{Visibility: models.VisibilityPrivate})

	cases := []struct {
		name  string
		scope *session.Scope
		want  bool
	}{
		{"author", author, true},
		{"admin", scopeFor("100000", "awealy", true), true},
		{"other", scopeFor("u2", "bob", false), false},
		{"anonymous", session.Anonymous(), false},
	}
	for _, tc := range cases {
		if got := CanView(tc.scope, d, ""); got != tc.want {
			t.Fatalf("%s: CanView = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanViewSecret(t *testing.T) {
	store, _ := newTestStore(t)
	d := mustAdd(t, store, scopeFor("u1", "alice", false), Draft{Visibility: models.VisibilitySecret, SecretKey: "open-sesame"})

	for _, scope := range []*session.Scope{session.Anonymous(), scopeFor("u2", "bob", false)} {
		if !CanView(scope, d, "open-sesame") {
			t.Fatalf("matching key must open")
		}
		if CanView(scope, d, "wrong") || CanView(scope, d, "") {
			t.Fatalf("mismatched key must not open")
		}
	}

	if _, err := store.Open(session.Anonymous(), d.ID, "wrong"); !errors.Is(err, ErrWrongKey) {
		t.Fatalf("expected ErrWrongKey, got %v", err)
	}
	opened, err := store.Open(session.Anonymous(), d.ID, "open-sesame")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.SecretKey != "" {
		t.Fatalf("secret key leaked to reader")
	}
}

func TestCanViewGroup(t *testing.T) {
	store, _ := newTestStore(t)
	d := mustAdd(t, store, scopeFor("u1", "alice", false), Draft{Visibility: models.VisibilityGroup, AllowedUsers: []string{"bob"}})

	if !CanView(scopeFor("u2", "bob", false), d, "") {
		t.Fatalf("bob should see group diary")
	}
	if CanView(scopeFor("u3", "carol", false), d, "") {
		t.Fatalf("carol should not see group diary")
	}
	if CanView(session.Anonymous(), d, "") {
		t.Fatalf("anonymous should not see group diary")
	}
	if _, err := store.Open(scopeFor("u3", "carol", false), d.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := store.Open(session.Anonymous(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublicFeedPinnedFirst(t *testing.T) {
	store, _ := newTestStore(t)
	alice := scopeFor("u1", "alice", false)
	admin := scopeFor("100000", "awealy", true)

	first := mustAdd(t, store, alice, Draft{Title: "first", Visibility: models.VisibilityPublic})
	second := mustAdd(t, store, alice, Draft{Title: "second", Visibility: models.VisibilityPublic})
	mustAdd(t, store, alice, Draft{Title: "hidden", Visibility: models.VisibilityPrivate})
	third := mustAdd(t, store, alice, Draft{Title: "third", Visibility: models.VisibilityPublic})

	if err := store.TogglePin(context.Background(), alice, first.ID); err != nil {
		t.Fatalf("toggle pin: %v", err)
	}
	if feed := store.PublicFeed(); feed[0].ID != third.ID {
		t.Fatalf("non-admin pin must be ignored, got %s first", feed[0].Title)
	}

	if err := store.TogglePin(context.Background(), admin, first.ID); err != nil {
		t.Fatalf("toggle pin: %v", err)
	}
	feed := store.PublicFeed()
	if len(feed) != 3 {
		t.Fatalf("expected 3 public entries, got %d", len(feed))
	}
	want := []string{first.ID, third.ID, second.ID}
	for i, id := range want {
		if feed[i].ID != id {
			t.Fatalf("feed[%d] = %s, want %s", i, feed[i].ID, id)
		}
	}
}

func TestAdminAllDiaries(t *testing.T) {
	store, _ := newTestStore(t)
	alice := scopeFor("u1", "alice", false)
	mustAdd(t, store, alice, Draft{Visibility: models.VisibilityPrivate})
	mustAdd(t, store, alice, Draft{Visibility: models.VisibilityPublic})

	if got := store.AdminAllDiaries(alice); len(got) != 0 {
		t.Fatalf("non-admin should get empty list, got %d", len(got))
	}
	all := store.AdminAllDiaries(scopeFor("100000", "awealy", true))
	if len(all) != 2 || all[0].Date.Before(all[1].Date) {
		t.Fatalf("unexpected admin feed: %+v", all)
	}
}

func TestToggleLike(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	d := mustAdd(t, store, scopeFor("u1", "alice", false), Draft{Visibility: models.VisibilityPublic})
	bob := scopeFor("u2", "bob", false)

	liked, err := store.ToggleLike(ctx, bob, d.ID)
	if err != nil || !liked {
		t.Fatalf("like: liked=%v err=%v", liked, err)
	}
	got, _ := store.Diary(d.ID)
	if !HasLiked(got, "u2") || LikeCount(got) != 1 {
		t.Fatalf("like not recorded: %+v", got.LikedBy)
	}
	if !got.LastEdited.Equal(d.LastEdited) {
		t.Fatalf("like must not bump lastEdited")
	}

	liked, err = store.ToggleLike(ctx, bob, d.ID)
	if err != nil || liked {
		t.Fatalf("unlike: liked=%v err=%v", liked, err)
	}
	got, _ = store.Diary(d.ID)
	if LikeCount(got) != 0 {
		t.Fatalf("unlike not recorded: %+v", got.LikedBy)
	}

	if _, err := store.ToggleLike(ctx, scopeFor("u1", "alice", false), d.ID); !errors.Is(err, ErrSelfLike) {
		t.Fatalf("expected ErrSelfLike, got %v", err)
	}
	if _, err := store.ToggleLike(ctx, session.Anonymous(), d.ID); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if liked, err := store.ToggleLike(ctx, bob, "missing"); err != nil || liked {
		t.Fatalf("missing diary should be a no-op")
	}
}

func TestDeleteDiariesByAuthor(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	alice := scopeFor("u1", "alice", false)
	bob := scopeFor("u2", "bob", false)
	mustAdd(t, store, alice, Draft{Visibility: models.VisibilityPublic})
	mustAdd(t, store, alice, Draft{Visibility: models.VisibilityPrivate})
	kept := mustAdd(t, store, bob, Draft{Visibility: models.VisibilityPublic})

	if err := store.DeleteDiariesByAuthor(ctx, bob, "u1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if len(store.MyDiaries(alice)) != 2 {
		t.Fatalf("stranger purge must be ignored")
	}

	if err := store.DeleteDiariesByAuthor(ctx, scopeFor("100000", "awealy", true), "u1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if got := store.MyDiaries(alice); len(got) != 0 {
		t.Fatalf("expected no diaries of u1, got %d", len(got))
	}
	if _, ok := store.Diary(kept.ID); !ok {
		t.Fatalf("other author's diary removed")
	}
}

func TestDeleteDiary(t *testing.T) {
	store, docs := newTestStore(t)
	ctx := context.Background()
	alice := scopeFor("u1", "alice", false)
	d := mustAdd(t, store, alice, Draft{Visibility: models.VisibilityPublic})

	if err := store.DeleteDiary(ctx, scopeFor("u2", "bob", false), d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.Diary(d.ID); !ok {
		t.Fatalf("stranger delete applied")
	}

	docs.SetWriteError(errors.New("offline"))
	if err := store.DeleteDiary(ctx, alice, d.ID); !errors.Is(err, docstore.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	docs.SetWriteError(nil)

	if err := store.DeleteDiary(ctx, alice, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.Diary(d.ID); ok {
		t.Fatalf("diary still present")
	}
	if err := store.DeleteDiary(ctx, alice, d.ID); err != nil {
		t.Fatalf("deleting a missing diary should be a no-op: %v", err)
	}
}

func TestAddDiaryDefaultsToPrivate(t *testing.T) {
	store, _ := newTestStore(t)
	alice := scopeFor("u1", "alice", false)

	d, err := store.AddDiary(context.Background(), alice, Draft{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("add diary: %v", err)
	}
	if d.Visibility != models.VisibilityPrivate {
		t.Fatalf("expected private by default, got %q", d.Visibility)
	}
	if feed := store.PublicFeed(); len(feed) != 0 {
		t.Fatalf("draft without visibility reached the public feed: %+v", feed)
	}
	if CanView(session.Anonymous(), d, "") {
		t.Fatalf("anonymous caller can view a draft without visibility")
	}
	if !CanView(alice, d, "") {
		t.Fatalf("author must still see the draft")
	}
}

func TestUpdateDiaryAdminOnlyPins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	admin := scopeFor("100000", "awealy", true)
	d := mustAdd(t, store, scopeFor("u1", "alice", false), Draft{Visibility: models.VisibilityPublic})

	title := "moderated"
	ignored, err := store.UpdateDiary(ctx, admin, d.ID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ignored.ID != "" {
		t.Fatalf("admin body edit must be ignored: %+v", ignored)
	}

	pinned := true
	updated, err := store.UpdateDiary(ctx, admin, d.ID, Patch{Title: &title, IsPinned: &pinned})
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if !updated.IsPinned || updated.Title != "entry" {
		t.Fatalf("expected pin only, got %+v", updated)
	}
	got, _ := store.Diary(d.ID)
	if got.Title != "entry" || !got.LastEdited.Equal(d.LastEdited) {
		t.Fatalf("admin rewrote the entry: %+v", got)
	}

	own := mustAdd(t, store, admin, Draft{Visibility: models.VisibilityPublic})
	if updated, err = store.UpdateDiary(ctx, admin, own.ID, Patch{Title: &title}); err != nil || updated.Title != "moderated" {
		t.Fatalf("admin must edit own entry, got %+v err=%v", updated, err)
	}
}
