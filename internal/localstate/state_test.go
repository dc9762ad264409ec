package localstate

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/settings"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return store, path
}

func TestSessionSurvivesReopen(t *testing.T) {
	store, path := openTemp(t)
	if sess, token := store.Session(); sess != nil || token != "" {
		t.Fatalf("expected empty session")
	}
	if err := store.SetSession(&models.Session{UID: "u1", Username: "alice"}, "tok"); err != nil {
		t.Fatalf("set session: %v", err)
	}
	store.PersistSession(&models.Session{UID: "u1", Username: "alice2"})

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sess, token := reopened.Session()
	if sess == nil || sess.Username != "alice2" || token != "tok" {
		t.Fatalf("unexpected session %+v token %q", sess, token)
	}

	reopened.PersistSession(nil)
	if sess, token := reopened.Session(); sess != nil || token != "" {
		t.Fatalf("expected cleared session")
	}
}

func TestSearchHistoryMostRecentFirst(t *testing.T) {
	store, _ := openTemp(t)
	for i := 0; i < 12; i++ {
		if err := store.AddSearch(fmt.Sprintf("k%d", i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	history := store.SearchHistory()
	if len(history) != settings.SearchHistoryLimit || history[0] != "k11" || history[9] != "k2" {
		t.Fatalf("unexpected history %v", history)
	}

	if err := store.AddSearch("k5"); err != nil {
		t.Fatalf("add: %v", err)
	}
	history = store.SearchHistory()
	if history[0] != "k5" || len(history) != settings.SearchHistoryLimit {
		t.Fatalf("expected de-duplicated move to front, got %v", history)
	}
	if err := store.AddSearch("  "); err != nil {
		t.Fatalf("add blank: %v", err)
	}
	if !reflect.DeepEqual(store.SearchHistory(), history) {
		t.Fatalf("blank keyword must be ignored")
	}

	if err := store.ClearSearchHistory(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(store.SearchHistory()) != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestTheme(t *testing.T) {
	store, path := openTemp(t)
	if store.Theme() != settings.DefaultTheme {
		t.Fatalf("expected default theme, got %s", store.Theme())
	}
	if err := store.SetTheme("Lavender"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if err := store.SetTheme("neon"); !errors.Is(err, ErrUnknownTheme) {
		t.Fatalf("expected ErrUnknownTheme, got %v", err)
	}
	reopened, _ := Open(path)
	if reopened.Theme() != "lavender" {
		t.Fatalf("theme not persisted, got %s", reopened.Theme())
	}
}

func TestAnnouncementGateOverState(t *testing.T) {
	store, path := openTemp(t)
	gate := announcement.NewGate(store)
	a := models.Announcement{ID: "a1", Content: "maintenance"}
	if !gate.ShouldShow(a) {
		t.Fatalf("expected unseen announcement to show")
	}
	if err := gate.Dismiss(a); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	reopened, _ := Open(path)
	if announcement.NewGate(reopened).ShouldShow(a) {
		t.Fatalf("dismissal must survive reopen")
	}
}
