package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/identity"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
)

func startServices(t *testing.T, docs docstore.Store) *Services {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	services := NewServices(docs, config.IdentityConfig{})
	if err := services.Start(ctx); err != nil {
		t.Fatalf("start services: %v", err)
	}
	return services
}

func adminScope(services *Services) *session.Scope {
	master, _ := services.Users.Profile(services.Users.MasterUID())
	return session.NewScope(&master, nil)
}

func TestRemoveUserCascadesDiaries(t *testing.T) {
	services := startServices(t, docstore.NewMemoryStore())
	ctx := context.Background()

	alice := session.Anonymous()
	if _, err := services.Users.Register(ctx, alice, "alice", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	bob := session.Anonymous()
	if _, err := services.Users.Register(ctx, bob, "bob", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, title := range []string{"one", "two"} {
		if _, err := services.Diaries.AddDiary(ctx, alice, content.Draft{Title: title, Content: "x"}); err != nil {
			t.Fatalf("add diary: %v", err)
		}
	}
	if _, err := services.Diaries.AddDiary(ctx, bob, content.Draft{Title: "bob's", Content: "x", Visibility: models.VisibilityPublic}); err != nil {
		t.Fatalf("add diary: %v", err)
	}

	if err := services.RemoveUser(ctx, bob, alice.UID()); err != nil {
		t.Fatalf("non-admin remove: %v", err)
	}
	if _, ok := services.Users.User(alice.UID()); !ok {
		t.Fatalf("non-admin removed a user")
	}

	if err := services.RemoveUser(ctx, adminScope(services), alice.UID()); err != nil {
		t.Fatalf("remove user: %v", err)
	}
	if _, ok := services.Users.User(alice.UID()); ok {
		t.Fatalf("alice still present")
	}
	feed := services.Diaries.PublicFeed()
	if len(feed) != 1 || feed[0].UID != bob.UID() {
		t.Fatalf("expected only bob's diary, got %+v", feed)
	}
}

func TestRemoveUserRefusesMasterAndUnknown(t *testing.T) {
	services := startServices(t, docstore.NewMemoryStore())
	ctx := context.Background()
	scope := adminScope(services)

	if err := services.RemoveUser(ctx, scope, services.Users.MasterUID()); !errors.Is(err, identity.ErrProtectedUser) {
		t.Fatalf("expected ErrProtectedUser, got %v", err)
	}
	if err := services.RemoveUser(ctx, scope, "ghost"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestServicesOverSQLStore(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	t.Setenv(config.EnvDBConnection, "")
	t.Setenv(config.EnvStoreBackend, "")

	if _, err := EnsureConfig(configPath, 0); err != nil {
		t.Fatalf("ensure config: %v", err)
	}
	storeCfg, err := config.LoadStoreConfig(configPath)
	if err != nil {
		t.Fatalf("load store config: %v", err)
	}
	docs, err := OpenStore(context.Background(), configPath, storeCfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = docs.Close() })

	services := startServices(t, docs)
	if err := services.Healthy(context.Background()); err != nil {
		t.Fatalf("healthy: %v", err)
	}

	scope := session.Anonymous()
	if _, err := services.Users.Register(context.Background(), scope, "carol", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	stored, err := docs.Get(context.Background(), models.CollectionUsers, scope.UID())
	if err != nil {
		t.Fatalf("get stored user: %v", err)
	}
	if len(stored.Data) == 0 {
		t.Fatalf("expected stored user payload")
	}
	if _, ok := services.Users.User(scope.UID()); !ok {
		t.Fatalf("registered user missing from cache")
	}
}
