package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/app"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/localstate"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	services := app.NewServices(docstore.NewMemoryStore(), config.IdentityConfig{})
	require.NoError(t, services.Start(ctx))
	engine := app.NewEngine(services, nil, nil, config.JWTConfig{Secret: "client-test", Expiry: time.Hour})
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, name string) (*Client, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".yaml")
	state, err := localstate.Open(path)
	require.NoError(t, err)
	require.NoError(t, state.SetServer(srv.URL))
	return New(state), path
}

func TestSessionSurvivesRestart(t *testing.T) {
	srv := newTestServer(t)
	c, statePath := newTestClient(t, srv, "alice")
	ctx := context.Background()

	sess, err := c.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, "alice", sess.Username)

	reopened, err := localstate.Open(statePath)
	require.NoError(t, err)
	again := New(reopened)
	require.True(t, again.Scope().Authenticated())

	me, err := again.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, sess.UID, me.UID)

	require.NoError(t, again.Logout(ctx))
	require.NoError(t, again.Logout(ctx))
	require.False(t, again.Scope().Authenticated())

	_, err = again.Me(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestWriteSearchAndHistory(t *testing.T) {
	srv := newTestServer(t)
	c, _ := newTestClient(t, srv, "bob")
	ctx := context.Background()

	_, err := c.Register(ctx, "bob", "pw")
	require.NoError(t, err)

	_, err = c.Write(ctx, DiaryInput{Title: "beach day", Content: "sand", Visibility: models.VisibilityPublic})
	require.NoError(t, err)
	secret, err := c.Write(ctx, DiaryInput{Title: "hidden", Content: "x", Visibility: models.VisibilitySecret, SecretKey: "k"})
	require.NoError(t, err)

	found, err := c.Mine(ctx, Query{Keyword: "beach"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	_, err = c.Mine(ctx, Query{Keyword: "hidden"})
	require.NoError(t, err)
	require.Equal(t, []string{"hidden", "beach"}, c.SearchHistory())

	feed, err := c.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)

	opened, err := c.Show(ctx, secret.ID, "")
	require.NoError(t, err)
	require.Equal(t, "k", opened.Diary.SecretKey)

	_, err = c.Write(ctx, DiaryInput{Title: "", Content: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "title is required", apiErr.Message)
}

func TestSocialAndAnnouncementGate(t *testing.T) {
	srv := newTestServer(t)
	alice, _ := newTestClient(t, srv, "alice")
	bob, _ := newTestClient(t, srv, "bob")
	ctx := context.Background()

	_, err := alice.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	_, err = bob.Register(ctx, "bob", "pw")
	require.NoError(t, err)

	target, ok, err := bob.FindUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	following, err := bob.Follow(ctx, target.UID)
	require.NoError(t, err)
	require.True(t, following)

	_, unread, err := alice.Notifications(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, unread)

	a, show, err := alice.Announcement(ctx)
	require.NoError(t, err)
	require.Nil(t, a)
	require.False(t, show)

	master, _ := newTestClient(t, srv, "master")
	_, err = master.Login(ctx, config.DefaultMasterUsername, config.DefaultMasterPassword)
	require.NoError(t, err)
	require.NoError(t, master.do(ctx, http.MethodPut, "/v0/admin/announcement", map[string]string{"content": "hello"}, nil))

	a, show, err = alice.Announcement(ctx)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.True(t, show)
	require.NoError(t, alice.DismissAnnouncement(*a))
	_, show, err = alice.Announcement(ctx)
	require.NoError(t, err)
	require.False(t, show)
}
