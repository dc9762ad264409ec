// Package client is the HTTP SDK of the DiaryHub front API. It keeps the
// session token, search history, dismissed announcement and theme in a
// localstate.Store between runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/localstate"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const defaultRequestTimeout = 30 * time.Second

// DefaultServer is used when the local state names no server.
var DefaultServer = fmt.Sprintf("http://127.0.0.1:%d", config.DefaultPort)

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// Client talks to one DiaryHub server on behalf of the local user.
type Client struct {
	baseURL string
	http    *http.Client
	state   *localstate.Store
	scope   *session.Scope
	gate    *announcement.Gate
}

// New builds a client over state. The scope mirrors the persisted session.
func New(state *localstate.Store) *Client {
	baseURL := state.Server()
	if baseURL == "" {
		baseURL = DefaultServer
	}
	sess, _ := state.Session()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
		state:   state,
		scope:   session.NewScope(sess, state.PersistSession),
		gate:    announcement.NewGate(state),
	}
}

// Scope returns the local session scope.
func (c *Client) Scope() *session.Scope { return c.scope }

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

type sessionEnvelope struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
}

// Register creates an account and stores its session.
func (c *Client) Register(ctx context.Context, username, password string) (models.Session, error) {
	return c.authenticate(ctx, "/v0/register", username, password)
}

// Login authenticates and stores the session.
func (c *Client) Login(ctx context.Context, username, password string) (models.Session, error) {
	return c.authenticate(ctx, "/v0/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (models.Session, error) {
	var out sessionEnvelope
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return models.Session{}, err
	}
	if errSave := c.saveSession(out); errSave != nil {
		return models.Session{}, errSave
	}
	return out.Session, nil
}

// ActivateAdmin presents the admin key and stores the promoted session.
func (c *Client) ActivateAdmin(ctx context.Context, key string) (models.Session, error) {
	var out sessionEnvelope
	if err := c.do(ctx, http.MethodPost, "/v0/me/admin", map[string]string{"key": key}, &out); err != nil {
		return models.Session{}, err
	}
	if errSave := c.saveSession(out); errSave != nil {
		return models.Session{}, errSave
	}
	return out.Session, nil
}

func (c *Client) saveSession(env sessionEnvelope) error {
	if errState := c.state.SetSession(&env.Session, env.Token); errState != nil {
		return fmt.Errorf("client: save session: %w", errState)
	}
	c.scope.Set(env.Session)
	return nil
}

// Logout ends the session locally; calling it while logged out is harmless.
func (c *Client) Logout(ctx context.Context) error {
	if _, token := c.state.Session(); token != "" {
		if err := c.do(ctx, http.MethodPost, "/v0/logout", nil, nil); err != nil {
			log.WithError(err).Debug("client: server logout failed")
		}
	}
	c.scope.Clear()
	return c.state.SetSession(nil, "")
}

// Me refreshes the session from the server.
func (c *Client) Me(ctx context.Context) (models.Session, error) {
	var out struct {
		Session models.Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/me", nil, &out); err != nil {
		return models.Session{}, err
	}
	c.scope.Set(out.Session)
	return out.Session, nil
}

// UpdateProfile edits the caller's profile fields that are non-nil.
func (c *Client) UpdateProfile(ctx context.Context, username, bio *string) (models.Session, error) {
	body := map[string]*string{"username": username, "bio": bio}
	var out struct {
		Session models.Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodPut, "/v0/me/profile", body, &out); err != nil {
		return models.Session{}, err
	}
	c.scope.Set(out.Session)
	return out.Session, nil
}

// do sends body as JSON and decodes a 2xx answer into out.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			return fmt.Errorf("client: encode request: %w", errMarshal)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if _, token := c.state.Session(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("client: close response body failed")
		}
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode, Message: gjson.GetBytes(raw, "error").String()}
		if resp.StatusCode == http.StatusUnauthorized && path != "/v0/login" && path != "/v0/register" {
			c.scope.Clear()
			_ = c.state.SetSession(nil, "")
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if errDecode := json.Unmarshal(raw, out); errDecode != nil {
		return fmt.Errorf("client: decode response: %w", errDecode)
	}
	return nil
}

func escape(segment string) string { return url.PathEscape(segment) }
