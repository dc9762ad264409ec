package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/router-for-me/DiaryHub/internal/models"
)

// Profile is a user page as the caller sees it.
type Profile struct {
	User      models.Session `json:"user"`
	Following bool           `json:"following"`
	Diaries   []models.Diary `json:"diaries"`
}

// Leaderboard holds the two rankings.
type Leaderboard struct {
	TopFollowed []models.Session `json:"topFollowed"`
	TopLiked    []models.Session `json:"topLiked"`
}

// Users lists the directory.
func (c *Client) Users(ctx context.Context) ([]models.Session, error) {
	var out struct {
		Users []models.Session `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// FindUser resolves a username to its directory entry.
func (c *Client) FindUser(ctx context.Context, username string) (models.Session, bool, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return models.Session{}, false, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return models.Session{}, false, nil
}

// Profile loads a user page.
func (c *Client) Profile(ctx context.Context, uid string) (Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/v0/users/"+escape(uid), nil, &out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// Follow toggles following uid and reports the new state.
func (c *Client) Follow(ctx context.Context, uid string) (bool, error) {
	var out struct {
		Following bool `json:"following"`
	}
	if err := c.do(ctx, http.MethodPost, "/v0/users/"+escape(uid)+"/follow", nil, &out); err != nil {
		return false, err
	}
	return out.Following, nil
}

// LikeUser adds one profile like and returns the new total.
func (c *Client) LikeUser(ctx context.Context, uid string) (int, error) {
	var out struct {
		LikesReceived int `json:"likesReceived"`
	}
	if err := c.do(ctx, http.MethodPost, "/v0/users/"+escape(uid)+"/like", nil, &out); err != nil {
		return 0, err
	}
	return out.LikesReceived, nil
}

// Leaderboard loads the rankings.
func (c *Client) Leaderboard(ctx context.Context) (Leaderboard, error) {
	var out Leaderboard
	if err := c.do(ctx, http.MethodGet, "/v0/leaderboard", nil, &out); err != nil {
		return Leaderboard{}, err
	}
	return out, nil
}

// Notifications returns the caller's mailbox and unread count.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, int, error) {
	var out struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/notifications", nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Notifications, out.Unread, nil
}

// WaitUnread long-polls until the unread count differs from known and returns it.
func (c *Client) WaitUnread(ctx context.Context, known int) (int, error) {
	var out struct {
		Unread int `json:"unread"`
	}
	path := "/v0/notifications/unread-count/wait?unread=" + strconv.Itoa(known)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Unread, nil
}

// ReadAll marks every notification read.
func (c *Client) ReadAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v0/notifications/read-all", nil, nil)
}

// SubmitFeedback files a ticket.
func (c *Client) SubmitFeedback(ctx context.Context, kind, text, contact string) (models.Feedback, error) {
	var out struct {
		Feedback models.Feedback `json:"feedback"`
	}
	body := map[string]string{"type": kind, "content": text, "contact": contact}
	if err := c.do(ctx, http.MethodPost, "/v0/feedback", body, &out); err != nil {
		return models.Feedback{}, err
	}
	return out.Feedback, nil
}

// Announcement returns the current announcement and whether it is still unseen.
func (c *Client) Announcement(ctx context.Context) (*models.Announcement, bool, error) {
	var out struct {
		Announcement *models.Announcement `json:"announcement"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/announcement", nil, &out); err != nil {
		return nil, false, err
	}
	if out.Announcement == nil {
		return nil, false, nil
	}
	return out.Announcement, c.gate.ShouldShow(*out.Announcement), nil
}

// DismissAnnouncement hides a until a newer one is published.
func (c *Client) DismissAnnouncement(a models.Announcement) error {
	return c.gate.Dismiss(a)
}
