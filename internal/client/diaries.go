package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/router-for-me/DiaryHub/internal/models"
)

// Query narrows the caller's own diaries.
type Query struct {
	Keyword string
	From    string // YYYY-MM-DD, inclusive
	To      string // YYYY-MM-DD, inclusive
	Sort    string
}

// DiaryInput is the create request.
type DiaryInput struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	CoverImage    string            `json:"coverImage,omitempty"`
	Visibility    models.Visibility `json:"visibility,omitempty"`
	SecretKey     string            `json:"secretKey,omitempty"`
	AllowedUsers  []string          `json:"allowedUsers,omitempty"`
	MajorEvents   []string          `json:"majorEvents,omitempty"`
	AutoSummarize bool              `json:"autoSummarize,omitempty"`
}

// OpenedDiary is a diary with the caller's like state.
type OpenedDiary struct {
	Diary models.Diary `json:"diary"`
	Liked bool         `json:"liked"`
	Likes int          `json:"likes"`
}

type diaryList struct {
	Diaries []models.Diary `json:"diaries"`
}

// Feed returns the public feed.
func (c *Client) Feed(ctx context.Context) ([]models.Diary, error) {
	var out diaryList
	if err := c.do(ctx, http.MethodGet, "/v0/diaries", nil, &out); err != nil {
		return nil, err
	}
	return out.Diaries, nil
}

// Mine searches the caller's diaries and remembers a non-empty keyword.
func (c *Client) Mine(ctx context.Context, q Query) ([]models.Diary, error) {
	params := url.Values{}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		params.Set("q", kw)
	}
	if q.From != "" {
		params.Set("from", q.From)
	}
	if q.To != "" {
		params.Set("to", q.To)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	path := "/v0/diaries/mine"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out diaryList
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		if errHistory := c.state.AddSearch(kw); errHistory != nil {
			return out.Diaries, errHistory
		}
	}
	return out.Diaries, nil
}

// SearchHistory returns remembered keywords, most recent first.
func (c *Client) SearchHistory() []string { return c.state.SearchHistory() }

// ClearSearchHistory forgets every keyword.
func (c *Client) ClearSearchHistory() error { return c.state.ClearSearchHistory() }

// Write creates a diary.
func (c *Client) Write(ctx context.Context, in DiaryInput) (models.Diary, error) {
	var out struct {
		Diary models.Diary `json:"diary"`
	}
	if err := c.do(ctx, http.MethodPost, "/v0/diaries", in, &out); err != nil {
		return models.Diary{}, err
	}
	return out.Diary, nil
}

// Show opens a diary; key is only needed for secret entries.
func (c *Client) Show(ctx context.Context, id, key string) (OpenedDiary, error) {
	path := "/v0/diaries/" + escape(id)
	if key != "" {
		path += "?key=" + url.QueryEscape(key)
	}
	var out OpenedDiary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return OpenedDiary{}, err
	}
	return out, nil
}

// Delete removes one of the caller's diaries.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v0/diaries/"+escape(id), nil, nil)
}

// Like toggles the caller's like and returns the new state and count.
func (c *Client) Like(ctx context.Context, id string) (bool, int, error) {
	var out struct {
		Liked bool `json:"liked"`
		Likes int  `json:"likes"`
	}
	if err := c.do(ctx, http.MethodPost, "/v0/diaries/"+escape(id)+"/like", nil, &out); err != nil {
		return false, 0, err
	}
	return out.Liked, out.Likes, nil
}
