package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/summary"
)

// dateLayout is the calendar-day format of search bounds.
const dateLayout = "2006-01-02"

// DiaryHandler serves diary entries and feeds.
type DiaryHandler struct {
	diaries    *content.Store
	summarizer summary.Extractor
}

// NewDiaryHandler constructs a DiaryHandler.
func NewDiaryHandler(diaries *content.Store, summarizer summary.Extractor) *DiaryHandler {
	return &DiaryHandler{diaries: diaries, summarizer: summarizer}
}

// Feed returns the public feed.
func (h *DiaryHandler) Feed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"diaries": h.diaries.PublicFeed()})
}

// Mine searches the caller's own diaries.
func (h *DiaryHandler) Mine(c *gin.Context) {
	query := content.Query{
		Keyword: c.Query("q"),
		Sort:    c.Query("sort"),
	}
	var errDate error
	if query.From, errDate = parseDay(c.Query("from")); errDate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	if query.To, errDate = parseDay(c.Query("to")); errDate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"diaries": h.diaries.Search(middleware.Scope(c), query)})
}

// diaryRequest is the create body.
type diaryRequest struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	CoverImage    string            `json:"coverImage"`
	Visibility    models.Visibility `json:"visibility"`
	SecretKey     string            `json:"secretKey"`
	AllowedUsers  []string          `json:"allowedUsers"`
	MajorEvents   []string          `json:"majorEvents"`
	AutoSummarize bool              `json:"autoSummarize"`
}

// Create adds a diary authored by the caller.
func (h *DiaryHandler) Create(c *gin.Context) {
	var body diaryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	events := body.MajorEvents
	if len(events) == 0 && body.AutoSummarize && h.summarizer != nil {
		events = h.summarizer.ExtractMajorEvents(c.Request.Context(), body.Content)
	}
	d, errAdd := h.diaries.AddDiary(c.Request.Context(), middleware.Scope(c), content.Draft{
		Title:        body.Title,
		Content:      body.Content,
		CoverImage:   body.CoverImage,
		Visibility:   body.Visibility,
		SecretKey:    body.SecretKey,
		AllowedUsers: body.AllowedUsers,
		MajorEvents:  events,
	})
	if errAdd != nil {
		middleware.WriteError(c, errAdd)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"diary": d})
}

// Get opens one diary; secret entries take the key from ?key= or X-Diary-Key.
func (h *DiaryHandler) Get(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		key = c.GetHeader("X-Diary-Key")
	}
	scope := middleware.Scope(c)
	d, errOpen := h.diaries.Open(scope, c.Param("id"), key)
	if errOpen != nil {
		middleware.WriteError(c, errOpen)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"diary": d,
		"liked": content.HasLiked(d, scope.UID()),
		"likes": content.LikeCount(d),
	})
}

// updateDiaryRequest lists optional diary fields.
type updateDiaryRequest struct {
	Title        *string            `json:"title"`
	Content      *string            `json:"content"`
	CoverImage   *string            `json:"coverImage"`
	Visibility   *models.Visibility `json:"visibility"`
	SecretKey    *string            `json:"secretKey"`
	AllowedUsers *[]string          `json:"allowedUsers"`
	MajorEvents  *[]string          `json:"majorEvents"`
}

// Update edits a diary the caller authored.
func (h *DiaryHandler) Update(c *gin.Context) {
	var body updateDiaryRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := c.Param("id")
	if _, ok := h.diaries.Diary(id); !ok {
		middleware.WriteError(c, content.ErrNotFound)
		return
	}
	d, errUpdate := h.diaries.UpdateDiary(c.Request.Context(), middleware.Scope(c), id, content.Patch{
		Title:        body.Title,
		Content:      body.Content,
		CoverImage:   body.CoverImage,
		Visibility:   body.Visibility,
		SecretKey:    body.SecretKey,
		AllowedUsers: body.AllowedUsers,
		MajorEvents:  body.MajorEvents,
	})
	if errUpdate != nil {
		middleware.WriteError(c, errUpdate)
		return
	}
	if d.ID == "" {
		middleware.WriteError(c, content.ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, gin.H{"diary": d})
}

// Delete removes a diary the caller authored.
func (h *DiaryHandler) Delete(c *gin.Context) {
	if errDelete := h.diaries.DeleteDiary(c.Request.Context(), middleware.Scope(c), c.Param("id")); errDelete != nil {
		middleware.WriteError(c, errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}

// Like toggles the caller's like on a diary.
func (h *DiaryHandler) Like(c *gin.Context) {
	id := c.Param("id")
	liked, errLike := h.diaries.ToggleLike(c.Request.Context(), middleware.Scope(c), id)
	if errLike != nil {
		middleware.WriteError(c, errLike)
		return
	}
	d, _ := h.diaries.Diary(id)
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": content.LikeCount(d)})
}

// majorEventsRequest carries the content to summarize.
type majorEventsRequest struct {
	Content string `json:"content"`
}

// MajorEvents extracts major events without storing anything.
func (h *DiaryHandler) MajorEvents(c *gin.Context) {
	var body majorEventsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	events := []string{}
	if h.summarizer != nil {
		events = h.summarizer.ExtractMajorEvents(c.Request.Context(), body.Content)
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}
