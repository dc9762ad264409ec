package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/feedback"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
	"github.com/router-for-me/DiaryHub/internal/session"
)

// DiaryAdminHandler serves the moderation view of every diary.
type DiaryAdminHandler struct {
	diaries *content.Store
}

// NewDiaryAdminHandler constructs a DiaryAdminHandler.
func NewDiaryAdminHandler(diaries *content.Store) *DiaryAdminHandler {
	return &DiaryAdminHandler{diaries: diaries}
}

// List returns every diary regardless of visibility.
func (h *DiaryAdminHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"diaries": h.diaries.AdminAllDiaries(middleware.Scope(c))})
}

// Pin toggles the pinned flag.
func (h *DiaryAdminHandler) Pin(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.diaries.Diary(id); !ok {
		middleware.WriteError(c, content.ErrNotFound)
		return
	}
	if errPin := h.diaries.TogglePin(c.Request.Context(), middleware.Scope(c), id); errPin != nil {
		middleware.WriteError(c, errPin)
		return
	}
	d, _ := h.diaries.Diary(id)
	c.JSON(http.StatusOK, gin.H{"isPinned": d.IsPinned})
}

// UserRemover deletes an account together with its diaries.
type UserRemover interface {
	RemoveUser(ctx context.Context, scope *session.Scope, uid string) error
}

// UserAdminHandler serves account removal.
type UserAdminHandler struct {
	remover UserRemover
}

// NewUserAdminHandler constructs a UserAdminHandler.
func NewUserAdminHandler(remover UserRemover) *UserAdminHandler {
	return &UserAdminHandler{remover: remover}
}

// Delete removes a user and every diary they wrote.
func (h *UserAdminHandler) Delete(c *gin.Context) {
	if errRemove := h.remover.RemoveUser(c.Request.Context(), middleware.Scope(c), c.Param("uid")); errRemove != nil {
		middleware.WriteError(c, errRemove)
		return
	}
	c.Status(http.StatusNoContent)
}

// FeedbackAdminHandler serves ticket triage.
type FeedbackAdminHandler struct {
	feedback *feedback.Store
}

// NewFeedbackAdminHandler constructs a FeedbackAdminHandler.
func NewFeedbackAdminHandler(store *feedback.Store) *FeedbackAdminHandler {
	return &FeedbackAdminHandler{feedback: store}
}

// List returns every ticket, newest first.
func (h *FeedbackAdminHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"feedback": h.feedback.All(middleware.Scope(c))})
}

// replyRequest carries the admin reply.
type replyRequest struct {
	Reply string `json:"reply"`
}

// Reply stores the reply and notifies the submitter.
func (h *FeedbackAdminHandler) Reply(c *gin.Context) {
	var body replyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errReply := h.feedback.ReplyToFeedback(c.Request.Context(), middleware.Scope(c), c.Param("id"), body.Reply); errReply != nil {
		middleware.WriteError(c, errReply)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete removes a ticket.
func (h *FeedbackAdminHandler) Delete(c *gin.Context) {
	if errDelete := h.feedback.DeleteFeedback(c.Request.Context(), middleware.Scope(c), c.Param("id")); errDelete != nil {
		middleware.WriteError(c, errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}

// AnnouncementAdminHandler publishes and retracts broadcasts.
type AnnouncementAdminHandler struct {
	announcements *announcement.Store
}

// NewAnnouncementAdminHandler constructs an AnnouncementAdminHandler.
func NewAnnouncementAdminHandler(store *announcement.Store) *AnnouncementAdminHandler {
	return &AnnouncementAdminHandler{announcements: store}
}

// announcementRequest carries the broadcast text.
type announcementRequest struct {
	Content string `json:"content"`
}

// Set publishes a new announcement.
func (h *AnnouncementAdminHandler) Set(c *gin.Context) {
	var body announcementRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, errSet := h.announcements.SetAnnouncement(c.Request.Context(), middleware.Scope(c), strings.TrimSpace(body.Content))
	if errSet != nil {
		middleware.WriteError(c, errSet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcement": a})
}

// Clear retracts the current announcement.
func (h *AnnouncementAdminHandler) Clear(c *gin.Context) {
	if errClear := h.announcements.ClearAnnouncement(c.Request.Context(), middleware.Scope(c)); errClear != nil {
		middleware.WriteError(c, errClear)
		return
	}
	c.Status(http.StatusNoContent)
}
