package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/feedback"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
	"github.com/router-for-me/DiaryHub/internal/notification"
)

// DefaultUnreadWait bounds one unread long-poll.
const DefaultUnreadWait = 20 * time.Second

// NotificationHandler serves the caller's mailbox.
type NotificationHandler struct {
	notifications *notification.Store
	wait          time.Duration
}

// NewNotificationHandler constructs a NotificationHandler; a non-positive wait uses
// DefaultUnreadWait.
func NewNotificationHandler(notifications *notification.Store, wait time.Duration) *NotificationHandler {
	if wait <= 0 {
		wait = DefaultUnreadWait
	}
	return &NotificationHandler{notifications: notifications, wait: wait}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	uid := middleware.Scope(c).UID()
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.notifications.ForUser(uid),
		"unread":        h.notifications.UnreadCount(uid),
	})
}

// UnreadCount returns the caller's unread count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"unread": h.notifications.UnreadCount(middleware.Scope(c).UID())})
}

// WaitUnread blocks until the caller's unread count differs from ?unread= or the
// wait ends, then returns the current count.
func (h *NotificationHandler) WaitUnread(c *gin.Context) {
	known, errParse := strconv.Atoi(c.DefaultQuery("unread", "-1"))
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unread"})
		return
	}
	uid := middleware.Scope(c).UID()

	changed := make(chan struct{}, 1)
	cancel := h.notifications.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()
	timer := time.NewTimer(h.wait)
	defer timer.Stop()

	for {
		unread := h.notifications.UnreadCount(uid)
		if unread != known {
			c.JSON(http.StatusOK, gin.H{"unread": unread})
			return
		}
		select {
		case <-changed:
		case <-timer.C:
			c.JSON(http.StatusOK, gin.H{"unread": unread})
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// Read flags one notification as read.
func (h *NotificationHandler) Read(c *gin.Context) {
	if errMark := h.notifications.MarkAsRead(c.Request.Context(), middleware.Scope(c), c.Param("id")); errMark != nil {
		middleware.WriteError(c, errMark)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReadAll flags every unread notification of the caller.
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	scope := middleware.Scope(c)
	if errMark := h.notifications.MarkAllAsRead(c.Request.Context(), scope, scope.UID()); errMark != nil {
		middleware.WriteError(c, errMark)
		return
	}
	c.Status(http.StatusNoContent)
}

// FeedbackHandler serves ticket submission.
type FeedbackHandler struct {
	feedback *feedback.Store
}

// NewFeedbackHandler constructs a FeedbackHandler.
func NewFeedbackHandler(store *feedback.Store) *FeedbackHandler {
	return &FeedbackHandler{feedback: store}
}

// feedbackRequest is the submission body.
type feedbackRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Contact string `json:"contact"`
}

// Submit records a ticket, anonymous when the caller is not logged in.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var body feedbackRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	f, errAdd := h.feedback.AddFeedback(c.Request.Context(), middleware.Scope(c), feedback.Submission{
		Type:    body.Type,
		Content: body.Content,
		Contact: body.Contact,
	})
	if errAdd != nil {
		middleware.WriteError(c, errAdd)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feedback": f})
}

// Mine lists the caller's tickets.
func (h *FeedbackHandler) Mine(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"feedback": h.feedback.Mine(middleware.Scope(c))})
}

// AnnouncementHandler serves the current broadcast.
type AnnouncementHandler struct {
	announcements *announcement.Store
}

// NewAnnouncementHandler constructs an AnnouncementHandler.
func NewAnnouncementHandler(store *announcement.Store) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: store}
}

// Current returns the newest announcement or null.
func (h *AnnouncementHandler) Current(c *gin.Context) {
	a, ok := h.announcements.Current()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"announcement": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcement": a})
}
