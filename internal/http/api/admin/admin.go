package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/feedback"
	handlers "github.com/router-for-me/DiaryHub/internal/http/api/admin/handlers"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
)

// Deps bundles the stores the admin routes operate on.
type Deps struct {
	Diaries       *content.Store
	Feedback      *feedback.Store
	Announcements *announcement.Store
	Users         handlers.UserRemover
	Health        handlers.HealthCheck
	Version       string
}

// RegisterAdminRoutes registers health probes and the /v0/admin moderation routes.
// session is the request scope middleware. Admin routes are never throttled.
func RegisterAdminRoutes(r *gin.Engine, deps Deps, session gin.HandlerFunc) {
	if r == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.Health, deps.Version)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/v0/version", healthHandler.Version)

	authed := r.Group("/v0/admin")
	if session != nil {
		authed.Use(session)
	}
	authed.Use(middleware.RequireAdmin())

	diaryHandler := handlers.NewDiaryAdminHandler(deps.Diaries)
	authed.GET("/diaries", diaryHandler.List)
	authed.POST("/diaries/:id/pin", diaryHandler.Pin)

	if deps.Users != nil {
		userHandler := handlers.NewUserAdminHandler(deps.Users)
		authed.DELETE("/users/:uid", userHandler.Delete)
	}

	feedbackHandler := handlers.NewFeedbackAdminHandler(deps.Feedback)
	authed.GET("/feedback", feedbackHandler.List)
	authed.POST("/feedback/:id/reply", feedbackHandler.Reply)
	authed.DELETE("/feedback/:id", feedbackHandler.Delete)

	announcementHandler := handlers.NewAnnouncementAdminHandler(deps.Announcements)
	authed.PUT("/announcement", announcementHandler.Set)
	authed.DELETE("/announcement", announcementHandler.Clear)
}
