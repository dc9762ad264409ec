package front

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/feedback"
	handlers "github.com/router-for-me/DiaryHub/internal/http/api/front/handlers"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
	"github.com/router-for-me/DiaryHub/internal/identity"
	"github.com/router-for-me/DiaryHub/internal/notification"
	"github.com/router-for-me/DiaryHub/internal/ratelimit"
	"github.com/router-for-me/DiaryHub/internal/summary"
)

// Deps bundles the stores the front routes operate on.
type Deps struct {
	Users         *identity.Store
	Diaries       *content.Store
	Notifications *notification.Store
	Feedback      *feedback.Store
	Announcements *announcement.Store
	Summarizer    summary.Extractor
	JWT           config.JWTConfig
	Limiter       *ratelimit.Manager
	// UnreadWait bounds the unread long-poll; zero uses the handler default.
	UnreadWait    time.Duration
}

// RegisterFrontRoutes registers the public /v0 routes. session is the request
// scope middleware; mutating routes are throttled per action by deps.Limiter.
func RegisterFrontRoutes(r *gin.Engine, deps Deps, session gin.HandlerFunc) {
	if r == nil || deps.Users == nil || deps.Diaries == nil {
		return
	}
	throttle := func(action ratelimit.Action) gin.HandlerFunc {
		return middleware.Throttle(deps.Limiter, action)
	}
	signIn := throttle(ratelimit.ActionSignIn)
	write := throttle(ratelimit.ActionWrite)
	like := throttle(ratelimit.ActionLike)

	api := r.Group("/v0")
	api.Use(session)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT)
	api.POST("/register", signIn, authHandler.Register)
	api.POST("/login", signIn, authHandler.Login)

	userHandler := handlers.NewUserHandler(deps.Users, deps.Diaries)
	api.GET("/users", userHandler.List)
	api.GET("/users/:uid", userHandler.Get)
	api.GET("/leaderboard", userHandler.Leaderboard)

	diaryHandler := handlers.NewDiaryHandler(deps.Diaries, deps.Summarizer)
	api.GET("/diaries", diaryHandler.Feed)
	api.GET("/diaries/:id", diaryHandler.Get)

	announcementHandler := handlers.NewAnnouncementHandler(deps.Announcements)
	api.GET("/announcement", announcementHandler.Current)

	feedbackHandler := handlers.NewFeedbackHandler(deps.Feedback)
	api.POST("/feedback", throttle(ratelimit.ActionFeedback), feedbackHandler.Submit)

	authed := api.Group("")
	authed.Use(middleware.RequireSession())

	authed.POST("/logout", authHandler.Logout)
	authed.GET("/me", authHandler.Me)
	authed.POST("/me/admin", signIn, authHandler.ActivateAdmin)
	authed.PUT("/me/profile", write, authHandler.UpdateProfile)

	authed.POST("/users/:uid/follow", throttle(ratelimit.ActionFollow), userHandler.Follow)
	authed.POST("/users/:uid/like", like, userHandler.Like)

	authed.GET("/diaries/mine", diaryHandler.Mine)
	authed.POST("/diaries", write, diaryHandler.Create)
	authed.PUT("/diaries/:id", write, diaryHandler.Update)
	authed.DELETE("/diaries/:id", write, diaryHandler.Delete)
	authed.POST("/diaries/:id/like", like, diaryHandler.Like)
	authed.POST("/ai/major-events", throttle(ratelimit.ActionSummarize), diaryHandler.MajorEvents)

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications, deps.UnreadWait)
	authed.GET("/notifications", notificationHandler.List)
	authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	authed.GET("/notifications/unread-count/wait", notificationHandler.WaitUnread)
	authed.POST("/notifications/:id/read", notificationHandler.Read)
	authed.POST("/notifications/read-all", notificationHandler.ReadAll)

	authed.GET("/feedback/mine", feedbackHandler.Mine)
}
