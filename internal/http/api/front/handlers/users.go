package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
	"github.com/router-for-me/DiaryHub/internal/identity"
	"github.com/router-for-me/DiaryHub/internal/settings"
)

// UserHandler serves the directory, profiles and social actions.
type UserHandler struct {
	users   *identity.Store
	diaries *content.Store
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *identity.Store, diaries *content.Store) *UserHandler {
	return &UserHandler{users: users, diaries: diaries}
}

// List returns the credential-stripped directory.
func (h *UserHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.users.Users()})
}

// Get returns a profile with the diaries the caller may read.
func (h *UserHandler) Get(c *gin.Context) {
	uid := c.Param("uid")
	profile, ok := h.users.Profile(uid)
	if !ok {
		middleware.WriteError(c, identity.ErrUserNotFound)
		return
	}
	scope := middleware.Scope(c)
	c.JSON(http.StatusOK, gin.H{
		"user":      profile,
		"following": h.users.IsFollowing(scope.UID(), uid),
		"diaries":   h.diaries.AuthorDiaries(scope, uid),
	})
}

// Follow toggles whether the caller follows the user.
func (h *UserHandler) Follow(c *gin.Context) {
	following, errFollow := h.users.ToggleFollow(c.Request.Context(), middleware.Scope(c), c.Param("uid"))
	if errFollow != nil {
		middleware.WriteError(c, errFollow)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// Like adds one profile like.
func (h *UserHandler) Like(c *gin.Context) {
	if errLike := h.users.LikeUser(c.Request.Context(), middleware.Scope(c), c.Param("uid")); errLike != nil {
		middleware.WriteError(c, errLike)
		return
	}
	profile, _ := h.users.Profile(c.Param("uid"))
	c.JSON(http.StatusOK, gin.H{"likesReceived": profile.LikesReceived})
}

// Leaderboard returns the top followed and top liked users.
func (h *UserHandler) Leaderboard(c *gin.Context) {
	n := settings.LeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}
	c.JSON(http.StatusOK, h.users.Leaderboard(n))
}
