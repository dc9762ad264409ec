package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
	"github.com/router-for-me/DiaryHub/internal/identity"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/security"
	"github.com/router-for-me/DiaryHub/internal/session"
)

// AuthHandler serves registration, login and the caller's own account.
type AuthHandler struct {
	users  *identity.Store
	jwtCfg config.JWTConfig
	now    func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *identity.Store, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{users: users, jwtCfg: jwtCfg, now: time.Now}
}

// credentialsRequest is the register/login body.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionResponse carries the session projection and its bearer token.
type sessionResponse struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
}

// Register creates an account and returns its session.
func (h *AuthHandler) Register(c *gin.Context) {
	var body credentialsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	scope := session.Anonymous()
	sess, errRegister := h.users.Register(c.Request.Context(), scope, body.Username, body.Password)
	if errRegister != nil {
		middleware.WriteError(c, errRegister)
		return
	}
	h.respondSession(c, http.StatusCreated, sess)
}

// Login authenticates and returns a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var body credentialsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, errLogin := h.users.Login(c.Request.Context(), session.Anonymous(), body.Username, body.Password)
	if errLogin != nil {
		middleware.WriteError(c, errLogin)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// Logout ends the request session; tokens are stateless so the client discards its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.users.Logout(middleware.Scope(c))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the caller's session projection.
func (h *AuthHandler) Me(c *gin.Context) {
	cur := middleware.Scope(c).Current()
	if cur == nil {
		middleware.WriteError(c, identity.ErrNotLoggedIn)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": cur})
}

// activateAdminRequest carries the admin passphrase.
type activateAdminRequest struct {
	Key string `json:"key"`
}

// ActivateAdmin grants the admin capability and returns a refreshed token.
func (h *AuthHandler) ActivateAdmin(c *gin.Context) {
	var body activateAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, errActivate := h.users.ActivateAdmin(c.Request.Context(), middleware.Scope(c), body.Key)
	if errActivate != nil {
		middleware.WriteError(c, errActivate)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// updateProfileRequest lists optional profile fields.
type updateProfileRequest struct {
	Username     *string `json:"username"`
	Bio          *string `json:"bio"`
	ProfileCover *string `json:"profileCover"`
}

// UpdateProfile edits the caller's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, errUpdate := h.users.UpdateProfile(c.Request.Context(), middleware.Scope(c), identity.ProfilePatch{
		Username:     body.Username,
		Bio:          body.Bio,
		ProfileCover: body.ProfileCover,
	})
	if errUpdate != nil {
		middleware.WriteError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *AuthHandler) respondSession(c *gin.Context, status int, sess models.Session) {
	token, errToken := security.IssueSessionToken(h.jwtCfg.Secret, sess.UID, sess.IsAdmin, h.jwtCfg.Expiry, h.now())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(status, sessionResponse{Token: token, Session: sess})
}
