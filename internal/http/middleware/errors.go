package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/announcement"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	"github.com/router-for-me/DiaryHub/internal/feedback"
	"github.com/router-for-me/DiaryHub/internal/identity"
	log "github.com/sirupsen/logrus"
)

type errorStatus struct {
	err    error
	status int
}

// statusTable maps domain errors to HTTP status codes; first match wins.
var statusTable = []errorStatus{
	{docstore.ErrPersist, http.StatusInternalServerError},
	{identity.ErrNotLoggedIn, http.StatusUnauthorized},
	{identity.ErrSessionExpired, http.StatusUnauthorized},
	{identity.ErrInvalidCredentials, http.StatusUnauthorized},
	{content.ErrNotLoggedIn, http.StatusUnauthorized},
	{identity.ErrWrongKey, http.StatusForbidden},
	{identity.ErrProtectedUser, http.StatusForbidden},
	{content.ErrWrongKey, http.StatusForbidden},
	{content.ErrForbidden, http.StatusForbidden},
	{identity.ErrRateLimited, http.StatusTooManyRequests},
	{identity.ErrUserNotFound, http.StatusNotFound},
	{content.ErrNotFound, http.StatusNotFound},
	{identity.ErrEmptyUsername, http.StatusBadRequest},
	{identity.ErrEmptyPassword, http.StatusBadRequest},
	{identity.ErrDuplicateUsername, http.StatusConflict},
	{identity.ErrReservedUsername, http.StatusBadRequest},
	{identity.ErrSelfLike, http.StatusBadRequest},
	{identity.ErrImageTooLarge, http.StatusBadRequest},
	{content.ErrTitleRequired, http.StatusBadRequest},
	{content.ErrContentRequired, http.StatusBadRequest},
	{content.ErrInvalidVisibility, http.StatusBadRequest},
	{content.ErrSecretKeyRequired, http.StatusBadRequest},
	{content.ErrAllowedUsersRequired, http.StatusBadRequest},
	{content.ErrSelfLike, http.StatusBadRequest},
	{content.ErrImageTooLarge, http.StatusBadRequest},
	{feedback.ErrContentRequired, http.StatusBadRequest},
	{feedback.ErrReplyRequired, http.StatusBadRequest},
	{announcement.ErrContentRequired, http.StatusBadRequest},
}

// StatusFor returns the HTTP status of err and whether it is a known domain error.
func StatusFor(err error) (int, bool) {
	for _, entry := range statusTable {
		if errors.Is(err, entry.err) {
			return entry.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// WriteError renders err as {"error": reason}. Persistence failures show the
// generic retry text and unknown errors are hidden.
func WriteError(c *gin.Context, err error) {
	status, known := StatusFor(err)
	switch {
	case !known:
		log.WithError(err).Error("http: unexpected error")
		c.JSON(status, gin.H{"error": "internal error"})
	case errors.Is(err, docstore.ErrPersist):
		c.JSON(status, gin.H{"error": docstore.ErrPersist.Error()})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}
