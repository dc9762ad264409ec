package content

import (
	"strings"

	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
)

// CanView reports whether the scope may read d, given the secret key the caller typed.
// Rules are checked in order and the first match wins.
func CanView(scope *session.Scope, d models.Diary, key string) bool {
	viewer := scope.Current()
	if viewer != nil && viewer.IsAdmin {
		return true
	}
	if viewer != nil && viewer.UID == d.UID {
		return true
	}
	switch d.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityPrivate:
		return false
	case models.VisibilitySecret:
		return key == d.SecretKey
	case models.VisibilityGroup:
		if viewer == nil {
			return false
		}
		return models.ContainsString(d.AllowedUsers, viewer.Username)
	default:
		return false
	}
}

// canManage reports whether the scope is the author of d or an admin.
func canManage(scope *session.Scope, d models.Diary) bool {
	viewer := scope.Current()
	if viewer == nil {
		return false
	}
	return viewer.IsAdmin || viewer.UID == d.UID
}

// redact hides the shared secret from callers who are neither author nor admin.
func redact(scope *session.Scope, d models.Diary) models.Diary {
	if canManage(scope, d) {
		return d
	}
	d.SecretKey = ""
	return d
}

// ParseAllowedUsers splits a comma separated username list, dropping blanks and duplicates.
func ParseAllowedUsers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '，' })
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field)
		if name == "" {
			continue
		}
		out = models.AddString(out, name)
	}
	return out
}

// HasLiked reports whether uid is in the diary's likes.
func HasLiked(d models.Diary, uid string) bool {
	return uid != "" && models.ContainsString(d.LikedBy, uid)
}

// LikeCount returns the number of likes of d.
func LikeCount(d models.Diary) int { return len(d.LikedBy) }
