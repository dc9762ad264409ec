package identity

import "errors"

// Validation failures returned by identity commands.
var (
	ErrEmptyUsername      = errors.New("username is required")
	ErrEmptyPassword      = errors.New("password is required")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrReservedUsername   = errors.New("username is reserved")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWrongKey           = errors.New("wrong key")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrSessionExpired     = errors.New("session expired, please log in again")
	ErrSelfLike           = errors.New("cannot like yourself")
	ErrRateLimited        = errors.New("already liked this user today")
	ErrUserNotFound       = errors.New("user not found")
	ErrProtectedUser      = errors.New("the master account cannot be deleted")
	ErrImageTooLarge      = errors.New("image must not exceed 2MB")
)
