package content

import "errors"

// Validation failures returned by content commands.
var (
	ErrNotLoggedIn          = errors.New("not logged in")
	ErrTitleRequired        = errors.New("title is required")
	ErrContentRequired      = errors.New("content is required")
	ErrInvalidVisibility    = errors.New("invalid visibility")
	ErrSecretKeyRequired    = errors.New("secret key is required")
	ErrAllowedUsersRequired = errors.New("allowed users are required")
	ErrWrongKey             = errors.New("wrong key")
	ErrForbidden            = errors.New("you do not have access to this diary")
	ErrSelfLike             = errors.New("cannot like yourself")
	ErrNotFound             = errors.New("diary not found")
	ErrImageTooLarge        = errors.New("image must not exceed 2MB")
)
