package models

import "time"

// User is a directory entry in the users collection.
type User struct {
	UID          string `json:"uid"`          // Stable identifier, immutable after creation.
	Username     string `json:"username"`     // Unique, case-sensitive login name.
	Password     string `json:"password"`     // Plaintext credential.
	IsAdmin      bool   `json:"isAdmin"`      // Admin capability flag.
	Bio          string `json:"bio"`          // Free-form profile text.
	ProfileCover string `json:"profileCover"` // Embedded cover image data.

	Followers []string `json:"followers"` // UIDs following this user.
	Following []string `json:"following"` // UIDs this user follows.

	LikesReceived int                  `json:"likesReceived"` // Profile likes received.
	LikedUsersLog map[string]time.Time `json:"likedUsersLog"` // Last like time per target uid.

	CreatedAt time.Time `json:"createdAt"` // Registration timestamp.
}

// Session returns the credential-stripped projection of the user.
func (u User) Session() Session {
	return Session{
		UID:           u.UID,
		Username:      u.Username,
		IsAdmin:       u.IsAdmin,
		Bio:           u.Bio,
		ProfileCover:  u.ProfileCover,
		Followers:     CloneStrings(u.Followers),
		Following:     CloneStrings(u.Following),
		LikesReceived: u.LikesReceived,
	}
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	out := u
	out.Followers = CloneStrings(u.Followers)
	out.Following = CloneStrings(u.Following)
	if u.LikedUsersLog != nil {
		out.LikedUsersLog = make(map[string]time.Time, len(u.LikedUsersLog))
		for k, v := range u.LikedUsersLog {
			out.LikedUsersLog[k] = v
		}
	}
	return out
}

// Session is the authenticated identity as seen by a client.
type Session struct {
	UID           string   `json:"uid"`
	Username      string   `json:"username"`
	IsAdmin       bool     `json:"isAdmin"`
	Bio           string   `json:"bio,omitempty"`
	ProfileCover  string   `json:"profileCover,omitempty"`
	Followers     []string `json:"followers,omitempty"`
	Following     []string `json:"following,omitempty"`
	LikesReceived int      `json:"likesReceived"`
}
