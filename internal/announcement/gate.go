package announcement

import "github.com/router-for-me/DiaryHub/internal/models"

// SeenStore persists the id of the last dismissed announcement on this client.
type SeenStore interface {
	LastSeenAnnouncement() string
	SetLastSeenAnnouncement(id string) error
}

// Gate suppresses an announcement once the client has dismissed it.
type Gate struct {
	seen SeenStore
}

// NewGate builds a gate over seen.
func NewGate(seen SeenStore) *Gate { return &Gate{seen: seen} }

// ShouldShow reports whether a should be surfaced again.
func (g *Gate) ShouldShow(a models.Announcement) bool {
	if a.ID == "" {
		return false
	}
	if g == nil || g.seen == nil {
		return true
	}
	return g.seen.LastSeenAnnouncement() != a.ID
}

// Dismiss records a as seen.
func (g *Gate) Dismiss(a models.Announcement) error {
	if g == nil || g.seen == nil || a.ID == "" {
		return nil
	}
	return g.seen.SetLastSeenAnnouncement(a.ID)
}
