package settings

import "time"

// Application defaults shared by the stores, the HTTP layer and the client.
const (
	// SiteName is the product name shown by the client.
	SiteName = "DiaryHub"
	// DefaultRequestRateLimit is the per-second budget of writes, likes and follows.
	DefaultRequestRateLimit = 10
	// LeaderboardSize is the number of entries in each leaderboard list.
	LeaderboardSize = 10
	// SearchHistoryLimit caps the remembered search keywords.
	SearchHistoryLimit = 10
	// SummaryMinRunes is the shortest content sent for major event extraction.
	SummaryMinRunes = 10
	// SummaryMaxEvents caps the extracted major events.
	SummaryMaxEvents = 3
	// SummaryFailure is returned in place of events when extraction fails.
	SummaryFailure = "AI分析失败，请手动添加"
	// MaxImageBytes caps embedded profile and diary cover images.
	MaxImageBytes = 2 * 1024 * 1024
	// DefaultTheme is the UI theme used before the client picks one.
	DefaultTheme = "warm"
	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout = 10 * time.Second
)

// Themes lists the selectable UI themes.
var Themes = []string{"warm", "cool", "rose", "fresh", "lavender"}

// ValidTheme reports whether name is a selectable theme.
func ValidTheme(name string) bool {
	for _, theme := range Themes {
		if theme == name {
			return true
		}
	}
	return false
}
