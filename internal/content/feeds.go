package content

import (
	"sort"
	"strings"
	"time"

	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/session"
)

// Sort orders accepted by Search.
const (
	SortDateDesc   = "date-desc"
	SortDateAsc    = "date-asc"
	SortTitleAsc   = "title-asc"
	SortEventsDesc = "events-desc"
)

// PublicFeed lists public entries, pinned first, newest first.
func (s *Store) PublicFeed() []models.Diary {
	return cloneAll(s.public.Get())
}

// MyDiaries lists the scope's own entries, newest first.
func (s *Store) MyDiaries(scope *session.Scope) []models.Diary {
	uid := scope.UID()
	if uid == "" {
		return []models.Diary{}
	}
	out := make([]models.Diary, 0)
	for _, d := range s.byDate.Get() {
		if d.UID == uid {
			out = append(out, d.Clone())
		}
	}
	return out
}

// AdminAllDiaries lists every entry newest first; empty for non-admins.
func (s *Store) AdminAllDiaries(scope *session.Scope) []models.Diary {
	if !scope.IsAdmin() {
		return []models.Diary{}
	}
	return cloneAll(s.byDate.Get())
}

// AuthorDiaries lists the entries of uid the scope may open without a key, newest first.
func (s *Store) AuthorDiaries(scope *session.Scope, uid string) []models.Diary {
	out := make([]models.Diary, 0)
	for _, d := range s.byDate.Get() {
		if d.UID == uid && CanView(scope, d, "") {
			out = append(out, redact(scope, d.Clone()))
		}
	}
	return out
}

// Query filters and orders the personal feed.
type Query struct {
	Keyword string
	From    time.Time // inclusive calendar day; zero means unbounded
	To      time.Time // inclusive calendar day; zero means unbounded
	Sort    string
}

// Search filters the scope's own entries.
func (s *Store) Search(scope *session.Scope, q Query) []models.Diary {
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))
	var start, end time.Time
	if !q.From.IsZero() {
		start = dayStart(q.From)
	}
	if !q.To.IsZero() {
		end = dayStart(q.To).AddDate(0, 0, 1)
	}

	out := make([]models.Diary, 0)
	for _, d := range s.MyDiaries(scope) {
		if keyword != "" && !matchesKeyword(d, keyword) {
			continue
		}
		if !start.IsZero() && d.Date.Before(start) {
			continue
		}
		if !end.IsZero() && !d.Date.Before(end) {
			continue
		}
		out = append(out, d)
	}
	sortDiaries(out, q.Sort)
	return out
}

func matchesKeyword(d models.Diary, keyword string) bool {
	if strings.Contains(strings.ToLower(d.Title), keyword) || strings.Contains(strings.ToLower(d.Content), keyword) {
		return true
	}
	for _, event := range d.MajorEvents {
		if strings.Contains(strings.ToLower(event), keyword) {
			return true
		}
	}
	return false
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sortDiaries(list []models.Diary, order string) {
	switch order {
	case SortDateAsc:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	case SortTitleAsc:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	case SortEventsDesc:
		sort.SliceStable(list, func(i, j int) bool {
			if len(list[i].MajorEvents) != len(list[j].MajorEvents) {
				return len(list[i].MajorEvents) > len(list[j].MajorEvents)
			}
			return list[i].Date.After(list[j].Date)
		})
	default:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	}
}

func buildPublicFeed(all []models.Diary) []models.Diary {
	out := make([]models.Diary, 0, len(all))
	for _, d := range all {
		if d.Visibility == models.VisibilityPublic {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func sortByDateDesc(all []models.Diary) []models.Diary {
	out := append([]models.Diary(nil), all...)
	sortDiaries(out, SortDateDesc)
	return out
}

func cloneAll(list []models.Diary) []models.Diary {
	out := make([]models.Diary, len(list))
	for i, d := range list {
		out[i] = d.Clone()
	}
	return out
}
