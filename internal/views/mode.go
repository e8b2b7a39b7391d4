// Package views renders entities for clients. Every function is pure: the
// caller loads the rows and decides access, views only shapes them.
package views

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

// M is a rendered JSON object.
type M = map[string]any

// Mode is the projection depth of a read.
type Mode int

const (
	ModeMinimal Mode = 1
	ModeCompact Mode = 2
	ModeEntity  Mode = 3
	// ModeFull is ModeEntity plus relationship lists.
	ModeFull Mode = 4
)

// ParseMode maps the ?mode= query value. Anything unrecognized is full.
func ParseMode(raw string) Mode {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "1":
		return ModeMinimal
	case "2":
		return ModeCompact
	case "3":
		return ModeEntity
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 3 {
		return Mode(n)
	}
	return ModeFull
}

// Options tune a projection for one caller.
type Options struct {
	// ViewUsernames shows username and name on user blocks; otherwise only ids.
	ViewUsernames bool
	// Modified is the newest revision time. It shadows the row's updated_at.
	Modified *time.Time
}

// SnapshotOptions is the rendering used for history rows.
var SnapshotOptions = Options{ViewUsernames: true}

// Restricted is the shape returned for an entity the caller cannot read.
func Restricted(id uint) M {
	return M{"id": id, "restricted": true}
}

func date(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func modified(updated time.Time, opts Options) string {
	if opts.Modified != nil && opts.Modified.After(updated) {
		return stamp(*opts.Modified)
	}
	return stamp(updated)
}

func userBlock(u *user.User, id *uint, opts Options) any {
	if u == nil {
		if id == nil {
			return nil
		}
		return M{"id": *id}
	}
	if !opts.ViewUsernames {
		return M{"id": u.ID}
	}
	return M{"id": u.ID, "username": u.Username, "name": u.Name}
}

func roles(rs []user.Role) []M {
	out := make([]M, 0, len(rs))
	for _, r := range rs {
		out = append(out, M{"id": r.ID, "name": r.Name, "color": r.Color})
	}
	return out
}

func ref(id uint, title, titleAr string) M {
	return M{"id": id, "title": title, "title_ar": titleAr}
}

func labels(ls []vocab.Label) []M {
	out := make([]M, 0, len(ls))
	for _, l := range ls {
		out = append(out, ref(l.ID, l.Title, l.TitleAr))
	}
	return out
}

func sources(ss []vocab.Source) []M {
	out := make([]M, 0, len(ss))
	for _, s := range ss {
		out = append(out, ref(s.ID, s.Title, s.TitleAr))
	}
	return out
}

// Location renders a location reference with its derived strings and point.
func Location(l *vocab.Location) M {
	if l == nil {
		return nil
	}
	m := M{
		"id":            l.ID,
		"title":         l.Title,
		"title_ar":      l.TitleAr,
		"full_location": l.FullLocation,
		"parent_id":     l.ParentID,
		"lat":           l.Latitude,
		"lng":           l.Longitude,
		"postal_code":   l.PostalCode,
	}
	if l.AdminLevel != nil {
		m["admin_level"] = M{"code": l.AdminLevel.Code, "title": l.AdminLevel.Title}
	}
	if l.LocationType != nil {
		m["location_type"] = M{"id": l.LocationType.ID, "title": l.LocationType.Title}
	}
	return m
}

func locations(ls []vocab.Location) []M {
	out := make([]M, 0, len(ls))
	for i := range ls {
		out = append(out, Location(&ls[i]))
	}
	return out
}

// events are ordered by from_date ascending; undated events go last.
func events(evs []entities.Event) []M {
	sorted := append([]entities.Event(nil), evs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].FromDate, sorted[j].FromDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	out := make([]M, 0, len(sorted))
	for i := range sorted {
		ev := &sorted[i]
		m := M{
			"id":          ev.ID,
			"title":       ev.Title,
			"title_ar":    ev.TitleAr,
			"comments":    ev.Comments,
			"comments_ar": ev.CommentsAr,
			"from_date":   date(ev.FromDate),
			"to_date":     date(ev.ToDate),
			"estimated":   ev.Estimated,
			"location":    Location(ev.Location),
			"eventtype":   nil,
		}
		if ev.EventType != nil {
			m["eventtype"] = ref(ev.EventType.ID, ev.EventType.Title, ev.EventType.TitleAr)
		}
		out = append(out, m)
	}
	return out
}
