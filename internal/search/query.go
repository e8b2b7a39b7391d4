// Package search compiles structured search requests into gorm clause
// expressions. Compilation is pure: it never touches the database.
package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Request is the body of a search call.
type Request struct {
	Q            []Group `json:"q"`
	PerPage      int     `json:"per_page"`
	Page         int     `json:"page"`
	Cursor       string  `json:"cursor"`
	IncludeCount bool    `json:"include_count"`
}

// Group is one query group. Fields that do not apply to the searched kind are
// ignored, as are unknown JSON keys.
type Group struct {
	Op string `json:"op"`

	IDs IDList `json:"ids"`

	Tsv   string `json:"tsv"`
	ExTsv string `json:"extsv"`

	Tags     []string `json:"tags"`
	ExTags   []string `json:"exTags"`
	InExact  bool     `json:"inExact"`
	ExExact  bool     `json:"exExact"`
	OpTags   bool     `json:"opTags"`
	OpExTags bool     `json:"opExTags"`

	Labels      IDList `json:"labels"`
	ExLabels    IDList `json:"exlabels"`
	OpLabels    bool   `json:"oplabels"`
	ChildLabels bool   `json:"childlabels"`

	VLabels      IDList `json:"vlabels"`
	ExVLabels    IDList `json:"exvlabels"`
	OpVLabels    bool   `json:"opvlabels"`
	ChildVLabels bool   `json:"childverlabels"`

	Sources      IDList `json:"sources"`
	ExSources    IDList `json:"exsources"`
	OpSources    bool   `json:"opsources"`
	ChildSources bool   `json:"childsources"`

	Locations   IDList `json:"locations"`
	ExLocations IDList `json:"exlocations"`
	OpLocations bool   `json:"oplocations"`

	PubDate DateRange `json:"pubdate"`
	DocDate DateRange `json:"docdate"`
	Created DateRange `json:"created"`
	Updated DateRange `json:"updated"`

	EDate       DateRange `json:"edate"`
	EType       IDList    `json:"etype"`
	ELocation   IDList    `json:"elocation"`
	SingleEvent bool      `json:"singleEvent"`

	Roles  IDList `json:"roles"`
	NoRole bool   `json:"norole"`

	Assigned     IDList   `json:"assigned"`
	Unassigned   bool     `json:"unassigned"`
	Reviewer     IDList   `json:"reviewer"`
	Statuses     []string `json:"statuses"`
	ReviewAction string   `json:"reviewAction"`

	RelToBulletin uint `json:"rel_to_bulletin"`
	RelToActor    uint `json:"rel_to_actor"`
	RelToIncident uint `json:"rel_to_incident"`

	LatLng   *LatLng  `json:"latlng"`
	Radius   float64  `json:"radius"`
	LocTypes []string `json:"locTypes"`

	// actor facets
	Type        string   `json:"type"`
	Sex         []string `json:"sex"`
	Age         []string `json:"age"`
	Civilian    []string `json:"civilian"`
	Ethnography IDList   `json:"ethnography"`
	Nationality IDList   `json:"nationality"`
	OriginPlace IDList   `json:"originplace"`

	// incident facets
	PotentialViolations IDList `json:"potentialVCats"`
	ClaimedViolations   IDList `json:"claimedVCats"`
}

// IsOr reports whether the group joins the accumulated predicate with OR.
func (g Group) IsOr() bool { return strings.EqualFold(strings.TrimSpace(g.Op), "or") }

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IDList decodes ids written as numbers, numeric strings, {id: n} objects or
// a single such value.
type IDList []uint

func (l *IDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	var items []json.RawMessage
	if b[0] == '[' {
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
	} else {
		items = []json.RawMessage{b}
	}
	out := make(IDList, 0, len(items))
	for _, raw := range items {
		id, err := decodeID(raw)
		if err != nil {
			return err
		}
		if id != 0 {
			out = append(out, id)
		}
	}
	*l = out
	return nil
}

func decodeID(raw json.RawMessage) (uint, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	switch raw[0] {
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return 0, err
		}
		return decodeID(obj.ID)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q", s)
		}
		return uint(n), nil
	default:
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("invalid id %s", string(raw))
		}
		return uint(n), nil
	}
}

// DateRange is one day (single value) or an inclusive interval of days.
type DateRange struct {
	From   *time.Time
	To     *time.Time
	Single bool
}

func (d DateRange) IsZero() bool { return d.From == nil && d.To == nil }

// Bounds returns the half-open [lo, hi) interval covering the whole days.
func (d DateRange) Bounds() (lo, hi *time.Time) {
	if d.From != nil {
		v := d.From.UTC()
		lo = &v
	}
	last := d.To
	if d.Single {
		last = d.From
	}
	if last != nil {
		v := last.UTC().AddDate(0, 0, 1)
		hi = &v
	}
	return lo, hi
}

func (d *DateRange) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = DateRange{}
		return nil
	}
	var vals []*string
	if b[0] == '[' {
		if err := json.Unmarshal(b, &vals); err != nil {
			return err
		}
	} else {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		vals = []*string{&s}
	}
	var parsed []*time.Time
	for _, v := range vals {
		if v == nil || strings.TrimSpace(*v) == "" {
			parsed = append(parsed, nil)
			continue
		}
		t, err := ParseDay(*v)
		if err != nil {
			return err
		}
		parsed = append(parsed, &t)
	}
	out := DateRange{}
	if len(parsed) > 0 {
		out.From = parsed[0]
	}
	if len(parsed) > 1 {
		out.To = parsed[1]
	} else {
		out.Single = true
	}
	*d = out
	return nil
}

// ParseDay accepts YYYY-MM-DD or RFC 3339 and truncates to the UTC day.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
