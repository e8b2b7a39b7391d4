package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/search"
)

// Write payloads use pointers for partial updates: a nil field is left
// untouched, a present list (even empty) replaces.

var validate = validator.New(validator.WithRequiredStructEnabled())

// Ref is an id written as a number, a numeric string or {"id": n}. Zero
// clears the reference.
type Ref uint

func (r *Ref) UnmarshalJSON(b []byte) error {
	var l search.IDList
	if err := l.UnmarshalJSON(b); err != nil {
		return err
	}
	*r = 0
	if len(l) > 0 {
		*r = Ref(l[0])
	}
	return nil
}

// Ptr returns nil for the zero reference.
func (r *Ref) Ptr() *uint {
	if r == nil || *r == 0 {
		return nil
	}
	v := uint(*r)
	return &v
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Date is an ISO-8601 date or datetime; "" and null clear it.
type Date struct {
	t *time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	d.t = nil
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string")
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.t = t
	return nil
}

func (d *Date) Time() *time.Time {
	if d == nil {
		return nil
	}
	return d.t
}

// ParseDate accepts the layouts clients send and normalizes to UTC.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, fmt.Errorf("malformed date %q", s)
}

// decodePayload unmarshals raw into dst and validates it, mapping failures
// onto validation errors.
func decodePayload(raw []byte, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return apierr.Validation("empty_payload", "request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(dst); err != nil {
		return apierr.Validation("invalid_payload", "%s", err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return apierr.Validation("invalid_payload", "%s", err.Error())
	}
	return nil
}

// WorkflowInput is shared by every entity kind.
type WorkflowInput struct {
	Status             *string        `json:"status"`
	AssignedTo         *Ref           `json:"assigned_to"`
	FirstPeerReviewer  *Ref           `json:"first_peer_reviewer"`
	SecondPeerReviewer *Ref           `json:"second_peer_reviewer"`
	Comments           *string        `json:"comments"`
	Roles              *search.IDList `json:"roles"`
}

type EventInput struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	TitleAr    string `json:"title_ar"`
	Comments   string `json:"comments"`
	CommentsAr string `json:"comments_ar"`
	Location   *Ref   `json:"location"`
	EventType  *Ref   `json:"eventtype"`
	FromDate   *Date  `json:"from_date"`
	ToDate     *Date  `json:"to_date"`
	Estimated  bool   `json:"estimated"`
}

func (in EventInput) event() entities.Event {
	return entities.Event{
		ID:          in.ID,
		Title:       strings.TrimSpace(in.Title),
		TitleAr:     strings.TrimSpace(in.TitleAr),
		Comments:    in.Comments,
		CommentsAr:  in.CommentsAr,
		LocationID:  in.Location.Ptr(),
		EventTypeID: in.EventType.Ptr(),
		FromDate:    in.FromDate.Time(),
		ToDate:      in.ToDate.Time(),
		Estimated:   in.Estimated,
	}
}

// RelationInput is one edge in a write payload, seen from the focal entity.
type RelationInput struct {
	ID uint
	relations.Fields
}

func (r *RelationInput) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID          Ref           `json:"id"`
		Bulletin    *Ref          `json:"bulletin"`
		Actor       *Ref          `json:"actor"`
		Incident    *Ref          `json:"incident"`
		RelatedAs   search.IDList `json:"related_as"`
		Probability *int          `json:"probability"`
		Comment     string        `json:"comment"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.ID = uint(aux.ID)
	for _, ref := range []*Ref{aux.Bulletin, aux.Actor, aux.Incident} {
		if ref != nil && *ref != 0 {
			r.ID = uint(*ref)
		}
	}
	r.RelatedAs = make([]int64, 0, len(aux.RelatedAs))
	for _, v := range aux.RelatedAs {
		r.RelatedAs = append(r.RelatedAs, int64(v))
	}
	r.Probability = aux.Probability
	r.Comment = aux.Comment
	return nil
}

// RelationsInput carries the three relation lists an entity payload may hold.
type RelationsInput struct {
	Bulletins *[]RelationInput `json:"bulletin_relations"`
	Actors    *[]RelationInput `json:"actor_relations"`
	Incidents *[]RelationInput `json:"incident_relations"`
}

// Present lists the relation sets the payload carries, by counterpart kind.
func (r RelationsInput) Present() map[entities.Kind][]RelationInput {
	out := map[entities.Kind][]RelationInput{}
	if r.Bulletins != nil {
		out[entities.KindBulletin] = *r.Bulletins
	}
	if r.Actors != nil {
		out[entities.KindActor] = *r.Actors
	}
	if r.Incidents != nil {
		out[entities.KindIncident] = *r.Incidents
	}
	return out
}

// ReviewInput is the body of a review request.
type ReviewInput struct {
	Review       string `json:"review"`
	ReviewAction string `json:"review_action" validate:"omitempty,max=255"`
}

// AssignInput is the body of a self-assign request.
type AssignInput struct {
	Comments string `json:"comments"`
}

func idsOf(l *search.IDList) []uint {
	if l == nil {
		return nil
	}
	return []uint(*l)
}
