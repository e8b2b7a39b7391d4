package services

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/lib/pq"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/search"
)

// entityInput is the decoded write payload of one entity kind.
type entityInput interface {
	workflow() *WorkflowInput
	relationSets() RelationsInput
	// requireNew checks the fields a new row must carry.
	requireNew() error
	// build copies present scalar fields onto e.
	build(e entities.Entity) error
	// links are the many-to-many lists present in the payload, by assoc.
	links() map[string][]uint
	refs(r *refSet)
	// children writes owned rows once e has an id.
	children(dbc dbctx.Context, w childWriter, e entities.Entity, userID uint, create bool) error
}

type childWriter struct {
	repo repos.ChildRepo
}

// refSet collects every foreign id a payload mentions so they can be checked
// in one pass before anything is written.
type refSet struct {
	Labels              []uint
	Sources             []uint
	Locations           []uint
	EventTypes          []uint
	Countries           []uint
	Ethnographies       []uint
	Dialects            []uint
	PotentialViolations []uint
	ClaimedViolations   []uint
	Roles               []uint
	Users               []uint
}

func addIDs(dst *[]uint, ids ...uint) {
	for _, id := range ids {
		if id != 0 && !slices.Contains(*dst, id) {
			*dst = append(*dst, id)
		}
	}
}

func addRef(dst *[]uint, r *Ref) {
	if p := r.Ptr(); p != nil {
		addIDs(dst, *p)
	}
}

func (r *refSet) workflow(w *WorkflowInput) {
	addRef(&r.Users, w.AssignedTo)
	addRef(&r.Users, w.FirstPeerReviewer)
	addRef(&r.Users, w.SecondPeerReviewer)
	addIDs(&r.Roles, idsOf(w.Roles)...)
}

func (r *refSet) events(evs *[]EventInput) {
	if evs == nil {
		return
	}
	for _, ev := range *evs {
		addRef(&r.Locations, ev.Location)
		addRef(&r.EventTypes, ev.EventType)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setTags(dst *pq.StringArray, v *[]string) {
	if v == nil {
		return
	}
	out := pq.StringArray{}
	for _, t := range *v {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	*dst = out
}

func putLink(m map[string][]uint, assoc string, l *search.IDList) {
	if l != nil {
		m[assoc] = idsOf(l)
	}
}

func eventsOf(in *[]EventInput) []entities.Event {
	out := make([]entities.Event, 0, len(*in))
	for _, ev := range *in {
		out = append(out, ev.event())
	}
	return out
}

func validateEvents(evs *[]EventInput) error {
	if evs == nil {
		return nil
	}
	for i, ev := range *evs {
		from, to := ev.FromDate.Time(), ev.ToDate.Time()
		if from != nil && to != nil && to.Before(*from) {
			return apierr.Validation("invalid_event", "event %d ends before it starts", i)
		}
	}
	return nil
}

// =========================
// Bulletin
// =========================

type GeoLocationInput struct {
	Title     string  `json:"title"`
	TypeID    *Ref    `json:"type_id"`
	Main      bool    `json:"main"`
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lng" validate:"gte=-180,lte=180"`
	Comment   string  `json:"comment"`
}

type MediaInput struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	TitleAr  string `json:"title_ar"`
	Filename string `json:"filename"`
	FileType string `json:"filetype"`
	Etag     string `json:"etag"`
	Main     bool   `json:"main"`
}

type BulletinInput struct {
	WorkflowInput
	RelationsInput

	Title             *string             `json:"title"`
	TitleAr           *string             `json:"title_ar"`
	SjacTitle         *string             `json:"sjac_title"`
	SjacTitleAr       *string             `json:"sjac_title_ar"`
	Description       *string             `json:"description"`
	SourceLink        *string             `json:"source_link"`
	PublishDate       *Date               `json:"publish_date"`
	DocumentationDate *Date               `json:"documentation_date"`
	Tags              *[]string           `json:"tags"`
	Meta              json.RawMessage     `json:"meta"`
	Sources           *search.IDList      `json:"sources"`
	Locations         *search.IDList      `json:"locations"`
	Labels            *search.IDList      `json:"labels"`
	VerLabels         *search.IDList      `json:"verLabels"`
	Events            *[]EventInput       `json:"events"`
	GeoLocations      *[]GeoLocationInput `json:"geoLocations" validate:"omitempty,dive"`
	Medias            *[]MediaInput       `json:"medias"`
}

func (in *BulletinInput) workflow() *WorkflowInput     { return &in.WorkflowInput }
func (in *BulletinInput) relationSets() RelationsInput { return in.RelationsInput }

func (in *BulletinInput) requireNew() error {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return apierr.Validation("missing_title", "bulletin title is required")
	}
	return nil
}

func (in *BulletinInput) build(e entities.Entity) error {
	b, ok := e.(*entities.Bulletin)
	if !ok {
		return apierr.Internal(errWrongKind(entities.KindBulletin, e))
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return apierr.Validation("missing_title", "bulletin title cannot be blank")
	}
	setString(&b.Title, in.Title)
	setString(&b.TitleAr, in.TitleAr)
	setString(&b.SjacTitle, in.SjacTitle)
	setString(&b.SjacTitleAr, in.SjacTitleAr)
	setString(&b.Description, in.Description)
	setString(&b.SourceLink, in.SourceLink)
	if in.PublishDate != nil {
		b.PublishDate = in.PublishDate.Time()
	}
	if in.DocumentationDate != nil {
		b.DocumentationDate = in.DocumentationDate.Time()
	}
	setTags(&b.Tags, in.Tags)
	if in.Meta != nil {
		meta, err := MetaJSON(in.Meta)
		if err != nil {
			return err
		}
		b.Meta = meta
	}
	return validateEvents(in.Events)
}

func (in *BulletinInput) links() map[string][]uint {
	m := map[string][]uint{}
	putLink(m, "sources", in.Sources)
	putLink(m, "locations", in.Locations)
	putLink(m, "labels", in.Labels)
	putLink(m, "verlabels", in.VerLabels)
	return m
}

func (in *BulletinInput) refs(r *refSet) {
	r.workflow(&in.WorkflowInput)
	addIDs(&r.Sources, idsOf(in.Sources)...)
	addIDs(&r.Locations, idsOf(in.Locations)...)
	addIDs(&r.Labels, idsOf(in.Labels)...)
	addIDs(&r.Labels, idsOf(in.VerLabels)...)
	r.events(in.Events)
}

func (in *BulletinInput) children(dbc dbctx.Context, w childWriter, e entities.Entity, userID uint, create bool) error {
	id := e.GetID()
	if in.Events != nil {
		if err := w.repo.ReplaceEvents(dbc, entities.KindBulletin, id, eventsOf(in.Events)); err != nil {
			return dbErr(err)
		}
	}
	if in.GeoLocations != nil {
		geos := make([]entities.GeoLocation, 0, len(*in.GeoLocations))
		for _, g := range *in.GeoLocations {
			geos = append(geos, entities.GeoLocation{
				Title: strings.TrimSpace(g.Title), TypeID: g.TypeID.Ptr(), Main: g.Main,
				Latitude: g.Latitude, Longitude: g.Longitude, Comment: g.Comment,
			})
		}
		if err := w.repo.ReplaceGeoLocations(dbc, id, geos); err != nil {
			return dbErr(err)
		}
	}
	if in.Medias != nil {
		return in.syncMedia(dbc, w, id, userID)
	}
	return nil
}

// syncMedia keeps the listed media, creates new ones and soft-deletes the
// non-main media the payload dropped. Main media are never dropped here.
func (in *BulletinInput) syncMedia(dbc dbctx.Context, w childWriter, bulletinID, userID uint) error {
	var keep, existing []uint
	for _, m := range *in.Medias {
		if m.ID != 0 {
			addIDs(&existing, m.ID)
		}
	}
	if len(existing) > 0 {
		found, err := w.repo.MediaByIDs(dbc, existing)
		if err != nil {
			return dbErr(err)
		}
		for _, m := range found {
			if m.BulletinID != nil && *m.BulletinID != bulletinID {
				return apierr.Validation("media_in_use", "media %d belongs to another bulletin", m.ID)
			}
			keep = append(keep, m.ID)
		}
		if len(keep) != len(existing) {
			return apierr.Validation("unknown_media", "unknown media ids in payload")
		}
	}
	for _, m := range *in.Medias {
		if m.ID != 0 {
			continue
		}
		if strings.TrimSpace(m.Filename) == "" {
			return apierr.Validation("missing_filename", "media filename is required")
		}
		dup, err := w.repo.EtagExists(dbc, m.Etag)
		if err != nil {
			return dbErr(err)
		}
		if dup {
			return apierr.Conflict("duplicate_media", errDuplicateEtag(m.Etag))
		}
		row := &entities.Media{
			BulletinID: &bulletinID,
			Title:      strings.TrimSpace(m.Title),
			TitleAr:    strings.TrimSpace(m.TitleAr),
			Filename:   m.Filename,
			FileType:   m.FileType,
			Etag:       m.Etag,
			Main:       m.Main,
			UserID:     userPtr(userID),
		}
		if err := w.repo.CreateMedia(dbc, row); err != nil {
			return dbErr(err)
		}
		keep = append(keep, row.ID)
	}
	return dbErr(w.repo.SyncMedia(dbc, bulletinID, keep))
}

// =========================
// Actor
// =========================

type ProfileInput struct {
	ID                uint            `json:"id"`
	Mode              int             `json:"mode"`
	Description       string          `json:"description"`
	SourceLink        string          `json:"source_link"`
	PublishDate       *Date           `json:"publish_date"`
	DocumentationDate *Date           `json:"documentation_date"`
	Sources           search.IDList   `json:"sources"`
	Labels            search.IDList   `json:"labels"`
	VerLabels         search.IDList   `json:"ver_labels"`
	MissingPerson     json.RawMessage `json:"missing_person"`
}

type ActorInput struct {
	WorkflowInput
	RelationsInput

	Type         *string         `json:"type"`
	Name         *string         `json:"name"`
	NameAr       *string         `json:"name_ar"`
	FirstName    *string         `json:"first_name"`
	FirstNameAr  *string         `json:"first_name_ar"`
	MiddleName   *string         `json:"middle_name"`
	MiddleNameAr *string         `json:"middle_name_ar"`
	LastName     *string         `json:"last_name"`
	LastNameAr   *string         `json:"last_name_ar"`
	FatherName   *string         `json:"father_name"`
	FatherNameAr *string         `json:"father_name_ar"`
	MotherName   *string         `json:"mother_name"`
	MotherNameAr *string         `json:"mother_name_ar"`
	Nickname     *string         `json:"nickname"`
	NicknameAr   *string         `json:"nickname_ar"`
	Sex          *string         `json:"sex"`
	Age          *string         `json:"age"`
	Civilian     *string         `json:"civilian"`
	Occupation   *string         `json:"occupation"`
	OccupationAr *string         `json:"occupation_ar"`
	Position     *string         `json:"position"`
	PositionAr   *string         `json:"position_ar"`
	FamilyStatus *string         `json:"family_status"`
	NoChildren   *int            `json:"no_children" validate:"omitempty,gte=0"`
	IDNumber     json.RawMessage `json:"id_number"`
	OriginPlace  *Ref            `json:"origin_place"`
	Tags         *[]string       `json:"tags"`

	Ethnographies *search.IDList  `json:"ethnographies"`
	Nationalities *search.IDList  `json:"nationalities"`
	Dialects      *search.IDList  `json:"dialects"`
	Events        *[]EventInput   `json:"events"`
	Profiles      *[]ProfileInput `json:"actor_profiles"`
}

func (in *ActorInput) workflow() *WorkflowInput     { return &in.WorkflowInput }
func (in *ActorInput) relationSets() RelationsInput { return in.RelationsInput }

func (in *ActorInput) requireNew() error {
	if in.Type != nil && *in.Type != entities.ActorTypePerson && *in.Type != entities.ActorTypeEntity {
		return apierr.Validation("invalid_actor_type", "actor type must be Person or Entity")
	}
	return nil
}

func (in *ActorInput) build(e entities.Entity) error {
	a, ok := e.(*entities.Actor)
	if !ok {
		return apierr.Internal(errWrongKind(entities.KindActor, e))
	}
	if in.Type != nil {
		if *in.Type != entities.ActorTypePerson && *in.Type != entities.ActorTypeEntity {
			return apierr.Validation("invalid_actor_type", "actor type must be Person or Entity")
		}
		a.Type = *in.Type
	}
	if a.Type == "" {
		a.Type = entities.ActorTypePerson
	}
	if in.Name != nil {
		a.Name = trimmedPtr(*in.Name)
	}
	if in.NameAr != nil {
		a.NameAr = trimmedPtr(*in.NameAr)
	}
	for dst, v := range map[*string]*string{
		&a.FirstName: in.FirstName, &a.FirstNameAr: in.FirstNameAr,
		&a.MiddleName: in.MiddleName, &a.MiddleNameAr: in.MiddleNameAr,
		&a.LastName: in.LastName, &a.LastNameAr: in.LastNameAr,
		&a.FatherName: in.FatherName, &a.FatherNameAr: in.FatherNameAr,
		&a.MotherName: in.MotherName, &a.MotherNameAr: in.MotherNameAr,
		&a.Nickname: in.Nickname, &a.NicknameAr: in.NicknameAr,
		&a.Sex: in.Sex, &a.Age: in.Age, &a.Civilian: in.Civilian,
		&a.Occupation: in.Occupation, &a.OccupationAr: in.OccupationAr,
		&a.Position: in.Position, &a.PositionAr: in.PositionAr,
		&a.FamilyStatus: in.FamilyStatus,
	} {
		setString(dst, v)
	}
	if in.NoChildren != nil {
		a.NoChildren = in.NoChildren
	}
	if in.IDNumber != nil {
		ids, err := IDNumbers(in.IDNumber)
		if err != nil {
			return err
		}
		a.IDNumber = ids
	}
	if in.OriginPlace != nil {
		a.OriginPlaceID = in.OriginPlace.Ptr()
		a.OriginPlace = nil
	}
	setTags(&a.Tags, in.Tags)

	a.DeriveNames()
	if !a.HasName() {
		return apierr.Validation("missing_name", "actor needs name or name_ar")
	}
	if in.Profiles != nil {
		if len(*in.Profiles) == 0 {
			return apierr.Validation("missing_profile", "actor needs at least one profile")
		}
		for i, p := range *in.Profiles {
			if p.Mode != 0 && !entities.ProfileMode(p.Mode).Valid() {
				return apierr.Validation("invalid_profile_mode", "profile %d has unknown mode %d", i, p.Mode)
			}
		}
	}
	return validateEvents(in.Events)
}

func trimmedPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (in *ActorInput) links() map[string][]uint {
	m := map[string][]uint{}
	putLink(m, "ethnographies", in.Ethnographies)
	putLink(m, "countries", in.Nationalities)
	putLink(m, "dialects", in.Dialects)
	return m
}

func (in *ActorInput) refs(r *refSet) {
	r.workflow(&in.WorkflowInput)
	addRef(&r.Locations, in.OriginPlace)
	addIDs(&r.Ethnographies, idsOf(in.Ethnographies)...)
	addIDs(&r.Countries, idsOf(in.Nationalities)...)
	addIDs(&r.Dialects, idsOf(in.Dialects)...)
	r.events(in.Events)
	if in.Profiles != nil {
		for _, p := range *in.Profiles {
			addIDs(&r.Sources, p.Sources...)
			addIDs(&r.Labels, p.Labels...)
			addIDs(&r.Labels, p.VerLabels...)
		}
	}
}

func (in *ActorInput) children(dbc dbctx.Context, w childWriter, e entities.Entity, userID uint, create bool) error {
	id := e.GetID()
	if in.Events != nil {
		if err := w.repo.ReplaceEvents(dbc, entities.KindActor, id, eventsOf(in.Events)); err != nil {
			return dbErr(err)
		}
	}
	profiles := in.Profiles
	if profiles == nil {
		if !create {
			return nil
		}
		// every actor carries a main profile
		profiles = &[]ProfileInput{{Mode: int(entities.ProfileModeNormal)}}
	}
	owned, err := w.repo.ProfileIDs(dbc, id)
	if err != nil {
		return dbErr(err)
	}
	var keep []uint
	for _, p := range *profiles {
		if p.ID != 0 && !slices.Contains(owned, p.ID) {
			return apierr.Validation("unknown_profile", "profile %d does not belong to actor %d", p.ID, id)
		}
		row, err := p.profile(id)
		if err != nil {
			return err
		}
		if err := w.repo.SaveProfile(dbc, row); err != nil {
			return dbErr(err)
		}
		keep = append(keep, row.ID)
	}
	return dbErr(w.repo.DeleteProfiles(dbc, id, keep))
}

func (p ProfileInput) profile(actorID uint) (*entities.ActorProfile, error) {
	mode := entities.ProfileMode(p.Mode)
	if mode == 0 {
		mode = entities.ProfileModeNormal
	}
	row := &entities.ActorProfile{
		ID:                p.ID,
		ActorID:           actorID,
		Mode:              mode,
		Description:       p.Description,
		SourceLink:        strings.TrimSpace(p.SourceLink),
		PublishDate:       p.PublishDate.Time(),
		DocumentationDate: p.DocumentationDate.Time(),
	}
	for _, id := range p.Sources {
		row.Sources = append(row.Sources, vocab.Source{ID: id})
	}
	for _, id := range p.Labels {
		row.Labels = append(row.Labels, vocab.Label{ID: id})
	}
	for _, id := range p.VerLabels {
		row.VerLabels = append(row.VerLabels, vocab.Label{ID: id})
	}
	if mode == entities.ProfileModeMissingPerson {
		mp, err := MissingPerson(p.MissingPerson)
		if err != nil {
			return nil, err
		}
		row.MissingPerson = mp
	} else if !isNull(p.MissingPerson) {
		return nil, apierr.Validation("unexpected_missing_person", "missing_person is only allowed on missing-person profiles")
	}
	return row, nil
}

// =========================
// Incident
// =========================

type IncidentInput struct {
	WorkflowInput
	RelationsInput

	Title               *string        `json:"title"`
	TitleAr             *string        `json:"title_ar"`
	Description         *string        `json:"description"`
	Labels              *search.IDList `json:"labels"`
	Locations           *search.IDList `json:"locations"`
	PotentialViolations *search.IDList `json:"potential_violations"`
	ClaimedViolations   *search.IDList `json:"claimed_violations"`
	Events              *[]EventInput  `json:"events"`
}

func (in *IncidentInput) workflow() *WorkflowInput     { return &in.WorkflowInput }
func (in *IncidentInput) relationSets() RelationsInput { return in.RelationsInput }

func (in *IncidentInput) requireNew() error {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return apierr.Validation("missing_title", "incident title is required")
	}
	return nil
}

func (in *IncidentInput) build(e entities.Entity) error {
	i, ok := e.(*entities.Incident)
	if !ok {
		return apierr.Internal(errWrongKind(entities.KindIncident, e))
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return apierr.Validation("missing_title", "incident title cannot be blank")
	}
	setString(&i.Title, in.Title)
	setString(&i.TitleAr, in.TitleAr)
	setString(&i.Description, in.Description)
	return validateEvents(in.Events)
}

func (in *IncidentInput) links() map[string][]uint {
	m := map[string][]uint{}
	putLink(m, "labels", in.Labels)
	putLink(m, "locations", in.Locations)
	putLink(m, "potential_violations", in.PotentialViolations)
	putLink(m, "claimed_violations", in.ClaimedViolations)
	return m
}

func (in *IncidentInput) refs(r *refSet) {
	r.workflow(&in.WorkflowInput)
	addIDs(&r.Labels, idsOf(in.Labels)...)
	addIDs(&r.Locations, idsOf(in.Locations)...)
	addIDs(&r.PotentialViolations, idsOf(in.PotentialViolations)...)
	addIDs(&r.ClaimedViolations, idsOf(in.ClaimedViolations)...)
	r.events(in.Events)
}

func (in *IncidentInput) children(dbc dbctx.Context, w childWriter, e entities.Entity, userID uint, create bool) error {
	if in.Events == nil {
		return nil
	}
	return dbErr(w.repo.ReplaceEvents(dbc, entities.KindIncident, e.GetID(), eventsOf(in.Events)))
}

// decodeEntityInput parses an item payload for kind.
func decodeEntityInput(kind entities.Kind, raw []byte) (entityInput, error) {
	var in entityInput
	switch kind {
	case entities.KindBulletin:
		in = &BulletinInput{}
	case entities.KindActor:
		in = &ActorInput{}
	case entities.KindIncident:
		in = &IncidentInput{}
	default:
		return nil, apierr.Validation("unknown_kind", "unknown entity kind %q", kind)
	}
	if err := decodePayload(raw, in); err != nil {
		return nil, err
	}
	return in, nil
}
