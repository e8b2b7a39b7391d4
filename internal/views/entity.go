package views

import (
	"encoding/json"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

// Project renders e at mode. ModeFull renders like ModeEntity; relation lists
// are attached with WithRelations.
func Project(e entities.Entity, mode Mode, opts Options) M {
	switch v := e.(type) {
	case *entities.Bulletin:
		return Bulletin(v, mode, opts)
	case *entities.Actor:
		return Actor(v, mode, opts)
	case *entities.Incident:
		return Incident(v, mode, opts)
	}
	return Restricted(e.GetID())
}

// Snapshot is the canonical JSON stored on a revision.
func Snapshot(e entities.Entity) ([]byte, error) {
	return json.Marshal(Project(e, ModeEntity, SnapshotOptions))
}

func workflow(m M, c entities.Control, assigned, first, second any, status string, rs any) {
	m["id"] = c.ID
	m["status"] = status
	m["assigned_to"] = assigned
	m["first_peer_reviewer"] = first
	m["second_peer_reviewer"] = second
	m["roles"] = rs
}

func Bulletin(b *entities.Bulletin, mode Mode, opts Options) M {
	m := M{"title": b.Title, "title_ar": b.TitleAr}
	workflow(m, b.AccessControl(),
		userBlock(b.AssignedTo, b.AssignedToID, opts),
		userBlock(b.FirstPeerReviewer, b.FirstPeerReviewerID, opts),
		userBlock(b.SecondPeerReviewer, b.SecondPeerReviewerID, opts),
		b.Status, roles(b.Roles))
	if mode == ModeMinimal {
		return m
	}
	m["description"] = b.Description
	m["comments"] = b.Comments
	m["sources"] = sources(b.Sources)
	m["locations"] = locations(b.Locations)
	m["publish_date"] = date(b.PublishDate)
	m["documentation_date"] = date(b.DocumentationDate)
	m["updated_at"] = modified(b.UpdatedAt, opts)
	if mode == ModeCompact {
		return m
	}
	m["sjac_title"] = b.SjacTitle
	m["sjac_title_ar"] = b.SjacTitleAr
	m["source_link"] = b.SourceLink
	m["tags"] = tags(b.Tags)
	m["meta"] = rawJSON(b.Meta)
	m["labels"] = labels(b.Labels)
	m["verLabels"] = labels(b.VerLabels)
	m["events"] = events(b.Events)
	m["geoLocations"] = geoLocations(b.GeoLocations)
	m["medias"] = medias(b.Medias)
	m["review"] = b.Review
	m["review_action"] = b.ReviewAction
	m["user"] = userBlock(b.User, b.UserID, opts)
	m["created_at"] = stamp(b.CreatedAt)
	return m
}

func Actor(a *entities.Actor, mode Mode, opts Options) M {
	m := M{"name": a.Name, "name_ar": a.NameAr, "type": a.Type}
	workflow(m, a.AccessControl(),
		userBlock(a.AssignedTo, a.AssignedToID, opts),
		userBlock(a.FirstPeerReviewer, a.FirstPeerReviewerID, opts),
		userBlock(a.SecondPeerReviewer, a.SecondPeerReviewerID, opts),
		a.Status, roles(a.Roles))
	if mode == ModeMinimal {
		return m
	}
	m["comments"] = a.Comments
	m["sources"] = sources(a.Sources())
	m["origin_place"] = Location(a.OriginPlace)
	m["sex"] = a.Sex
	m["age"] = a.Age
	m["civilian"] = a.Civilian
	if main := a.MainProfile(); main != nil {
		m["description"] = main.Description
		m["publish_date"] = date(main.PublishDate)
		m["documentation_date"] = date(main.DocumentationDate)
	}
	m["updated_at"] = modified(a.UpdatedAt, opts)
	if mode == ModeCompact {
		return m
	}
	for k, v := range map[string]string{
		"first_name": a.FirstName, "first_name_ar": a.FirstNameAr,
		"middle_name": a.MiddleName, "middle_name_ar": a.MiddleNameAr,
		"last_name": a.LastName, "last_name_ar": a.LastNameAr,
		"father_name": a.FatherName, "father_name_ar": a.FatherNameAr,
		"mother_name": a.MotherName, "mother_name_ar": a.MotherNameAr,
		"nickname": a.Nickname, "nickname_ar": a.NicknameAr,
		"occupation": a.Occupation, "occupation_ar": a.OccupationAr,
		"position": a.Position, "position_ar": a.PositionAr,
		"family_status": a.FamilyStatus,
	} {
		m[k] = v
	}
	m["no_children"] = a.NoChildren
	m["id_number"] = rawJSON(a.IDNumber)
	m["tags"] = tags(a.Tags)
	m["ethnographies"] = ethnographies(a.Ethnographies)
	m["nationalities"] = countries(a.Nationalities)
	m["dialects"] = dialects(a.Dialects)
	m["labels"] = labels(a.Labels())
	m["verLabels"] = labels(a.VerLabels())
	m["events"] = events(a.Events)
	m["actor_profiles"] = profiles(a)
	m["review"] = a.Review
	m["review_action"] = a.ReviewAction
	m["user"] = userBlock(a.User, a.UserID, opts)
	m["created_at"] = stamp(a.CreatedAt)
	return m
}

func Incident(i *entities.Incident, mode Mode, opts Options) M {
	m := M{"title": i.Title, "title_ar": i.TitleAr}
	workflow(m, i.AccessControl(),
		userBlock(i.AssignedTo, i.AssignedToID, opts),
		userBlock(i.FirstPeerReviewer, i.FirstPeerReviewerID, opts),
		userBlock(i.SecondPeerReviewer, i.SecondPeerReviewerID, opts),
		i.Status, roles(i.Roles))
	if mode == ModeMinimal {
		return m
	}
	m["description"] = i.Description
	m["comments"] = i.Comments
	m["labels"] = labels(i.Labels)
	m["locations"] = locations(i.Locations)
	m["updated_at"] = modified(i.UpdatedAt, opts)
	if mode == ModeCompact {
		return m
	}
	pv := make([]M, 0, len(i.PotentialViolations))
	for _, v := range i.PotentialViolations {
		pv = append(pv, ref(v.ID, v.Title, v.TitleAr))
	}
	cv := make([]M, 0, len(i.ClaimedViolations))
	for _, v := range i.ClaimedViolations {
		cv = append(cv, ref(v.ID, v.Title, v.TitleAr))
	}
	m["potential_violations"] = pv
	m["claimed_violations"] = cv
	m["events"] = events(i.Events)
	m["review"] = i.Review
	m["review_action"] = i.ReviewAction
	m["user"] = userBlock(i.User, i.UserID, opts)
	m["created_at"] = stamp(i.CreatedAt)
	return m
}

func profiles(a *entities.Actor) []M {
	out := make([]M, 0, len(a.Profiles))
	for _, p := range a.Profiles {
		pm := M{
			"id":                 p.ID,
			"mode":               p.Mode,
			"description":        p.Description,
			"source_link":        p.SourceLink,
			"publish_date":       date(p.PublishDate),
			"documentation_date": date(p.DocumentationDate),
			"sources":            sources(p.Sources),
			"labels":             labels(p.Labels),
			"ver_labels":         labels(p.VerLabels),
		}
		if p.Mode == entities.ProfileModeMissingPerson {
			pm["missing_person"] = p.MissingPerson
		}
		out = append(out, pm)
	}
	return out
}

func geoLocations(gs []entities.GeoLocation) []M {
	out := make([]M, 0, len(gs))
	for _, g := range gs {
		out = append(out, M{
			"id": g.ID, "title": g.Title, "type_id": g.TypeID, "main": g.Main,
			"lat": g.Latitude, "lng": g.Longitude, "comment": g.Comment,
		})
	}
	return out
}

// medias hides soft-deleted rows.
func medias(ms []entities.Media) []M {
	out := make([]M, 0, len(ms))
	for _, md := range ms {
		if md.Deleted {
			continue
		}
		out = append(out, M{
			"id": md.ID, "title": md.Title, "title_ar": md.TitleAr,
			"filename": md.Filename, "filetype": md.FileType, "etag": md.Etag, "main": md.Main,
		})
	}
	return out
}

func ethnographies(vs []vocab.Ethnography) []M {
	out := make([]M, 0, len(vs))
	for _, v := range vs {
		out = append(out, ref(v.ID, v.Title, v.TitleAr))
	}
	return out
}

func countries(vs []vocab.Country) []M {
	out := make([]M, 0, len(vs))
	for _, v := range vs {
		out = append(out, ref(v.ID, v.Title, v.TitleAr))
	}
	return out
}

func dialects(vs []vocab.Dialect) []M {
	out := make([]M, 0, len(vs))
	for _, v := range vs {
		out = append(out, ref(v.ID, v.Title, v.TitleAr))
	}
	return out
}

func tags(ts []string) []string {
	if ts == nil {
		return []string{}
	}
	return ts
}

func rawJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
