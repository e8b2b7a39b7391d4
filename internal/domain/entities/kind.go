package entities

import "strings"

// Kind names an access-controlled, versioned record type.
type Kind string

const (
	KindBulletin Kind = "bulletin"
	KindActor    Kind = "actor"
	KindIncident Kind = "incident"
	KindLocation Kind = "location"
)

// Kinds are the three documentation entities.
var Kinds = []Kind{KindBulletin, KindActor, KindIncident}

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBulletin, KindActor, KindIncident:
		return k, true
	}
	return "", false
}

// ModelName is the class name recorded in activity rows.
func (k Kind) ModelName() string {
	switch k {
	case KindBulletin:
		return "Bulletin"
	case KindActor:
		return "Actor"
	case KindIncident:
		return "Incident"
	case KindLocation:
		return "Location"
	}
	return string(k)
}

// Workflow status values set by the core.
const (
	StatusAssigned           = "Assigned"
	StatusPeerReviewed       = "Peer Reviewed"
	StatusSecondPeerReviewed = "Second Peer Reviewed"
	StatusMachineCreated     = "Machine Created"
	StatusHumanCreated       = "Human Created"
	StatusUpdated            = "Updated"
)

// Control is the slice of an entity the access evaluator looks at.
type Control struct {
	ID                   uint
	RoleIDs              []uint
	OwnerID              *uint
	AssignedToID         *uint
	FirstPeerReviewerID  *uint
	SecondPeerReviewerID *uint
}

// Entity is implemented by Bulletin, Actor and Incident.
type Entity interface {
	EntityKind() Kind
	GetID() uint
	AccessControl() Control
	// Subject is the compact dict stored on activity rows.
	Subject() map[string]any
}

// Table is the entity's table name.
func (k Kind) Table() string { return string(k) }

// JoinTable returns the many-to-many table linking k to a vocabulary, and the
// column holding k's id. assoc is one of roles, labels, verlabels, sources,
// locations or events.
func (k Kind) JoinTable(assoc string) (table, fk string) {
	fk = string(k) + "_id"
	switch assoc {
	case "roles", "labels", "verlabels", "sources", "locations", "events":
		return string(k) + "_" + assoc, fk
	case "ethnographies", "dialects":
		return string(k) + "_" + assoc, fk
	case "countries", "nationalities":
		return string(k) + "_countries", fk
	case "potential_violations", "claimed_violations":
		return string(k) + "_" + assoc, fk
	}
	return "", ""
}

// TargetColumn is the join-table column holding the vocabulary side of assoc.
func TargetColumn(assoc string) string {
	switch assoc {
	case "labels", "verlabels":
		return "label_id"
	case "sources":
		return "source_id"
	case "locations":
		return "location_id"
	case "events":
		return "event_id"
	case "roles":
		return "role_id"
	case "ethnographies":
		return "ethnography_id"
	case "dialects":
		return "dialect_id"
	case "countries", "nationalities":
		return "country_id"
	case "potential_violations":
		return "potential_violation_id"
	case "claimed_violations":
		return "claimed_violation_id"
	}
	return ""
}

// Assocs lists the many-to-many associations k carries directly.
func (k Kind) Assocs() []string {
	switch k {
	case KindBulletin:
		return []string{"roles", "labels", "verlabels", "sources", "locations", "events"}
	case KindActor:
		return []string{"roles", "ethnographies", "countries", "dialects", "events"}
	case KindIncident:
		return []string{"roles", "labels", "locations", "events", "potential_violations", "claimed_violations"}
	}
	return nil
}

// ProfileAssocs are the links carried by each ActorProfile.
var ProfileAssocs = []string{"sources", "labels", "verlabels"}
