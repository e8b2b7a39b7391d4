package entities

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

// Actor types.
const (
	ActorTypePerson = "Person"
	ActorTypeEntity = "Entity"
)

type Actor struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Type string `gorm:"column:type;not null;default:'Person'" json:"type"`

	Name         *string `gorm:"column:name;check:actor_name_present,name IS NOT NULL OR name_ar IS NOT NULL" json:"name"`
	NameAr       *string `gorm:"column:name_ar" json:"name_ar"`
	FirstName    string  `gorm:"column:first_name" json:"first_name"`
	FirstNameAr  string  `gorm:"column:first_name_ar" json:"first_name_ar"`
	MiddleName   string  `gorm:"column:middle_name" json:"middle_name"`
	MiddleNameAr string  `gorm:"column:middle_name_ar" json:"middle_name_ar"`
	LastName     string  `gorm:"column:last_name" json:"last_name"`
	LastNameAr   string  `gorm:"column:last_name_ar" json:"last_name_ar"`
	FatherName   string  `gorm:"column:father_name" json:"father_name"`
	FatherNameAr string  `gorm:"column:father_name_ar" json:"father_name_ar"`
	MotherName   string  `gorm:"column:mother_name" json:"mother_name"`
	MotherNameAr string  `gorm:"column:mother_name_ar" json:"mother_name_ar"`
	Nickname     string  `gorm:"column:nickname" json:"nickname"`
	NicknameAr   string  `gorm:"column:nickname_ar" json:"nickname_ar"`

	Sex           string          `gorm:"column:sex" json:"sex"`
	Age           string          `gorm:"column:age" json:"age"`
	Civilian      string          `gorm:"column:civilian" json:"civilian"`
	Occupation    string          `gorm:"column:occupation" json:"occupation"`
	OccupationAr  string          `gorm:"column:occupation_ar" json:"occupation_ar"`
	Position      string          `gorm:"column:position" json:"position"`
	PositionAr    string          `gorm:"column:position_ar" json:"position_ar"`
	FamilyStatus  string          `gorm:"column:family_status" json:"family_status"`
	NoChildren    *int            `gorm:"column:no_children" json:"no_children,omitempty"`
	IDNumber      datatypes.JSON  `gorm:"column:id_number;type:jsonb" json:"id_number"`
	OriginPlaceID *uint           `gorm:"column:origin_place_id;index" json:"origin_place_id,omitempty"`
	OriginPlace   *vocab.Location `gorm:"foreignKey:OriginPlaceID" json:"origin_place,omitempty"`
	Tags          pq.StringArray  `gorm:"column:tags;type:text[]" json:"tags"`
	Comments      string          `gorm:"column:comments" json:"comments"`

	Status               string     `gorm:"column:status;index" json:"status"`
	UserID               *uint      `gorm:"column:user_id;index" json:"-"`
	User                 *user.User `gorm:"foreignKey:UserID" json:"-"`
	AssignedToID         *uint      `gorm:"column:assigned_to_id;index" json:"-"`
	AssignedTo           *user.User `gorm:"foreignKey:AssignedToID" json:"-"`
	FirstPeerReviewerID  *uint      `gorm:"column:first_peer_reviewer_id;index" json:"-"`
	FirstPeerReviewer    *user.User `gorm:"foreignKey:FirstPeerReviewerID" json:"-"`
	SecondPeerReviewerID *uint      `gorm:"column:second_peer_reviewer_id;index" json:"-"`
	SecondPeerReviewer   *user.User `gorm:"foreignKey:SecondPeerReviewerID" json:"-"`
	Review               string     `gorm:"column:review" json:"review"`
	ReviewAction         string     `gorm:"column:review_action" json:"review_action"`

	Ethnographies []vocab.Ethnography `gorm:"many2many:actor_ethnographies;joinForeignKey:ActorID;joinReferences:EthnographyID" json:"ethnographies"`
	Nationalities []vocab.Country     `gorm:"many2many:actor_countries;joinForeignKey:ActorID;joinReferences:CountryID" json:"nationalities"`
	Dialects      []vocab.Dialect     `gorm:"many2many:actor_dialects;joinForeignKey:ActorID;joinReferences:DialectID" json:"dialects"`
	Events        []Event             `gorm:"many2many:actor_events;joinForeignKey:ActorID;joinReferences:EventID" json:"events"`
	Roles         []user.Role         `gorm:"many2many:actor_roles;joinForeignKey:ActorID;joinReferences:RoleID" json:"roles"`
	Profiles      []ActorProfile      `gorm:"foreignKey:ActorID" json:"actor_profiles"`

	Search string `gorm:"column:search;->" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Actor) TableName() string { return "actor" }

func (a *Actor) EntityKind() Kind { return KindActor }
func (a *Actor) GetID() uint      { return a.ID }

func (a *Actor) AccessControl() Control {
	return Control{
		ID:                   a.ID,
		RoleIDs:              roleIDs(a.Roles),
		OwnerID:              a.UserID,
		AssignedToID:         a.AssignedToID,
		FirstPeerReviewerID:  a.FirstPeerReviewerID,
		SecondPeerReviewerID: a.SecondPeerReviewerID,
	}
}

func (a *Actor) Subject() map[string]any {
	return map[string]any{"class": string(KindActor), "id": a.ID, "name": a.DisplayName()}
}

// DisplayName prefers the latin name and falls back to the arabic one.
func (a *Actor) DisplayName() string {
	if a.Name != nil && *a.Name != "" {
		return *a.Name
	}
	if a.NameAr != nil {
		return *a.NameAr
	}
	return ""
}

// DeriveNames fills name/name_ar from the personal-name parts of a Person
// when they were not given explicitly.
func (a *Actor) DeriveNames() {
	if a.Type == ActorTypeEntity {
		return
	}
	if a.Name == nil || strings.TrimSpace(*a.Name) == "" {
		if n := joinNonEmpty(a.FirstName, a.MiddleName, a.LastName); n != "" {
			a.Name = &n
		}
	}
	if a.NameAr == nil || strings.TrimSpace(*a.NameAr) == "" {
		if n := joinNonEmpty(a.FirstNameAr, a.MiddleNameAr, a.LastNameAr); n != "" {
			a.NameAr = &n
		}
	}
}

// HasName reports whether the name invariant holds.
func (a *Actor) HasName() bool {
	return (a.Name != nil && strings.TrimSpace(*a.Name) != "") ||
		(a.NameAr != nil && strings.TrimSpace(*a.NameAr) != "")
}

// MainProfile is the first profile by creation order.
func (a *Actor) MainProfile() *ActorProfile {
	var main *ActorProfile
	for i := range a.Profiles {
		p := &a.Profiles[i]
		if main == nil || p.ID < main.ID {
			main = p
		}
	}
	return main
}

// Sources, Labels and VerLabels union the profile collections.
func (a *Actor) Sources() []vocab.Source {
	seen := map[uint]bool{}
	var out []vocab.Source
	for _, p := range a.Profiles {
		for _, s := range p.Sources {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func (a *Actor) Labels() []vocab.Label {
	return unionLabels(a.Profiles, func(p ActorProfile) []vocab.Label { return p.Labels })
}

func (a *Actor) VerLabels() []vocab.Label {
	return unionLabels(a.Profiles, func(p ActorProfile) []vocab.Label { return p.VerLabels })
}

func unionLabels(profiles []ActorProfile, pick func(ActorProfile) []vocab.Label) []vocab.Label {
	seen := map[uint]bool{}
	var out []vocab.Label
	for _, p := range profiles {
		for _, l := range pick(p) {
			if !seen[l.ID] {
				seen[l.ID] = true
				out = append(out, l)
			}
		}
	}
	return out
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// IDNumber is one entry of Actor.id_number.
type IDNumber struct {
	Type   string `json:"type" validate:"required"`
	Number string `json:"number" validate:"required"`
}
