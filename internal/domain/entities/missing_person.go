package entities

import (
	"time"

	"gorm.io/datatypes"
)

// MissingPersonDetails is stored sparsely in nullable mp_ columns. Only
// profiles in ProfileModeMissingPerson carry it. The JSON-typed fields hold
// the closed sub-schemas below.
type MissingPersonDetails struct {
	// last seen
	LastAddress             *string    `gorm:"column:last_address" json:"last_address,omitempty"`
	MaritalStatus           *string    `gorm:"column:marriage_history" json:"marriage_history,omitempty"`
	BirthDate               *time.Time `gorm:"column:birth_date" json:"birth_date,omitempty"`
	PregnantAtDisappearance *string    `gorm:"column:pregnant_at_disappearance" json:"pregnant_at_disappearance,omitempty"`
	MonthsPregnant          *int       `gorm:"column:months_pregnant" json:"months_pregnant,omitempty"`
	MissingRelatives        *bool      `gorm:"column:missing_relatives" json:"missing_relatives,omitempty"`
	SawDate                 *time.Time `gorm:"column:saw_date" json:"saw_date,omitempty"`
	SawName                 *string    `gorm:"column:saw_name" json:"saw_name,omitempty"`
	SawAddress              *string    `gorm:"column:saw_address" json:"saw_address,omitempty"`
	SawEmail                *string    `gorm:"column:saw_email" json:"saw_email,omitempty"`
	SawPhone                *string    `gorm:"column:saw_phone" json:"saw_phone,omitempty"`
	DetainedBefore          *string    `gorm:"column:detained_before" json:"detained_before,omitempty"`

	// physical description
	Height          *int           `gorm:"column:height" json:"height,omitempty"`
	Weight          *int           `gorm:"column:weight" json:"weight,omitempty"`
	PhysiqueBuild   *string        `gorm:"column:physique" json:"physique,omitempty"`
	HairLoss        *string        `gorm:"column:hair_loss" json:"hair_loss,omitempty"`
	HairType        *string        `gorm:"column:hair_type" json:"hair_type,omitempty"`
	HairLength      *string        `gorm:"column:hair_length" json:"hair_length,omitempty"`
	HairColor       *string        `gorm:"column:hair_color" json:"hair_color,omitempty"`
	FacialHair      *string        `gorm:"column:facial_hair" json:"facial_hair,omitempty"`
	PosturalDefects *string        `gorm:"column:posture" json:"posture,omitempty"`
	EyeColor        *string        `gorm:"column:eye_color" json:"eye_color,omitempty"`
	Handedness      *string        `gorm:"column:handedness" json:"handedness,omitempty"`
	GlassesLenses   *string        `gorm:"column:glasses" json:"glasses,omitempty"`
	SkinMarkings    datatypes.JSON `gorm:"column:skin_markings;type:jsonb" json:"skin_markings,omitempty"`

	// dental record
	DentalRecord     *bool   `gorm:"column:dental_record" json:"dental_record,omitempty"`
	DentistInfo      *string `gorm:"column:dentist_info" json:"dentist_info,omitempty"`
	TeethFeatures    *string `gorm:"column:teeth_features" json:"teeth_features,omitempty"`
	DentalProblems   *string `gorm:"column:dental_problems" json:"dental_problems,omitempty"`
	DentalTreatments *string `gorm:"column:dental_treatments" json:"dental_treatments,omitempty"`

	// medical and detention
	Injuries        *string        `gorm:"column:injuries" json:"injuries,omitempty"`
	Implants        *string        `gorm:"column:implants" json:"implants,omitempty"`
	MalForms        *string        `gorm:"column:malforms" json:"malforms,omitempty"`
	Pain            *string        `gorm:"column:pain" json:"pain,omitempty"`
	OtherConditions *string        `gorm:"column:other_conditions" json:"other_conditions,omitempty"`
	Accidents       *string        `gorm:"column:accidents" json:"accidents,omitempty"`
	PresDrugs       *string        `gorm:"column:pres_drugs" json:"pres_drugs,omitempty"`
	Smoker          *string        `gorm:"column:smoker" json:"smoker,omitempty"`
	SeenInDetention datatypes.JSON `gorm:"column:seen_in_detention;type:jsonb" json:"seen_in_detention,omitempty"`
	Injured         datatypes.JSON `gorm:"column:injured;type:jsonb" json:"injured,omitempty"`
	KnownDead       datatypes.JSON `gorm:"column:known_dead;type:jsonb" json:"known_dead,omitempty"`
	DeathDetails    *string        `gorm:"column:death_details" json:"death_details,omitempty"`
	PersonalItems   *string        `gorm:"column:personal_items" json:"personal_items,omitempty"`

	// reporters and samples
	Reporters      datatypes.JSON `gorm:"column:reporters;type:jsonb" json:"reporters,omitempty"`
	IdentityNumber *string        `gorm:"column:identity_number" json:"identity_number,omitempty"`
	DNASamples     *bool          `gorm:"column:dna_samples" json:"dna_samples,omitempty"`
	GeneticTesting *string        `gorm:"column:genetic_testing" json:"genetic_testing,omitempty"`
	GtLocation     *string        `gorm:"column:gt_location" json:"gt_location,omitempty"`
}

// Opinion is the {opinion, details} pair used by seen_in_detention,
// injured and known_dead.
type Opinion struct {
	Opinion string `json:"opinion" validate:"omitempty,oneof=Yes No Unknown"`
	Details string `json:"details"`
}

// SkinMarkings describes distinguishing marks.
type SkinMarkings struct {
	Marks   []string `json:"opts" validate:"dive,oneof=Scar Birthmark Tattoo Mole Piercing Other"`
	Details string   `json:"details"`
}

// Reporter is one person who reported the disappearance.
type Reporter struct {
	Name         string `json:"name" validate:"required"`
	Contact      string `json:"contact"`
	Relationship string `json:"relationship"`
	Address      string `json:"address"`
	Notes        string `json:"notes"`
}
