package vocab

import (
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/domain/vocab"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// Registry bundles the stores of every reference table.
type Registry struct {
	Labels        TreeRepo[vocab.Label]
	Sources       TreeRepo[vocab.Source]
	Locations     LocationRepo
	AdminLevels   Repo[vocab.LocationAdminLevel]
	LocationTypes Repo[vocab.LocationType]

	EventTypes          Repo[vocab.EventType]
	Countries           Repo[vocab.Country]
	Ethnographies       Repo[vocab.Ethnography]
	Dialects            Repo[vocab.Dialect]
	PotentialViolations Repo[vocab.PotentialViolation]
	ClaimedViolations   Repo[vocab.ClaimedViolation]

	AtoaInfos Repo[vocab.AtoaInfo]
	AtobInfos Repo[vocab.AtobInfo]
	BtobInfos Repo[vocab.BtobInfo]
	ItoaInfos Repo[vocab.ItoaInfo]
	ItobInfos Repo[vocab.ItobInfo]
	ItoiInfos Repo[vocab.ItoiInfo]
}

func NewRegistry(db *gorm.DB, log *logger.Logger) *Registry {
	return &Registry{
		Labels:        NewTreeRepo[vocab.Label](db, log, vocab.Label{}.TableName(), "parent_label_id"),
		Sources:       NewTreeRepo[vocab.Source](db, log, vocab.Source{}.TableName(), "parent_id"),
		Locations:     NewLocationRepo(db, log),
		AdminLevels:   NewRepo[vocab.LocationAdminLevel](db, log, vocab.LocationAdminLevel{}.TableName()),
		LocationTypes: NewRepo[vocab.LocationType](db, log, vocab.LocationType{}.TableName()),

		EventTypes:          NewRepo[vocab.EventType](db, log, vocab.EventType{}.TableName()),
		Countries:           NewRepo[vocab.Country](db, log, vocab.Country{}.TableName()),
		Ethnographies:       NewRepo[vocab.Ethnography](db, log, vocab.Ethnography{}.TableName()),
		Dialects:            NewRepo[vocab.Dialect](db, log, vocab.Dialect{}.TableName()),
		PotentialViolations: NewRepo[vocab.PotentialViolation](db, log, vocab.PotentialViolation{}.TableName()),
		ClaimedViolations:   NewRepo[vocab.ClaimedViolation](db, log, vocab.ClaimedViolation{}.TableName()),

		AtoaInfos: NewRepo[vocab.AtoaInfo](db, log, vocab.AtoaInfo{}.TableName()),
		AtobInfos: NewRepo[vocab.AtobInfo](db, log, vocab.AtobInfo{}.TableName()),
		BtobInfos: NewRepo[vocab.BtobInfo](db, log, vocab.BtobInfo{}.TableName()),
		ItoaInfos: NewRepo[vocab.ItoaInfo](db, log, vocab.ItoaInfo{}.TableName()),
		ItobInfos: NewRepo[vocab.ItobInfo](db, log, vocab.ItobInfo{}.TableName()),
		ItoiInfos: NewRepo[vocab.ItoiInfo](db, log, vocab.ItoiInfo{}.TableName()),
	}
}
