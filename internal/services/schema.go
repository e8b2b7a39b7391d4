package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
)

// Closed JSON schemas. Semi-structured blocks are stored as JSON but callers
// cannot introduce keys the model does not know.

func decodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// closedJSON validates raw against the shape of T and returns the
// re-encoded canonical form, or nil for null.
func closedJSON[T any](field string, raw []byte) (datatypes.JSON, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v T
	if err := decodeStrict(raw, &v); err != nil {
		return nil, apierr.Validation("invalid_"+field, "%s: %s", field, err.Error())
	}
	if err := validateAny(v); err != nil {
		return nil, apierr.Validation("invalid_"+field, "%s: %s", field, err.Error())
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return datatypes.JSON(b), nil
}

// validateAny runs struct validation on v or on each element of a slice.
func validateAny(v any) error {
	switch t := any(v).(type) {
	case []entities.Reporter:
		for i := range t {
			if err := validate.Struct(t[i]); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	case []entities.IDNumber:
		for i := range t {
			if err := validate.Struct(t[i]); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	case entities.Opinion, entities.SkinMarkings:
		return validate.Struct(t)
	}
	return nil
}

// IDNumbers validates the actor id_number list.
func IDNumbers(raw []byte) (datatypes.JSON, error) {
	if isNull(raw) {
		return datatypes.JSON(`[]`), nil
	}
	return closedJSON[[]entities.IDNumber]("id_number", raw)
}

// missingPersonInput mirrors entities.MissingPersonDetails, with the JSON
// blocks kept raw so each can be checked against its own schema.
type missingPersonInput struct {
	entities.MissingPersonDetails
	SkinMarkings    json.RawMessage `json:"skin_markings"`
	SeenInDetention json.RawMessage `json:"seen_in_detention"`
	Injured         json.RawMessage `json:"injured"`
	KnownDead       json.RawMessage `json:"known_dead"`
	Reporters       json.RawMessage `json:"reporters"`
}

// MissingPerson parses the missing_person block of a profile. Unknown keys are
// rejected at every level.
func MissingPerson(raw []byte) (entities.MissingPersonDetails, error) {
	var in missingPersonInput
	if isNull(raw) {
		return in.MissingPersonDetails, nil
	}
	if err := decodeStrict(raw, &in); err != nil {
		return in.MissingPersonDetails, apierr.Validation("invalid_missing_person", "missing_person: %s", err.Error())
	}
	if in.MonthsPregnant != nil && (*in.MonthsPregnant < 0 || *in.MonthsPregnant > 10) {
		return in.MissingPersonDetails, apierr.Validation("invalid_missing_person", "missing_person: months_pregnant out of range")
	}
	out := in.MissingPersonDetails
	var err error
	if out.SkinMarkings, err = closedJSON[entities.SkinMarkings]("skin_markings", in.SkinMarkings); err != nil {
		return out, err
	}
	if out.SeenInDetention, err = closedJSON[entities.Opinion]("seen_in_detention", in.SeenInDetention); err != nil {
		return out, err
	}
	if out.Injured, err = closedJSON[entities.Opinion]("injured", in.Injured); err != nil {
		return out, err
	}
	if out.KnownDead, err = closedJSON[entities.Opinion]("known_dead", in.KnownDead); err != nil {
		return out, err
	}
	if out.Reporters, err = closedJSON[[]entities.Reporter]("reporters", in.Reporters); err != nil {
		return out, err
	}
	return out, nil
}

// MetaJSON accepts any JSON object for bulletin meta.
func MetaJSON(raw []byte) (datatypes.JSON, error) {
	if isNull(raw) {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, apierr.Validation("invalid_meta", "meta must be a JSON object")
	}
	return datatypes.JSON(raw), nil
}
