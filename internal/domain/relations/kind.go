package relations

import (
	"errors"
	"slices"
	"time"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
)

// ErrSelfRelation is returned when an entity is related to itself.
var ErrSelfRelation = errors.New("an entity cannot be related to itself")

// Kind describes one edge table.
type Kind struct {
	Name      string
	Table     string
	Left      entities.Kind
	Right     entities.Kind
	LeftCol   string
	RightCol  string
	Symmetric bool
	// Vector is true when related_as is an array of catalog ids.
	Vector    bool
	InfoTable string
}

var (
	KindAtoa = Kind{Name: "atoa", Table: "atoa", Left: entities.KindActor, Right: entities.KindActor,
		LeftCol: "actor_id", RightCol: "related_actor_id", Symmetric: true, InfoTable: "atoa_info"}
	KindBtob = Kind{Name: "btob", Table: "btob", Left: entities.KindBulletin, Right: entities.KindBulletin,
		LeftCol: "bulletin_id", RightCol: "related_bulletin_id", Symmetric: true, Vector: true, InfoTable: "btob_info"}
	KindItoi = Kind{Name: "itoi", Table: "itoi", Left: entities.KindIncident, Right: entities.KindIncident,
		LeftCol: "incident_id", RightCol: "related_incident_id", Symmetric: true, InfoTable: "itoi_info"}
	KindAtob = Kind{Name: "atob", Table: "atob", Left: entities.KindActor, Right: entities.KindBulletin,
		LeftCol: "actor_id", RightCol: "bulletin_id", Vector: true, InfoTable: "atob_info"}
	KindItob = Kind{Name: "itob", Table: "itob", Left: entities.KindIncident, Right: entities.KindBulletin,
		LeftCol: "incident_id", RightCol: "bulletin_id", Vector: true, InfoTable: "itob_info"}
	KindItoa = Kind{Name: "itoa", Table: "itoa", Left: entities.KindIncident, Right: entities.KindActor,
		LeftCol: "incident_id", RightCol: "actor_id", Vector: true, InfoTable: "itoa_info"}
)

// AllKinds lists every edge table.
var AllKinds = []Kind{KindAtoa, KindBtob, KindItoi, KindAtob, KindItob, KindItoa}

// Between returns the edge kind linking a and b, in either order.
func Between(a, b entities.Kind) (Kind, bool) {
	for _, k := range AllKinds {
		if (k.Left == a && k.Right == b) || (k.Left == b && k.Right == a) {
			return k, true
		}
	}
	return Kind{}, false
}

// Touching lists the edge kinds that have ek on either side.
func Touching(ek entities.Kind) []Kind {
	var out []Kind
	for _, k := range AllKinds {
		if k.Left == ek || k.Right == ek {
			out = append(out, k)
		}
	}
	return out
}

// Key returns the stored (left, right) pair for an edge seen from the focal
// entity self toward other.
func (k Kind) Key(selfKind entities.Kind, selfID, otherID uint) (uint, uint, error) {
	if k.Symmetric {
		if selfID == otherID {
			return 0, 0, ErrSelfRelation
		}
		if selfID < otherID {
			return selfID, otherID, nil
		}
		return otherID, selfID, nil
	}
	if selfKind == k.Left {
		return selfID, otherID, nil
	}
	return otherID, selfID, nil
}

// OtherSide is the entity kind of the counterpart when viewed from self.
func (k Kind) OtherSide(selfKind entities.Kind) entities.Kind {
	if selfKind == k.Left {
		return k.Right
	}
	return k.Left
}

// Fields are the mutable attributes of an edge.
type Fields struct {
	RelatedAs   []int64 `json:"related_as"`
	Probability *int    `json:"probability"`
	Comment     string  `json:"comment"`
}

// Edge is one stored row of any edge table.
type Edge struct {
	Kind    Kind `json:"-"`
	LeftID  uint `json:"left_id"`
	RightID uint `json:"right_id"`
	Fields
	UserID    *uint     `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OtherID returns the counterpart of the entity (selfKind, selfID).
func (e *Edge) OtherID(selfKind entities.Kind, selfID uint) uint {
	if e.Kind.Symmetric {
		if e.LeftID == selfID {
			return e.RightID
		}
		return e.LeftID
	}
	if selfKind == e.Kind.Left {
		return e.RightID
	}
	return e.LeftID
}

// Normalize trims related_as to the shape the kind stores.
func (f Fields) Normalize(k Kind) Fields {
	out := f
	ras := make([]int64, 0, len(f.RelatedAs))
	for _, v := range f.RelatedAs {
		if v > 0 && !slices.Contains(ras, v) {
			ras = append(ras, v)
		}
	}
	if !k.Vector && len(ras) > 1 {
		ras = ras[:1]
	}
	out.RelatedAs = ras
	return out
}

// Equal reports whether applying g over f would change nothing.
func (f Fields) Equal(g Fields) bool {
	if f.Comment != g.Comment {
		return false
	}
	if (f.Probability == nil) != (g.Probability == nil) {
		return false
	}
	if f.Probability != nil && *f.Probability != *g.Probability {
		return false
	}
	a := slices.Clone(f.RelatedAs)
	b := slices.Clone(g.RelatedAs)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
