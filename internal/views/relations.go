package views

import (
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

// Counterpart is the far side of an edge as loaded for one caller.
type Counterpart struct {
	Entity  entities.Entity
	Allowed bool
}

// RelationInfos indexes a kind's catalog rows by id.
type RelationInfos map[int64]vocab.RelationInfo

// RelationBlock renders one edge seen from (self, selfID). The edge metadata
// is always visible. A counterpart the caller cannot read collapses to its id.
// Symmetric edges read from the right endpoint carry reverse=true and, when
// the catalog row has one, the reverse title.
func RelationBlock(e *relations.Edge, self entities.Kind, selfID uint, other Counterpart, infos RelationInfos, opts Options) M {
	otherKind := e.Kind.OtherSide(self)
	otherID := e.OtherID(self, selfID)
	reverse := e.Kind.Symmetric && selfID == e.RightID && e.LeftID != e.RightID
	block := M{
		"related_as":  relatedAs(e),
		"probability": e.Probability,
		"comment":     e.Comment,
		"user_id":     e.UserID,
	}
	if e.Kind.Symmetric {
		block["reverse"] = reverse
	}
	if infos != nil {
		block["relation"] = relationTitles(e, infos, reverse)
	}
	if other.Entity == nil || !other.Allowed {
		block[string(otherKind)] = Restricted(otherID)
		block["restricted"] = true
		return block
	}
	block[string(otherKind)] = Project(other.Entity, ModeMinimal, opts)
	return block
}

// relatedAs keeps the stored shape: a scalar for scalar kinds, a list otherwise.
func relatedAs(e *relations.Edge) any {
	if e.Kind.Vector {
		if e.RelatedAs == nil {
			return []int64{}
		}
		return e.RelatedAs
	}
	if len(e.RelatedAs) == 0 {
		return nil
	}
	return e.RelatedAs[0]
}

func relationTitles(e *relations.Edge, infos RelationInfos, reverse bool) any {
	titles := make([]M, 0, len(e.RelatedAs))
	for _, id := range e.RelatedAs {
		info, ok := infos[id]
		if !ok {
			continue
		}
		t := M{"id": id, "title": info.Title, "title_tr": info.TitleTr}
		if reverse && info.ReverseTitle != "" {
			t["title"] = info.ReverseTitle
			t["title_tr"] = info.ReverseTitleTr
		}
		titles = append(titles, t)
	}
	if e.Kind.Vector {
		return titles
	}
	if len(titles) == 0 {
		return nil
	}
	return titles[0]
}

// RelationKey is the response key for the edges of k seen from self,
// e.g. actor_relations or bulletin_relations.
func RelationKey(k relations.Kind, self entities.Kind) string {
	return string(k.OtherSide(self)) + "_relations"
}

// WithRelations attaches per-kind relation lists to a ModeEntity rendering.
func WithRelations(m M, blocks map[string][]M) M {
	for key, list := range blocks {
		if list == nil {
			list = []M{}
		}
		m[key] = list
	}
	return m
}
