package services

import (
	"slices"

	"github.com/yungbote/casefile-backend/internal/data/graph"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
)

// ChangeSet gathers the side effects of one write transaction: counterparts
// whose timeline needs a revision, edge writes to mirror and notifications to
// publish once the transaction has committed.
type ChangeSet struct {
	// SkipNewEdgeRevisions suppresses counterpart revisions for new edges.
	// Only initial seeding sets it.
	SkipNewEdgeRevisions bool

	touched       map[entities.Kind][]uint
	Edges         []graph.EdgeChange
	Notifications []*types.Notification
}

func NewChangeSet() *ChangeSet {
	return &ChangeSet{touched: map[entities.Kind][]uint{}}
}

// Touch marks (k, id) for a counterpart revision.
func (c *ChangeSet) Touch(k entities.Kind, id uint) {
	if c.touched == nil {
		c.touched = map[entities.Kind][]uint{}
	}
	if id == 0 || slices.Contains(c.touched[k], id) {
		return
	}
	c.touched[k] = append(c.touched[k], id)
}

// Untouch drops (k, id), used when the entity gets its own revision anyway.
func (c *ChangeSet) Untouch(k entities.Kind, id uint) {
	if c.touched == nil {
		return
	}
	c.touched[k] = slices.DeleteFunc(c.touched[k], func(v uint) bool { return v == id })
}

func (c *ChangeSet) Touched(k entities.Kind) []uint { return c.touched[k] }
