package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/platform/neo4jdb"
	"github.com/yungbote/casefile-backend/internal/platform/observability"
)

// EdgeChange is one committed edge write to replay on the mirror.
type EdgeChange struct {
	Kind    relations.Kind
	LeftID  uint
	RightID uint
	Fields  relations.Fields
	Deleted bool
}

// Mirror copies relationship edges into a graph store after the relational
// transaction commits. Failures are logged; Postgres stays the source of truth.
type Mirror interface {
	Apply(ctx context.Context, changes []EdgeChange)
	EnsureSchema(ctx context.Context) error
}

// NewMirror returns a no-op mirror when client is nil.
func NewMirror(client *neo4jdb.Client, log *logger.Logger) Mirror {
	if client == nil || client.Driver == nil {
		return nopMirror{}
	}
	return &neo4jMirror{client: client, log: log.With("graph", "RelationMirror")}
}

type nopMirror struct{}

func (nopMirror) Apply(context.Context, []EdgeChange) {}
func (nopMirror) EnsureSchema(context.Context) error  { return nil }

type neo4jMirror struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func nodeLabel(k string) string {
	switch k {
	case "bulletin":
		return "Bulletin"
	case "actor":
		return "Actor"
	case "incident":
		return "Incident"
	}
	return ""
}

func (m *neo4jMirror) EnsureSchema(ctx context.Context) error {
	return m.client.Write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, label := range []string{"Bulletin", "Actor", "Incident"} {
			stmt := fmt.Sprintf("CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
				strings.ToLower(label), label)
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

func (m *neo4jMirror) Apply(ctx context.Context, changes []EdgeChange) {
	if len(changes) == 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// group by kind so each statement has fixed labels and relationship type
	byKind := map[string][]EdgeChange{}
	for _, c := range changes {
		byKind[c.Kind.Name] = append(byKind[c.Kind.Name], c)
	}
	for _, group := range byKind {
		k := group[0].Kind
		op := "upsert"
		err := m.client.Write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			var ups, dels []map[string]any
			now := time.Now().UTC().Format(time.RFC3339Nano)
			for _, c := range group {
				row := map[string]any{"l": int64(c.LeftID), "r": int64(c.RightID)}
				if c.Deleted {
					dels = append(dels, row)
					continue
				}
				row["related_as"] = c.Fields.RelatedAs
				if c.Fields.Probability != nil {
					row["probability"] = int64(*c.Fields.Probability)
				} else {
					row["probability"] = nil
				}
				row["comment"] = c.Fields.Comment
				row["synced_at"] = now
				ups = append(ups, row)
			}
			left, right, rel := nodeLabel(string(k.Left)), nodeLabel(string(k.Right)), strings.ToUpper(k.Name)
			if len(ups) > 0 {
				res, err := tx.Run(ctx, fmt.Sprintf(`
UNWIND $rows AS r
MERGE (a:%s {id: r.l})
MERGE (b:%s {id: r.r})
MERGE (a)-[e:%s]->(b)
SET e.related_as = r.related_as,
    e.probability = r.probability,
    e.comment = r.comment,
    e.synced_at = r.synced_at
`, left, right, rel), map[string]any{"rows": ups})
				if err != nil {
					return nil, err
				}
				if _, err := res.Consume(ctx); err != nil {
					return nil, err
				}
			}
			if len(dels) > 0 {
				op = "delete"
				res, err := tx.Run(ctx, fmt.Sprintf(`
UNWIND $rows AS r
MATCH (a:%s {id: r.l})-[e:%s]->(b:%s {id: r.r})
DELETE e
`, left, rel, right), map[string]any{"rows": dels})
				if err != nil {
					return nil, err
				}
				if _, err := res.Consume(ctx); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		outcome := "ok"
		if err != nil {
			outcome = "error"
			m.log.Warn("graph mirror write failed", "kind", k.Name, "edges", len(group), "error", err)
		}
		observability.Current().IncGraphMirror(op, outcome)
	}
}
