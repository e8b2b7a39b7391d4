package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/access"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/relations"
	"github.com/yungbote/casefile-backend/internal/domain/vocab"
)

// Compiler turns query groups for one entity kind into a predicate.
type Compiler struct {
	Kind    entities.Kind
	Subject access.Subject
	Policy  access.Policy
}

// field extracts one facet from a group and compiles it; it returns nil when
// the facet is absent or does not apply to the kind.
type field struct {
	name    string
	compile func(c Compiler, g Group) clause.Expression
}

var fields = []field{
	{"ids", compileIDs},
	{"tsv", compileTsv},
	{"extsv", compileExTsv},
	{"tags", compileTags},
	{"exTags", compileExTags},
	{"labels", compileLabels},
	{"vlabels", compileVLabels},
	{"sources", compileSources},
	{"locations", compileLocations},
	{"pubdate", compilePubDate},
	{"docdate", compileDocDate},
	{"created", compileCreated},
	{"updated", compileUpdated},
	{"events", compileEvents},
	{"roles", compileRoles},
	{"workflow", compileWorkflow},
	{"relations", compileRelations},
	{"geo", compileGeo},
	{"actor", compileActorFacets},
	{"incident", compileIncidentFacets},
}

// Filter folds the groups left to right. The first group is the anchor; each
// later group joins with its own op. Empty groups are skipped.
func (c Compiler) Filter(groups []Group) clause.Expression {
	var acc clause.Expression
	for _, g := range groups {
		ge := c.Group(g)
		if ge == nil {
			continue
		}
		switch {
		case acc == nil:
			acc = ge
		case g.IsOr():
			acc = or(acc, ge)
		default:
			acc = and(acc, ge)
		}
	}
	return acc
}

// Where is Filter ANDed with the caller's access scope.
func (c Compiler) Where(groups []Group) clause.Expression {
	return and(c.Filter(groups), c.Policy.Scope(c.Subject, c.Kind))
}

// Group ANDs every facet present in g.
func (c Compiler) Group(g Group) clause.Expression {
	var parts []clause.Expression
	for _, f := range fields {
		if e := f.compile(c, g); e != nil {
			parts = append(parts, e)
		}
	}
	return and(parts...)
}

func (c Compiler) table() string { return c.Kind.Table() }

func (c Compiler) col(name string) string { return c.table() + "." + name }

func compileIDs(c Compiler, g Group) clause.Expression {
	if len(g.IDs) == 0 {
		return nil
	}
	return expr(c.col("id")+" IN ?", []uint(g.IDs))
}

func (c Compiler) searchCol() string { return "COALESCE(" + c.col("search") + ", '')" }

// compileTsv requires every token to appear somewhere in the search column.
func compileTsv(c Compiler, g Group) clause.Expression {
	var parts []clause.Expression
	for _, tok := range Tokenize(g.Tsv) {
		parts = append(parts, expr(c.searchCol()+" ILIKE ?", Contains(tok.Text)))
	}
	return and(parts...)
}

// compileExTsv excludes rows containing any token; a quoted phrase matches as
// one exact phrase.
func compileExTsv(c Compiler, g Group) clause.Expression {
	var parts []clause.Expression
	for _, tok := range Tokenize(g.ExTsv) {
		parts = append(parts, expr(c.searchCol()+" ILIKE ?", Contains(tok.Text)))
	}
	return not(or(parts...))
}

func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// tagPredicate implements the tag truth table: exact matching compares whole
// tags (overlap for any, containment for all); inexact matching looks for
// each value as a case-insensitive substring of some tag.
func (c Compiler) tagPredicate(tags []string, exact, all bool) clause.Expression {
	tags = cleanStrings(tags)
	if len(tags) == 0 {
		return nil
	}
	col := "COALESCE(" + c.col("tags") + ", '{}')"
	if exact {
		op := "&&"
		if all {
			op = "@>"
		}
		return expr(fmt.Sprintf("%s %s ?::text[]", col, op), pq.StringArray(tags))
	}
	parts := make([]clause.Expression, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, expr(
			fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS tg(v) WHERE tg.v ILIKE ?)", c.col("tags")),
			Contains(t)))
	}
	if all {
		return and(parts...)
	}
	return or(parts...)
}

func compileTags(c Compiler, g Group) clause.Expression {
	if !hasTags(c.Kind) {
		return nil
	}
	return c.tagPredicate(g.Tags, g.InExact, g.OpTags)
}

func compileExTags(c Compiler, g Group) clause.Expression {
	if !hasTags(c.Kind) {
		return nil
	}
	return not(c.tagPredicate(g.ExTags, g.ExExact, g.OpExTags))
}

// membership matches rows linked to any (or, with all, every) id. With
// children each id stands for itself and its descendants in closureTable.
func (c Compiler) membership(l link, ids []uint, all bool, closureTable, parentCol string) clause.Expression {
	if len(ids) == 0 {
		return nil
	}
	cond := l.col + " IN ?"
	if closureTable != "" {
		cond = l.col + " IN " + closureSQL(closureTable, parentCol)
	}
	if !all {
		return expr(l.exists(c.table(), cond), ids)
	}
	parts := make([]clause.Expression, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, expr(l.exists(c.table(), cond), []uint{id}))
	}
	return and(parts...)
}

func labelClosure(child bool) (string, string) {
	if child {
		return vocab.Label{}.TableName(), "parent_label_id"
	}
	return "", ""
}

func sourceClosure(child bool) (string, string) {
	if child {
		return vocab.Source{}.TableName(), "parent_id"
	}
	return "", ""
}

func compileLabels(c Compiler, g Group) clause.Expression {
	l, ok := labelLink(c.Kind, false)
	if !ok {
		return nil
	}
	t, p := labelClosure(g.ChildLabels)
	return and(
		c.membership(l, g.Labels, g.OpLabels, t, p),
		not(c.membership(l, g.ExLabels, false, t, p)),
	)
}

func compileVLabels(c Compiler, g Group) clause.Expression {
	l, ok := labelLink(c.Kind, true)
	if !ok {
		return nil
	}
	t, p := labelClosure(g.ChildVLabels)
	return and(
		c.membership(l, g.VLabels, g.OpVLabels, t, p),
		not(c.membership(l, g.ExVLabels, false, t, p)),
	)
}

func compileSources(c Compiler, g Group) clause.Expression {
	l, ok := sourceLink(c.Kind)
	if !ok {
		return nil
	}
	t, p := sourceClosure(g.ChildSources)
	return and(
		c.membership(l, g.Sources, g.OpSources, t, p),
		not(c.membership(l, g.ExSources, false, t, p)),
	)
}

// idTreeMatch selects locations whose id_tree mentions any of ids, i.e. the
// locations themselves and all their descendants.
func idTreeMatch(ids []uint) clause.Expression {
	parts := make([]clause.Expression, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, expr("lx.id_tree LIKE ?", "%"+vocab.IDTreeToken(id)+"%"))
	}
	return expr("(SELECT lx.id FROM location lx WHERE ?)", or(parts...))
}

func (c Compiler) locationMembership(l link, ids []uint, expand bool) clause.Expression {
	if len(ids) == 0 {
		return nil
	}
	if !expand {
		return expr(l.exists(c.table(), l.col+" IN ?"), ids)
	}
	return expr(l.exists(c.table(), l.col+" IN ?"), idTreeMatch(ids))
}

func compileLocations(c Compiler, g Group) clause.Expression {
	l, ok := locationLink(c.Kind)
	if !ok {
		return nil
	}
	return and(
		c.locationMembership(l, g.Locations, g.OpLocations),
		not(c.locationMembership(l, g.ExLocations, g.OpLocations)),
	)
}

// dateBounds renders [lo, hi) on col.
func dateBounds(col string, d DateRange) clause.Expression {
	if d.IsZero() {
		return nil
	}
	lo, hi := d.Bounds()
	var parts []clause.Expression
	if lo != nil {
		parts = append(parts, expr(col+" >= ?", *lo))
	}
	if hi != nil {
		parts = append(parts, expr(col+" < ?", *hi))
	}
	return and(parts...)
}

// profileDate puts a date condition on any of an actor's profiles.
func (c Compiler) profileDate(col string, d DateRange) clause.Expression {
	inner := dateBounds("p."+col, d)
	if inner == nil {
		return nil
	}
	return expr("EXISTS (SELECT 1 FROM actor_profile p WHERE p.actor_id = actor.id AND ?)", inner)
}

func compilePubDate(c Compiler, g Group) clause.Expression {
	switch {
	case hasOwnDates(c.Kind):
		return dateBounds(c.col("publish_date"), g.PubDate)
	case c.Kind == entities.KindActor:
		return c.profileDate("publish_date", g.PubDate)
	}
	return nil
}

func compileDocDate(c Compiler, g Group) clause.Expression {
	switch {
	case hasOwnDates(c.Kind):
		return dateBounds(c.col("documentation_date"), g.DocDate)
	case c.Kind == entities.KindActor:
		return c.profileDate("documentation_date", g.DocDate)
	}
	return nil
}

func compileCreated(c Compiler, g Group) clause.Expression {
	return dateBounds(c.col("created_at"), g.Created)
}

func compileUpdated(c Compiler, g Group) clause.Expression {
	return dateBounds(c.col("updated_at"), g.Updated)
}

// compileEvents filters on linked events. With singleEvent every condition
// must hold on the same event; otherwise each may be met by a different one.
func compileEvents(c Compiler, g Group) clause.Expression {
	var conds []clause.Expression
	if !g.EDate.IsZero() {
		conds = append(conds, or(dateBounds("ev.from_date", g.EDate), dateBounds("ev.to_date", g.EDate)))
	}
	if len(g.EType) > 0 {
		conds = append(conds, expr("ev.eventtype_id IN ?", []uint(g.EType)))
	}
	if len(g.ELocation) > 0 {
		conds = append(conds, expr("ev.location_id IN ?", []uint(g.ELocation)))
	}
	if len(conds) == 0 {
		return nil
	}
	l := eventLink(c.Kind)
	from := fmt.Sprintf("EXISTS (SELECT 1 FROM %s JOIN event ev ON ev.id = %s WHERE %s = %s.id AND ?)",
		l.from, l.col, l.owner, c.table())
	if g.SingleEvent {
		return expr(from, and(conds...))
	}
	parts := make([]clause.Expression, 0, len(conds))
	for _, cond := range conds {
		parts = append(parts, expr(from, cond))
	}
	return and(parts...)
}

// compileRoles only lets non-admins filter by roles they hold.
func compileRoles(c Compiler, g Group) clause.Expression {
	roleTable, fk := c.Kind.JoinTable("roles")
	var parts []clause.Expression
	if len(g.Roles) > 0 {
		ids := []uint(g.Roles)
		if !c.Subject.Admin {
			ids = slices.DeleteFunc(slices.Clone(ids), func(id uint) bool {
				return !slices.Contains(c.Subject.RoleIDs, id)
			})
		}
		if len(ids) == 0 {
			parts = append(parts, expr("1 = 0"))
		} else {
			parts = append(parts, expr(
				fmt.Sprintf("EXISTS (SELECT 1 FROM %s rf WHERE rf.%s = %s.id AND rf.role_id IN ?)", roleTable, fk, c.table()),
				ids))
		}
	}
	if g.NoRole {
		parts = append(parts, expr(
			fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s rf WHERE rf.%s = %s.id)", roleTable, fk, c.table())))
	}
	return and(parts...)
}

func compileWorkflow(c Compiler, g Group) clause.Expression {
	var parts []clause.Expression
	if len(g.Assigned) > 0 {
		parts = append(parts, expr(c.col("assigned_to_id")+" IN ?", []uint(g.Assigned)))
	}
	if g.Unassigned {
		parts = append(parts, expr(c.col("assigned_to_id")+" IS NULL"))
	}
	if len(g.Reviewer) > 0 {
		parts = append(parts, or(
			expr(c.col("first_peer_reviewer_id")+" IN ?", []uint(g.Reviewer)),
			expr(c.col("second_peer_reviewer_id")+" IN ?", []uint(g.Reviewer)),
		))
	}
	if st := cleanStrings(g.Statuses); len(st) > 0 {
		parts = append(parts, expr(c.col("status")+" IN ?", st))
	}
	if ra := strings.TrimSpace(g.ReviewAction); ra != "" {
		parts = append(parts, expr(c.col("review_action")+" = ?", ra))
	}
	return and(parts...)
}

// relatedTo matches rows with an edge to (other, id).
func (c Compiler) relatedTo(other entities.Kind, id uint) clause.Expression {
	if id == 0 {
		return nil
	}
	rk, ok := relations.Between(c.Kind, other)
	if !ok {
		return nil
	}
	t := c.table()
	if rk.Symmetric {
		return expr(fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %[1]s r WHERE (r.%[2]s = %[4]s.id AND r.%[3]s = ?) OR (r.%[3]s = %[4]s.id AND r.%[2]s = ?))",
			rk.Table, rk.LeftCol, rk.RightCol, t), id, id)
	}
	selfCol, otherCol := rk.LeftCol, rk.RightCol
	if rk.Left != c.Kind {
		selfCol, otherCol = otherCol, selfCol
	}
	return expr(fmt.Sprintf("EXISTS (SELECT 1 FROM %s r WHERE r.%s = %s.id AND r.%s = ?)", rk.Table, selfCol, t, otherCol), id)
}

func compileRelations(c Compiler, g Group) clause.Expression {
	return and(
		c.relatedTo(entities.KindBulletin, g.RelToBulletin),
		c.relatedTo(entities.KindActor, g.RelToActor),
		c.relatedTo(entities.KindIncident, g.RelToIncident),
	)
}

// Spatial sources selectable through locTypes.
const (
	LocTypeLocations  = "locations"
	LocTypeGeoMarkers = "geomarkers"
	LocTypeEvents     = "events"
)

func within(alias string, p LatLng, radius float64) clause.Expression {
	return expr(fmt.Sprintf(
		"ST_DWithin(ST_SetSRID(ST_MakePoint(%[1]s.longitude, %[1]s.latitude), 4326)::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)",
		alias), p.Lng, p.Lat, radius)
}

// compileGeo ORs the selected spatial sources: a row matches when any of
// them lies within radius meters of the point.
func compileGeo(c Compiler, g Group) clause.Expression {
	if g.LatLng == nil || g.Radius <= 0 {
		return nil
	}
	types := cleanStrings(g.LocTypes)
	if len(types) == 0 {
		types = []string{LocTypeLocations}
	}
	t := c.table()
	var parts []clause.Expression
	for _, lt := range types {
		switch lt {
		case LocTypeLocations:
			if l, ok := locationLink(c.Kind); ok {
				parts = append(parts, expr(
					l.exists(t, l.col+" IN (SELECT gl.id FROM location gl WHERE ?)"),
					within("gl", *g.LatLng, g.Radius)))
			} else if c.Kind == entities.KindActor {
				parts = append(parts, expr(
					c.col("origin_place_id")+" IN (SELECT gl.id FROM location gl WHERE ?)",
					within("gl", *g.LatLng, g.Radius)))
			}
		case LocTypeGeoMarkers:
			if c.Kind == entities.KindBulletin {
				parts = append(parts, expr(
					"EXISTS (SELECT 1 FROM geo_location gm WHERE gm.bulletin_id = bulletin.id AND ?)",
					within("gm", *g.LatLng, g.Radius)))
			}
		case LocTypeEvents:
			l := eventLink(c.Kind)
			parts = append(parts, expr(
				fmt.Sprintf("EXISTS (SELECT 1 FROM %s JOIN event ev ON ev.id = %s JOIN location gl ON gl.id = ev.location_id WHERE %s = %s.id AND ?)",
					l.from, l.col, l.owner, t),
				within("gl", *g.LatLng, g.Radius)))
		}
	}
	return or(parts...)
}

func compileActorFacets(c Compiler, g Group) clause.Expression {
	if c.Kind != entities.KindActor {
		return nil
	}
	var parts []clause.Expression
	if t := strings.TrimSpace(g.Type); t != "" {
		parts = append(parts, expr(c.col("type")+" = ?", t))
	}
	for _, f := range []struct {
		col  string
		vals []string
	}{{"sex", g.Sex}, {"age", g.Age}, {"civilian", g.Civilian}} {
		if v := cleanStrings(f.vals); len(v) > 0 {
			parts = append(parts, expr(c.col(f.col)+" IN ?", v))
		}
	}
	parts = append(parts,
		c.membership(joinLink(c.Kind, "ethnographies", "ethnography_id"), g.Ethnography, false, "", ""),
		c.membership(joinLink(c.Kind, "countries", "country_id"), g.Nationality, false, "", ""),
	)
	if len(g.OriginPlace) > 0 {
		if g.OpLocations {
			parts = append(parts, expr(c.col("origin_place_id")+" IN ?", idTreeMatch(g.OriginPlace)))
		} else {
			parts = append(parts, expr(c.col("origin_place_id")+" IN ?", []uint(g.OriginPlace)))
		}
	}
	return and(parts...)
}

func compileIncidentFacets(c Compiler, g Group) clause.Expression {
	if c.Kind != entities.KindIncident {
		return nil
	}
	return and(
		c.membership(joinLink(c.Kind, "potential_violations", "potential_violation_id"), g.PotentialViolations, false, "", ""),
		c.membership(joinLink(c.Kind, "claimed_violations", "claimed_violation_id"), g.ClaimedViolations, false, "", ""),
	)
}
