package search

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/access"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/sqltest"
)

var admin = access.Subject{UserID: 1, Admin: true}

func render(t *testing.T, kind entities.Kind, s access.Subject, groups ...Group) (string, []any) {
	t.Helper()
	c := Compiler{Kind: kind, Subject: s}
	return sqltest.Render(t, kind.Table(), func(db *gorm.DB) *gorm.DB {
		return Scoped(db, c.Where(groups))
	})
}

func decodeGroups(t *testing.T, raw string) []Group {
	t.Helper()
	var r Request
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r.Q
}

func TestEmptyQueryHasNoPredicateForAdmin(t *testing.T) {
	assert.Nil(t, Compiler{Kind: entities.KindBulletin, Subject: admin}.Where(nil))
	assert.Nil(t, Compiler{Kind: entities.KindBulletin, Subject: admin}.Where([]Group{{}, {Op: "or"}}))
}

func TestTsvTokensAreAnded(t *testing.T) {
	sql, vars := render(t, entities.KindBulletin, admin, Group{Tsv: `shelling "north gate"`})
	assert.Equal(t, 2, strings.Count(sql, "COALESCE(bulletin.search, '') ILIKE"))
	assert.Contains(t, sql, " AND ")
	assert.Equal(t, []any{"%shelling%", "%north gate%"}, vars)
}

func TestExTsvExcludesAnyToken(t *testing.T) {
	sql, vars := render(t, entities.KindActor, admin, Group{ExTsv: `a "b c"`})
	assert.Contains(t, sql, "NOT (")
	assert.Contains(t, sql, " OR ")
	assert.Equal(t, []any{"%a%", "%b c%"}, vars)
}

func TestTagTruthTable(t *testing.T) {
	tags := []string{"Idlib", "Aleppo"}

	sql, vars := render(t, entities.KindBulletin, admin, Group{Tags: tags, InExact: true})
	assert.Contains(t, sql, "COALESCE(bulletin.tags, '{}') && $1::text[]")
	assert.Equal(t, []any{pq.StringArray(tags)}, vars)

	sql, _ = render(t, entities.KindBulletin, admin, Group{Tags: tags, InExact: true, OpTags: true})
	assert.Contains(t, sql, "@> $1::text[]")

	sql, vars = render(t, entities.KindBulletin, admin, Group{Tags: tags})
	assert.Equal(t, 2, strings.Count(sql, "FROM unnest(bulletin.tags)"))
	assert.Contains(t, sql, " OR ")
	assert.Equal(t, []any{"%Idlib%", "%Aleppo%"}, vars)

	sql, _ = render(t, entities.KindBulletin, admin, Group{Tags: tags, OpTags: true})
	assert.Contains(t, sql, " AND ")
	assert.NotContains(t, sql, " OR ")

	sql, _ = render(t, entities.KindBulletin, admin, Group{ExTags: tags, ExExact: true})
	assert.Contains(t, sql, "NOT (COALESCE(bulletin.tags, '{}') && $1::text[])")
}

func TestTagsIgnoredForIncidents(t *testing.T) {
	assert.Nil(t, Compiler{Kind: entities.KindIncident, Subject: admin}.Where([]Group{{Tags: []string{"x"}}}))
}

func TestLabelsAnyAllAndChildren(t *testing.T) {
	sql, vars := render(t, entities.KindBulletin, admin, Group{Labels: IDList{3, 4}})
	assert.Contains(t, sql, "EXISTS (SELECT 1 FROM bulletin_labels j WHERE j.bulletin_id = bulletin.id AND j.label_id IN ($1,$2))")
	assert.Equal(t, []any{uint(3), uint(4)}, vars)

	sql, _ = render(t, entities.KindBulletin, admin, Group{Labels: IDList{3, 4}, OpLabels: true})
	assert.Equal(t, 2, strings.Count(sql, "FROM bulletin_labels j"))

	sql, _ = render(t, entities.KindBulletin, admin, Group{Labels: IDList{3}, ChildLabels: true})
	assert.Contains(t, sql, "WITH RECURSIVE c(id) AS (SELECT id FROM label WHERE id IN ($1) UNION SELECT t.id FROM label t JOIN c ON t.parent_label_id = c.id)")
}

func TestActorLabelsGoThroughProfiles(t *testing.T) {
	sql, _ := render(t, entities.KindActor, admin, Group{VLabels: IDList{9}, Sources: IDList{2}})
	assert.Contains(t, sql, "actor_profile p JOIN actor_profile_verlabels j ON j.actor_profile_id = p.id WHERE p.actor_id = actor.id")
	assert.Contains(t, sql, "actor_profile_sources j")
}

func TestIncidentsHaveNoVerifiedLabels(t *testing.T) {
	assert.Nil(t, Compiler{Kind: entities.KindIncident, Subject: admin}.Where([]Group{{VLabels: IDList{1}}}))
}

func TestLocationDescendantsUseIDTree(t *testing.T) {
	sql, vars := render(t, entities.KindIncident, admin, Group{Locations: IDList{5}, OpLocations: true})
	assert.Contains(t, sql, "j.location_id IN (SELECT lx.id FROM location lx WHERE lx.id_tree LIKE $1)")
	assert.Equal(t, []any{"%[5]%"}, vars)

	sql, _ = render(t, entities.KindIncident, admin, Group{Locations: IDList{5}})
	assert.NotContains(t, sql, "id_tree")
}

func TestGroupsFoldByOperator(t *testing.T) {
	groups := decodeGroups(t, `{"q":[{"ids":[1]},{},{"op":"or","ids":[2]},{"op":"and","ids":[3]}]}`)
	sql, vars := render(t, entities.KindBulletin, admin, groups...)
	assert.Equal(t, []any{uint(1), uint(2), uint(3)}, vars)
	or := strings.Index(sql, " OR ")
	and := strings.LastIndex(sql, " AND ")
	require.Positive(t, or)
	assert.Greater(t, and, or, "later AND must wrap the earlier OR")
}

func TestAccessScopeAndedOutermost(t *testing.T) {
	s := access.Subject{UserID: 2, RoleIDs: []uint{7}}
	sql, _ := render(t, entities.KindBulletin, s, Group{IDs: IDList{1}}, Group{Op: "or", IDs: IDList{2}})
	assert.Contains(t, sql, "bulletin_roles er")
	scope := strings.Index(sql, "bulletin_roles er")
	assert.Greater(t, scope, strings.Index(sql, "bulletin.id IN"))
}

func TestRolesFilterIntersectsCallerRoles(t *testing.T) {
	s := access.Subject{UserID: 2, RoleIDs: []uint{7}}
	c := Compiler{Kind: entities.KindActor, Subject: s}
	sql, _ := sqltest.Render(t, "actor", func(db *gorm.DB) *gorm.DB {
		return Scoped(db, c.Filter([]Group{{Roles: IDList{8}}}))
	})
	assert.Contains(t, sql, "1 = 0")

	sql, vars := sqltest.Render(t, "actor", func(db *gorm.DB) *gorm.DB {
		return Scoped(db, c.Filter([]Group{{Roles: IDList{7, 8}}}))
	})
	assert.Contains(t, sql, "rf.role_id IN ($1)")
	assert.Equal(t, []any{uint(7)}, vars)

	sql, _ = render(t, entities.KindActor, admin, Group{NoRole: true})
	assert.Contains(t, sql, "NOT EXISTS (SELECT 1 FROM actor_roles rf WHERE rf.actor_id = actor.id)")
}

func TestDatesAreHalfOpen(t *testing.T) {
	groups := decodeGroups(t, `{"q":[{"pubdate":"2024-03-01","created":["2024-01-01","2024-01-31"]}]}`)
	sql, vars := render(t, entities.KindBulletin, admin, groups...)
	assert.Contains(t, sql, "bulletin.publish_date >= $1 AND bulletin.publish_date < $2")
	assert.Contains(t, sql, "bulletin.created_at >= $3 AND bulletin.created_at < $4")
	require.Len(t, vars, 4)
	assert.Equal(t, "2024-02-01", vars[3].(time.Time).Format("2006-01-02"))

	sql, _ = render(t, entities.KindActor, admin, groups...)
	assert.Contains(t, sql, "FROM actor_profile p WHERE p.actor_id = actor.id AND")
}

func TestEventsSingleVersusSeparate(t *testing.T) {
	g := Group{EType: IDList{1}, ELocation: IDList{2}}
	sql, _ := render(t, entities.KindActor, admin, g)
	assert.Equal(t, 2, strings.Count(sql, "JOIN event ev"))

	g.SingleEvent = true
	sql, _ = render(t, entities.KindActor, admin, g)
	assert.Equal(t, 1, strings.Count(sql, "JOIN event ev"))
	assert.Contains(t, sql, "ev.eventtype_id IN ($1)")
	assert.Contains(t, sql, "ev.location_id IN ($2)")
}

func TestRelatedTo(t *testing.T) {
	sql, vars := render(t, entities.KindActor, admin, Group{RelToActor: 4})
	assert.Contains(t, sql, "(r.actor_id = actor.id AND r.related_actor_id = $1) OR (r.related_actor_id = actor.id AND r.actor_id = $2)")
	assert.Equal(t, []any{uint(4), uint(4)}, vars)

	sql, _ = render(t, entities.KindBulletin, admin, Group{RelToIncident: 4})
	assert.Contains(t, sql, "FROM itob r WHERE r.bulletin_id = bulletin.id AND r.incident_id = $1")
}

func TestGeoDefaultsToLocations(t *testing.T) {
	g := Group{LatLng: &LatLng{Lat: 36.2, Lng: 37.1}, Radius: 1000}
	sql, vars := render(t, entities.KindBulletin, admin, g)
	assert.Contains(t, sql, "ST_DWithin(ST_SetSRID(ST_MakePoint(gl.longitude, gl.latitude), 4326)::geography")
	assert.Equal(t, []any{37.1, 36.2, 1000.0}, vars)

	g.LocTypes = []string{LocTypeGeoMarkers, LocTypeEvents}
	sql, _ = render(t, entities.KindBulletin, admin, g)
	assert.Contains(t, sql, "geo_location gm")
	assert.Contains(t, sql, " OR ")

	g.LocTypes = nil
	sql, _ = render(t, entities.KindActor, admin, g)
	assert.Contains(t, sql, "actor.origin_place_id IN (SELECT gl.id FROM location gl")
}

func TestFacetsForOtherKindsIgnored(t *testing.T) {
	assert.Nil(t, Compiler{Kind: entities.KindBulletin, Subject: admin}.Where([]Group{{Sex: []string{"Male"}, ClaimedViolations: IDList{1}}}))

	sql, _ := render(t, entities.KindIncident, admin, Group{ClaimedViolations: IDList{1}})
	assert.Contains(t, sql, "incident_claimed_violations j")
}

func TestActorFacetsCompileInFixedOrder(t *testing.T) {
	g := Group{Sex: []string{"Female"}, Age: []string{"Adult"}, Civilian: []string{"Civilian"}}
	first, vars := render(t, entities.KindActor, admin, g)
	for i := 0; i < 20; i++ {
		again, _ := render(t, entities.KindActor, admin, g)
		require.Equal(t, first, again)
	}
	sex := strings.Index(first, "actor.sex IN")
	age := strings.Index(first, "actor.age IN")
	civ := strings.Index(first, "actor.civilian IN")
	require.True(t, sex >= 0 && age >= 0 && civ >= 0, first)
	assert.Less(t, sex, age)
	assert.Less(t, age, civ)
	assert.Equal(t, []any{"Female", "Adult", "Civilian"}, vars)
}

func TestUnknownKeysIgnored(t *testing.T) {
	groups := decodeGroups(t, `{"q":[{"bogus":1,"ids":["2"]}]}`)
	_, vars := render(t, entities.KindBulletin, admin, groups...)
	assert.Equal(t, []any{uint(2)}, vars)
}

func TestPageOf(t *testing.T) {
	p, err := PageOf(Request{PerPage: 5000, Page: 3}, 100)
	require.NoError(t, err)
	assert.Equal(t, Page{PerPage: 100, Page: 3}, p)

	p, err = PageOf(Request{Cursor: "42", Page: 3}, 100)
	require.NoError(t, err)
	assert.Equal(t, Page{PerPage: DefaultPerPage, Page: 1, After: 42}, p)

	_, err = PageOf(Request{Cursor: "abc"}, 100)
	assert.Error(t, err)

	sql, vars := sqltest.Render(t, "bulletin", func(db *gorm.DB) *gorm.DB {
		return Page{PerPage: 10, Page: 1, After: 42}.Apply(db, "bulletin")
	})
	assert.Contains(t, sql, "bulletin.id < $1")
	assert.Contains(t, sql, `ORDER BY "bulletin"."id" DESC LIMIT $2`)
	assert.Equal(t, []any{uint(42), 11}, vars)

	assert.Equal(t, "7", NextCursor([]uint{9, 8, 7}, true))
	assert.Empty(t, NextCursor([]uint{9}, false))
}
