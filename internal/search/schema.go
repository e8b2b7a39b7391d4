package search

import (
	"fmt"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
)

// link describes how an entity reaches a many-to-many target. The rendered
// subquery is EXISTS (SELECT 1 FROM <from> WHERE <owner> = <table>.id AND ...).
type link struct {
	from  string
	owner string
	col   string
}

func (l link) exists(table, cond string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s = %s.id AND %s)", l.from, l.owner, table, cond)
}

func joinLink(kind entities.Kind, assoc, targetCol string) link {
	table, fk := kind.JoinTable(assoc)
	return link{from: table + " j", owner: "j." + fk, col: "j." + targetCol}
}

func profileLink(assoc, targetCol string) link {
	return link{
		from:  fmt.Sprintf("actor_profile p JOIN actor_profile_%s j ON j.actor_profile_id = p.id", assoc),
		owner: "p.actor_id",
		col:   "j." + targetCol,
	}
}

// labelLink and friends return false when kind has no such association.
func labelLink(kind entities.Kind, verified bool) (link, bool) {
	assoc := "labels"
	if verified {
		assoc = "verlabels"
	}
	switch kind {
	case entities.KindBulletin:
		return joinLink(kind, assoc, "label_id"), true
	case entities.KindActor:
		return profileLink(assoc, "label_id"), true
	case entities.KindIncident:
		if verified {
			return link{}, false
		}
		return joinLink(kind, assoc, "label_id"), true
	}
	return link{}, false
}

func sourceLink(kind entities.Kind) (link, bool) {
	switch kind {
	case entities.KindBulletin:
		return joinLink(kind, "sources", "source_id"), true
	case entities.KindActor:
		return profileLink("sources", "source_id"), true
	}
	return link{}, false
}

func locationLink(kind entities.Kind) (link, bool) {
	switch kind {
	case entities.KindBulletin, entities.KindIncident:
		return joinLink(kind, "locations", "location_id"), true
	}
	return link{}, false
}

func eventLink(kind entities.Kind) link {
	return joinLink(kind, "events", "event_id")
}

// profileDateColumn maps pubdate/docdate onto actor profiles.
func hasOwnDates(kind entities.Kind) bool { return kind == entities.KindBulletin }

func hasTags(kind entities.Kind) bool {
	return kind == entities.KindBulletin || kind == entities.KindActor
}

// closureSQL selects ids and all their descendants from a self-referencing
// vocabulary table.
func closureSQL(table, parentCol string) string {
	return fmt.Sprintf(
		"(WITH RECURSIVE c(id) AS (SELECT id FROM %[1]s WHERE id IN ? UNION SELECT t.id FROM %[1]s t JOIN c ON t.%[2]s = c.id) SELECT id FROM c)",
		table, parentCol)
}
