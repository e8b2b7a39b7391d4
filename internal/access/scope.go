package access

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
)

// Scope renders CanAccess as a SQL predicate over kind's table, for use in
// list and search queries. Admins get no predicate (nil).
func (p Policy) Scope(s Subject, kind entities.Kind) clause.Expression {
	if s.Admin {
		return nil
	}
	table := kind.Table()
	roleTable, fk := kind.JoinTable("roles")
	noRoles := fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s er WHERE er.%s = %s.id)", roleTable, fk, table)

	var ors []clause.Expression
	if !p.Restrictive {
		ors = append(ors, clause.Expr{SQL: noRoles})
	}
	if len(s.RoleIDs) > 0 {
		ors = append(ors, clause.Expr{
			SQL:  fmt.Sprintf("EXISTS (SELECT 1 FROM %s er WHERE er.%s = %s.id AND er.role_id IN ?)", roleTable, fk, table),
			Vars: []any{s.RoleIDs},
		})
	}
	if s.UserID != 0 {
		ors = append(ors, clause.Expr{
			SQL:  fmt.Sprintf("(%[1]s.user_id = ? OR %[1]s.assigned_to_id = ? OR %[1]s.first_peer_reviewer_id = ? OR %[1]s.second_peer_reviewer_id = ?)", table),
			Vars: []any{s.UserID, s.UserID, s.UserID, s.UserID},
		})
	}
	switch len(ors) {
	case 0:
		return clause.Expr{SQL: "1 = 0"}
	case 1:
		return ors[0]
	}
	return clause.Or(ors...)
}
