// Package access decides whether a user may see or change an entity. The
// evaluator is pure: callers load the user and the entity's control fields.
package access

import (
	"slices"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/user"
)

// Subject is the caller as the evaluator sees it.
type Subject struct {
	UserID    uint
	RoleIDs   []uint
	Admin     bool
	Moderator bool
	DA        bool

	CanSelfAssign     bool
	ViewFullHistory   bool
	ViewSimpleHistory bool
	ViewUsernames     bool
	CanEditLocations  bool
	CanExport         bool
}

func SubjectFor(u *user.User) Subject {
	if u == nil {
		return Subject{}
	}
	return Subject{
		UserID:            u.ID,
		RoleIDs:           u.RoleIDs(),
		Admin:             u.HasRole(user.RoleAdmin),
		Moderator:         u.HasRole(user.RoleModerator),
		DA:                u.HasRole(user.RoleDA),
		CanSelfAssign:     u.CanSelfAssign,
		ViewFullHistory:   u.ViewFullHistory,
		ViewSimpleHistory: u.ViewSimpleHistory,
		ViewUsernames:     u.ViewUsernames,
		CanEditLocations:  u.CanEditLocations,
		CanExport:         u.CanExport,
	}
}

// Policy carries the global restrictiveness mode.
type Policy struct {
	Restrictive bool
}

// CanAccess is the read gate.
func (p Policy) CanAccess(s Subject, c entities.Control) bool {
	if s.Admin {
		return true
	}
	if isParty(s, c) {
		return true
	}
	if len(c.RoleIDs) == 0 {
		return !p.Restrictive
	}
	return overlaps(s.RoleIDs, c.RoleIDs)
}

// CanCreate lets Admin and DA create entities.
func (p Policy) CanCreate(s Subject) bool {
	return s.Admin || s.DA
}

// CanUpdate requires read access plus a stake in the entity. A DA that is not
// the owner or assignee may not update.
func (p Policy) CanUpdate(s Subject, c entities.Control) bool {
	if s.Admin {
		return true
	}
	if !p.CanAccess(s, c) {
		return false
	}
	if s.DA && !s.Moderator {
		return eq(c.OwnerID, s.UserID) || eq(c.AssignedToID, s.UserID)
	}
	if isParty(s, c) {
		return true
	}
	if len(c.RoleIDs) == 0 {
		return !p.Restrictive
	}
	return overlaps(s.RoleIDs, c.RoleIDs)
}

func (p Policy) CanDelete(s Subject) bool { return s.Admin }

func (p Policy) CanSelfAssign(s Subject, c entities.Control) bool {
	if s.Admin {
		return true
	}
	return s.CanSelfAssign && p.CanAccess(s, c)
}

// CanReview admits the entity's peer reviewers and data analysts.
func (p Policy) CanReview(s Subject, c entities.Control) bool {
	if s.Admin {
		return true
	}
	if !p.CanAccess(s, c) {
		return false
	}
	return s.DA || eq(c.FirstPeerReviewerID, s.UserID) || eq(c.SecondPeerReviewerID, s.UserID)
}

// CanBulk admits Admin and Moderator; items are re-checked one by one.
func (p Policy) CanBulk(s Subject) bool { return s.Admin || s.Moderator }

// CanRestrictNew reports whether s may set roles on a new entity.
func (p Policy) CanRestrictNew(s Subject, usersCanRestrictNew bool) bool {
	return s.Admin || usersCanRestrictNew
}

// CanEditVocabulary gates reference-registry writes. Locations additionally
// accept users with the can_edit_locations capability.
func (p Policy) CanEditVocabulary(s Subject, locations bool) bool {
	if s.Admin || s.Moderator {
		return true
	}
	return locations && s.CanEditLocations
}

func isParty(s Subject, c entities.Control) bool {
	if s.UserID == 0 {
		return false
	}
	return eq(c.OwnerID, s.UserID) || eq(c.AssignedToID, s.UserID) ||
		eq(c.FirstPeerReviewerID, s.UserID) || eq(c.SecondPeerReviewerID, s.UserID)
}

func eq(p *uint, v uint) bool { return p != nil && *p == v }

func overlaps(a, b []uint) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
