package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/domain/user"
	"github.com/yungbote/casefile-backend/internal/platform/sqltest"
)

func uptr(v uint) *uint { return &v }

func TestCanAccess(t *testing.T) {
	const secret, public = 10, 20
	owner := uint(3)

	cases := []struct {
		name        string
		restrictive bool
		subject     Subject
		control     entities.Control
		want        bool
	}{
		{"admin always", true, Subject{UserID: 1, Admin: true}, entities.Control{RoleIDs: []uint{secret}}, true},
		{"empty roles permissive", false, Subject{UserID: 2}, entities.Control{}, true},
		{"empty roles restrictive stranger", true, Subject{UserID: 2}, entities.Control{}, false},
		{"empty roles restrictive owner", true, Subject{UserID: owner}, entities.Control{OwnerID: uptr(owner)}, true},
		{"empty roles restrictive reviewer", true, Subject{UserID: 4}, entities.Control{SecondPeerReviewerID: uptr(4)}, true},
		{"role overlap", false, Subject{UserID: 2, RoleIDs: []uint{public, secret}}, entities.Control{RoleIDs: []uint{secret}}, true},
		{"no overlap", false, Subject{UserID: 2, RoleIDs: []uint{public}}, entities.Control{RoleIDs: []uint{secret}}, false},
		{"no overlap but assignee", false, Subject{UserID: 2, RoleIDs: []uint{public}}, entities.Control{RoleIDs: []uint{secret}, AssignedToID: uptr(2)}, true},
		{"anonymous never party", true, Subject{}, entities.Control{OwnerID: uptr(0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Policy{Restrictive: tc.restrictive}.CanAccess(tc.subject, tc.control))
		})
	}
}

func TestWriteGates(t *testing.T) {
	p := Policy{}
	da := Subject{UserID: 5, DA: true}
	mod := Subject{UserID: 6, Moderator: true}
	admin := Subject{UserID: 1, Admin: true}
	open := entities.Control{ID: 1}

	assert.True(t, p.CanCreate(da))
	assert.False(t, p.CanCreate(mod))
	assert.True(t, p.CanCreate(admin))

	assert.False(t, p.CanUpdate(da, open), "DA needs ownership or assignment")
	assert.True(t, p.CanUpdate(da, entities.Control{AssignedToID: uptr(5)}))
	assert.True(t, p.CanUpdate(mod, open))
	assert.False(t, p.CanUpdate(mod, entities.Control{RoleIDs: []uint{99}}))

	assert.True(t, p.CanDelete(admin))
	assert.False(t, p.CanDelete(mod))

	assert.False(t, p.CanSelfAssign(mod, open))
	assert.True(t, p.CanSelfAssign(Subject{UserID: 7, CanSelfAssign: true}, open))

	assert.True(t, p.CanReview(Subject{UserID: 8}, entities.Control{FirstPeerReviewerID: uptr(8)}))
	assert.False(t, p.CanReview(Subject{UserID: 8}, open))
	assert.True(t, p.CanReview(da, open))

	assert.True(t, p.CanBulk(mod))
	assert.False(t, p.CanBulk(da))

	assert.True(t, p.CanEditVocabulary(Subject{CanEditLocations: true}, true))
	assert.False(t, p.CanEditVocabulary(Subject{CanEditLocations: true}, false))
}

func TestSubjectFor(t *testing.T) {
	u := &user.User{ID: 4, Roles: []user.Role{{ID: 1, Name: user.RoleAdmin}, {ID: 9, Name: "R"}}, ViewFullHistory: true}
	s := SubjectFor(u)
	assert.True(t, s.Admin)
	assert.ElementsMatch(t, []uint{1, 9}, s.RoleIDs)
	assert.True(t, s.ViewFullHistory)
	assert.Equal(t, Subject{}, SubjectFor(nil))
}

func TestScopeSQL(t *testing.T) {
	assert.Nil(t, Policy{}.Scope(Subject{Admin: true}, entities.KindBulletin))

	sql, vars := sqltest.Render(t, "bulletin", func(db *gorm.DB) *gorm.DB {
		return db.Where(Policy{}.Scope(Subject{UserID: 2, RoleIDs: []uint{7}}, entities.KindBulletin))
	})
	assert.Contains(t, sql, "NOT EXISTS (SELECT 1 FROM bulletin_roles er WHERE er.bulletin_id = bulletin.id)")
	assert.Contains(t, sql, "er.role_id IN ($1)")
	assert.Contains(t, sql, "bulletin.assigned_to_id = $3")
	assert.Equal(t, []any{uint(7), uint(2), uint(2), uint(2), uint(2)}, vars)

	sql, _ = sqltest.Render(t, "actor", func(db *gorm.DB) *gorm.DB {
		return db.Where(Policy{Restrictive: true}.Scope(Subject{UserID: 2}, entities.KindActor))
	})
	assert.NotContains(t, sql, "NOT EXISTS")
	assert.Contains(t, sql, "actor.user_id = $1")
}
