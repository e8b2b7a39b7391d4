package testutil

import (
	"testing"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/domain/entities"
)

func SeedRole(tb testing.TB, tx *gorm.DB, name string) *types.Role {
	tb.Helper()
	r := &types.Role{Name: name}
	if err := tx.Create(r).Error; err != nil {
		tb.Fatalf("seed role: %v", err)
	}
	return r
}

func SeedUser(tb testing.TB, tx *gorm.DB, username string, roles ...types.Role) *types.User {
	tb.Helper()
	u := &types.User{
		Username:     username,
		Name:         username,
		PasswordHash: "x",
		Active:       true,
		Roles:        roles,
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedBulletin(tb testing.TB, tx *gorm.DB, title string, mutate ...func(*types.Bulletin)) *types.Bulletin {
	tb.Helper()
	b := &types.Bulletin{Title: title, Status: entities.StatusHumanCreated}
	for _, fn := range mutate {
		fn(b)
	}
	if err := tx.Create(b).Error; err != nil {
		tb.Fatalf("seed bulletin: %v", err)
	}
	return b
}

func SeedActor(tb testing.TB, tx *gorm.DB, name string, mutate ...func(*types.Actor)) *types.Actor {
	tb.Helper()
	a := &types.Actor{Type: entities.ActorTypePerson, Name: &name, Status: entities.StatusHumanCreated}
	for _, fn := range mutate {
		fn(a)
	}
	if len(a.Profiles) == 0 {
		a.Profiles = []types.ActorProfile{{Mode: entities.ProfileModeNormal}}
	}
	if err := tx.Create(a).Error; err != nil {
		tb.Fatalf("seed actor: %v", err)
	}
	return a
}

func SeedIncident(tb testing.TB, tx *gorm.DB, title string, mutate ...func(*types.Incident)) *types.Incident {
	tb.Helper()
	i := &types.Incident{Title: title, Status: entities.StatusHumanCreated}
	for _, fn := range mutate {
		fn(i)
	}
	if err := tx.Create(i).Error; err != nil {
		tb.Fatalf("seed incident: %v", err)
	}
	return i
}

func PtrUint(v uint) *uint { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrString(v string) *string { return &v }
