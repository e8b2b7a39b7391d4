package user

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type RoleRepo interface {
	Create(dbc dbctx.Context, roles []*types.Role) ([]*types.Role, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*types.Role, error)
	GetByName(dbc dbctx.Context, name string) (*types.Role, error)
	List(dbc dbctx.Context) ([]*types.Role, error)
	Save(dbc dbctx.Context, role *types.Role) error
	Delete(dbc dbctx.Context, id uint) error
	InUse(dbc dbctx.Context, id uint) (bool, error)
}

type roleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleRepo(db *gorm.DB, baseLog *logger.Logger) RoleRepo {
	return &roleRepo{db: db, log: baseLog.With("repo", "RoleRepo")}
}

func (r *roleRepo) Create(dbc dbctx.Context, roles []*types.Role) ([]*types.Role, error) {
	if len(roles) == 0 {
		return []*types.Role{}, nil
	}
	if err := dbc.DB(r.db).Create(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepo) GetByIDs(dbc dbctx.Context, ids []uint) ([]*types.Role, error) {
	var out []*types.Role
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *roleRepo) GetByName(dbc dbctx.Context, name string) (*types.Role, error) {
	var role types.Role
	err := dbc.DB(r.db).Where("name = ?", name).Take(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) List(dbc dbctx.Context) ([]*types.Role, error) {
	var out []*types.Role
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *roleRepo) Save(dbc dbctx.Context, role *types.Role) error {
	return dbc.DB(r.db).Save(role).Error
}

func (r *roleRepo) Delete(dbc dbctx.Context, id uint) error {
	return dbc.DB(r.db).Delete(&types.Role{}, id).Error
}

// roleTables lists every join table that references role ids.
var roleTables = []string{"user_roles", "bulletin_roles", "actor_roles", "incident_roles"}

// InUse reports whether any user or entity carries the role.
func (r *roleRepo) InUse(dbc dbctx.Context, id uint) (bool, error) {
	for _, t := range roleTables {
		var count int64
		if err := dbc.DB(r.db).Table(t).Where("role_id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
