package user

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, id uint) (*types.User, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*types.User, error)
	GetByUsername(dbc dbctx.Context, username string) (*types.User, error)
	UsernameExists(dbc dbctx.Context, username string) (bool, error)
	List(dbc dbctx.Context, activeOnly bool) ([]*types.User, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]any) error
	SetRoles(dbc dbctx.Context, u *types.User, roleIDs []uint) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	if err := dbc.DB(ur.db).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID loads a user with roles. A missing user is (nil, nil).
func (ur *userRepo) GetByID(dbc dbctx.Context, id uint) (*types.User, error) {
	if id == 0 {
		return nil, nil
	}
	var u types.User
	err := dbc.DB(ur.db).Preload("Roles").Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, ids []uint) ([]*types.User, error) {
	var results []*types.User
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.DB(ur.db).
		Preload("Roles").
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) GetByUsername(dbc dbctx.Context, username string) (*types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var u types.User
	err := dbc.DB(ur.db).Preload("Roles").Where("username = ?", username).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) UsernameExists(dbc dbctx.Context, username string) (bool, error) {
	var count int64
	if err := dbc.DB(ur.db).
		Model(&types.User{}).
		Where("username = ?", strings.TrimSpace(username)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) List(dbc dbctx.Context, activeOnly bool) ([]*types.User, error) {
	q := dbc.DB(ur.db).Preload("Roles").Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []*types.User
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (ur *userRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]any) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return dbc.DB(ur.db).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetRoles replaces the user's role set.
func (ur *userRepo) SetRoles(dbc dbctx.Context, u *types.User, roleIDs []uint) error {
	if u == nil || u.ID == 0 {
		return nil
	}
	roles := make([]types.Role, 0, len(roleIDs))
	if len(roleIDs) > 0 {
		if err := dbc.DB(ur.db).Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return err
		}
	}
	if err := dbc.DB(ur.db).Model(u).Association("Roles").Replace(roles); err != nil {
		return err
	}
	u.Roles = roles
	return nil
}
