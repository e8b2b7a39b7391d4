package services

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type CreateUserInput struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Name     string   `json:"name" validate:"max=255"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles"`

	ViewUsernames    *bool `json:"view_usernames"`
	ViewFullHistory  *bool `json:"view_full_history"`
	CanSelfAssign    bool  `json:"can_self_assign"`
	CanEditLocations bool  `json:"can_edit_locations"`
	CanExport        bool  `json:"can_export"`
}

type UserService interface {
	GetMe(dbc dbctx.Context) (*types.User, error)
	// Create adds an active user. Roles are looked up by name.
	Create(dbc dbctx.Context, in CreateUserInput) (*types.User, error)
	List(dbc dbctx.Context) ([]*types.User, error)
	SetRoles(dbc dbctx.Context, userID uint, roleIDs []uint) (*types.User, error)
}

type userService struct {
	db    *gorm.DB
	log   *logger.Logger
	users repos.UserRepo
	roles repos.RoleRepo
	cfg   *config.Manager
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, users repos.UserRepo, roles repos.RoleRepo, cfg *config.Manager) UserService {
	return &userService{
		db:    db,
		log:   baseLog.With("service", "UserService"),
		users: users,
		roles: roles,
		cfg:   cfg,
	}
}

func (us *userService) GetMe(dbc dbctx.Context) (*types.User, error) {
	caller, err := callerFromCtx(dbc, us.users)
	if err != nil {
		return nil, err
	}
	return caller.User, nil
}

func (us *userService) Create(dbc dbctx.Context, in CreateUserInput) (*types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, apierr.Validation("invalid_user", "%s", err.Error())
	}
	if minLen := us.cfg.Get().PasswordLengthMin; len(in.Password) < minLen {
		return nil, apierr.Validation("weak_password", "password must be at least %d characters", minLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	u := &types.User{
		Username:          in.Username,
		Name:              in.Name,
		Email:             in.Email,
		PasswordHash:      string(hash),
		Active:            true,
		ViewUsernames:     in.ViewUsernames == nil || *in.ViewUsernames,
		ViewSimpleHistory: true,
		ViewFullHistory:   in.ViewFullHistory == nil || *in.ViewFullHistory,
		CanSelfAssign:     in.CanSelfAssign,
		CanEditLocations:  in.CanEditLocations,
		CanExport:         in.CanExport,
	}
	err = us.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		exists, err := us.users.UsernameExists(inner, u.Username)
		if err != nil {
			return dbErr(err)
		}
		if exists {
			return apierr.Conflict("username_taken", errUsernameTaken(u.Username))
		}
		var roleIDs []uint
		for _, name := range in.Roles {
			role, err := us.roles.GetByName(inner, strings.TrimSpace(name))
			if err != nil {
				return dbErr(err)
			}
			if role == nil {
				return apierr.Validation("unknown_role", "unknown role %q", name)
			}
			roleIDs = append(roleIDs, role.ID)
		}
		if _, err := us.users.Create(inner, []*types.User{u}); err != nil {
			return dbErr(err)
		}
		if len(roleIDs) > 0 {
			if err := us.users.SetRoles(inner, u, roleIDs); err != nil {
				return dbErr(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, dbErr(err)
	}
	us.log.Info("User created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (us *userService) List(dbc dbctx.Context) ([]*types.User, error) {
	caller, err := callerFromCtx(dbc, us.users)
	if err != nil {
		return nil, err
	}
	if !caller.Subject.Admin && !caller.Subject.Moderator {
		return nil, apierr.Denied("users_not_permitted")
	}
	rows, err := us.users.List(dbc, true)
	if err != nil {
		return nil, dbErr(err)
	}
	return rows, nil
}

func (us *userService) SetRoles(dbc dbctx.Context, userID uint, roleIDs []uint) (*types.User, error) {
	caller, err := callerFromCtx(dbc, us.users)
	if err != nil {
		return nil, err
	}
	if !caller.Subject.Admin {
		return nil, apierr.Denied("users_not_permitted")
	}
	roleIDs = dedupIDs(roleIDs)
	var out *types.User
	err = us.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		u, err := us.users.GetByID(inner, userID)
		if err != nil {
			return dbErr(err)
		}
		if u == nil {
			return apierr.NotFound("user_not_found", "user %d not found", userID)
		}
		found, err := us.roles.GetByIDs(inner, roleIDs)
		if err != nil {
			return dbErr(err)
		}
		if len(found) != len(roleIDs) {
			return apierr.Validation("unknown_role", "unknown role id")
		}
		if err := us.users.SetRoles(inner, u, roleIDs); err != nil {
			return dbErr(err)
		}
		out, err = us.users.GetByID(inner, userID)
		return dbErr(err)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
