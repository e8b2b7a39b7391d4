package services

import (
	"errors"
	"net/http"

	"github.com/yungbote/casefile-backend/internal/access"
	"github.com/yungbote/casefile-backend/internal/data/repos"
	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/views"
)

// Caller is the user a request or job acts for.
type Caller struct {
	User    *types.User
	Subject access.Subject
}

func (c *Caller) ID() uint {
	if c == nil || c.User == nil {
		return 0
	}
	return c.User.ID
}

func (c *Caller) ViewOptions() views.Options {
	return views.Options{ViewUsernames: c != nil && (c.Subject.ViewUsernames || c.Subject.Admin)}
}

var errUnauthenticated = apierr.New(http.StatusUnauthorized, "unauthenticated", errors.New("unauthenticated"))

// callerFromCtx resolves the authenticated user attached to dbc.Ctx.
func callerFromCtx(dbc dbctx.Context, users repos.UserRepo) (*Caller, error) {
	return callerByID(dbc, users, ctxutil.UserID(dbc.Ctx))
}

func callerByID(dbc dbctx.Context, users repos.UserRepo, id uint) (*Caller, error) {
	if id == 0 {
		return nil, errUnauthenticated
	}
	u, err := users.GetByID(dbc, id)
	if err != nil {
		return nil, apierr.FromDB(err)
	}
	if u == nil || !u.Active {
		return nil, errUnauthenticated
	}
	return &Caller{User: u, Subject: access.SubjectFor(u)}, nil
}

func policyOf(cfg *config.Manager) access.Policy {
	return access.Policy{Restrictive: cfg.Get().AccessControlRestrictive}
}
