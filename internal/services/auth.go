package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	"github.com/yungbote/casefile-backend/internal/domain/activity"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
	"github.com/yungbote/casefile-backend/internal/platform/cache"
	"github.com/yungbote/casefile-backend/internal/platform/config"
	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

var errBadCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", errors.New("invalid username or password"))

// SessionKey holds the id of a user's current session when multiple
// sessions are disabled.
func SessionKey(userID uint) string { return fmt.Sprintf("casefile:session:%d", userID) }

type AuthService interface {
	Login(dbc dbctx.Context, username, password string) (string, error)
	Logout(dbc dbctx.Context) error
	// IssueToken signs a bearer token for userID without a password check.
	IssueToken(dbc dbctx.Context, userID uint, ttl time.Duration) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	users        repos.UserRepo
	activity     ActivityService
	sessions     cache.Store
	cfg          *config.Manager
	jwtSecretKey string
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	act ActivityService,
	sessions cache.Store,
	cfg *config.Manager,
	jwtSecretKey string,
) AuthService {
	return &authService{
		db:           db,
		log:          baseLog.With("service", "AuthService"),
		users:        users,
		activity:     act,
		sessions:     sessions,
		cfg:          cfg,
		jwtSecretKey: jwtSecretKey,
	}
}

func (as *authService) sessionTTL() time.Duration {
	days := as.cfg.Get().SessionRetentionDays
	if days <= 0 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}

func (as *authService) Login(dbc dbctx.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", errBadCredentials
	}
	u, err := as.users.GetByUsername(dbc, username)
	if err != nil {
		return "", dbErr(err)
	}
	if u == nil || !u.Active {
		return "", errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		as.log.Warn("Login rejected", "user_id", u.ID)
		return "", errBadCredentials
	}
	tok, err := as.IssueToken(dbc, u.ID, as.sessionTTL())
	if err != nil {
		return "", err
	}
	if err := as.activity.Record(dbc, ActivityEntry{UserID: u.ID, Action: activity.ActionLogin, Model: "User"}); err != nil {
		as.log.Warn("record login activity failed", "error", err)
	}
	return tok, nil
}

func (as *authService) IssueToken(dbc dbctx.Context, userID uint, ttl time.Duration) (string, error) {
	if as.jwtSecretKey == "" {
		return "", apierr.Internal(errors.New("JWT_SECRET_KEY is not set"))
	}
	if ttl <= 0 {
		ttl = as.sessionTTL()
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", apierr.Internal(err)
	}
	// The latest session wins; older tokens are rejected when multiple
	// sessions are disabled.
	if as.sessions != nil {
		if err := as.sessions.Set(dbc.Ctx, SessionKey(userID), claims.ID, ttl); err != nil {
			as.log.Warn("session bookkeeping failed", "user_id", userID, "error", err)
		}
	}
	return signed, nil
}

func (as *authService) Logout(dbc dbctx.Context) error {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == 0 {
		return errUnauthenticated
	}
	if as.sessions != nil {
		if err := as.sessions.Delete(dbc.Ctx, SessionKey(rd.UserID)); err != nil {
			as.log.Warn("session delete failed", "user_id", rd.UserID, "error", err)
		}
	}
	if err := as.activity.Record(dbc, ActivityEntry{UserID: rd.UserID, Action: activity.ActionLogout, Model: "User"}); err != nil {
		as.log.Warn("record logout activity failed", "error", err)
	}
	return nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, errors.New("invalid or expired token")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return ctx, errors.New("invalid user id in token")
	}
	userID := uint(id)
	if as.sessions != nil && as.cfg.Get().DisableMultipleLogins {
		current, err := as.sessions.Get(ctx, SessionKey(userID))
		switch {
		case errors.Is(err, cache.ErrMiss):
			return ctx, errors.New("session ended")
		case err != nil:
			as.log.Warn("session lookup failed", "user_id", userID, "error", err)
		case current != claims.ID:
			return ctx, errors.New("session replaced by a newer login")
		}
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tokenString, UserID: userID}), nil
}
