package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yungbote/casefile-backend/internal/platform/ctxutil"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type fakeAuth struct {
	services.AuthService
	users map[string]uint
}

func (f fakeAuth) SetContextFromToken(ctx context.Context, tok string) (context.Context, error) {
	uid, ok := f.users[tok]
	if !ok {
		return nil, errors.New("bad signature")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tok, UserID: uid}), nil
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.Nop(), fakeAuth{users: map[string]uint{"good": 5, "anon": 0}})
	r := gin.New()
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": ctxutil.UserID(c.Request.Context())})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := authRouter()
	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bad", "Bearer nope", "", http.StatusUnauthorized},
		{"header", "Bearer good", "", http.StatusOK},
		{"lowercase scheme", "bearer good", "", http.StatusOK},
		{"query", "", "good", http.StatusOK},
		{"no caller", "Bearer anon", "", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			url := "/me"
			if tc.query != "" {
				url += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status != http.StatusOK {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}
