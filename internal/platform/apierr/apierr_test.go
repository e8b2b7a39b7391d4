package apierr

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFromDBClassifiesPostgresErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"not found", gorm.ErrRecordNotFound, KindNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), KindNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, KindConflict},
		{"check", &pgconn.PgError{Code: "23514"}, KindConflict},
		{"fk", &pgconn.PgError{Code: "23503", Message: "violates"}, KindValidation},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, KindTransient},
		{"connection", &pgconn.PgError{Code: "08006"}, KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"other pg", &pgconn.PgError{Code: "42601"}, KindInternal},
		{"plain", fmt.Errorf("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(FromDB(tc.err)))
		})
	}
}

func TestFromDBKeepsTypedErrors(t *testing.T) {
	in := Validation("title_required", "title is required")
	out := FromDB(in)
	require.Same(t, in, out)

	e, ok := As(fmt.Errorf("wrap: %w", out))
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, "title_required", e.Code)
}

func TestNewDerivesKindFromStatus(t *testing.T) {
	assert.Equal(t, KindAccessDenied, New(http.StatusForbidden, "x", nil).Kind)
	assert.Equal(t, KindConflict, New(http.StatusConflict, "x", nil).Kind)
	assert.Equal(t, KindInternal, New(http.StatusTeapot, "x", nil).Kind)
	assert.True(t, IsKind(Denied("restricted"), KindAccessDenied))
	assert.False(t, IsKind(nil, KindAccessDenied))
}
