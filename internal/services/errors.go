package services

import (
	"fmt"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	"github.com/yungbote/casefile-backend/internal/platform/apierr"
)

func errWrongKind(want entities.Kind, got entities.Entity) error {
	if got == nil {
		return fmt.Errorf("expected %s, got nil", want)
	}
	return fmt.Errorf("expected %s, got %s", want, got.EntityKind())
}

func notFound(k entities.Kind, id uint) error {
	return apierr.NotFound("not_found", "%s %d not found", k.ModelName(), id)
}

// dbErr classifies err unless it already carries a kind.
func dbErr(err error) error {
	if err == nil {
		return nil
	}
	return apierr.FromDB(err)
}

func errDuplicateEtag(etag string) error {
	return fmt.Errorf("media with etag %q already exists", etag)
}

func errUsernameTaken(name string) error {
	return fmt.Errorf("username %q is taken", name)
}
