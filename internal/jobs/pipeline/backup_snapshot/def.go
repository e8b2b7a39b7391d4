package backup_snapshot

import (
	"time"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/gcs"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

const (
	KeyPrefix = "snapshots/revisions-"
	// Keep is the number of snapshots left in the bucket after a run.
	Keep     = 7
	pageSize = 1000
)

type Pipeline struct {
	log       *logger.Logger
	revisions repos.RevisionRepo
	bucket    gcs.Bucket
	now       func() time.Time
}

// New returns a pipeline that fails every run when bucket is nil.
func New(baseLog *logger.Logger, revisions repos.RevisionRepo, bucket gcs.Bucket) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", jobs.TypeBackupSnapshot),
		revisions: revisions,
		bucket:    bucket,
		now:       time.Now,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeBackupSnapshot }
