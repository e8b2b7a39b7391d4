package activity_retention

import (
	"time"

	"github.com/yungbote/casefile-backend/internal/data/repos"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

// JobRetention is how long finished job rows are kept.
const JobRetention = 30 * 24 * time.Hour

type Pipeline struct {
	log      *logger.Logger
	activity services.ActivityService
	jobs     repos.JobRunRepo
	now      func() time.Time
}

func New(baseLog *logger.Logger, activity services.ActivityService, jobRuns repos.JobRunRepo) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", jobs.TypeActivityRetention),
		activity: activity,
		jobs:     jobRuns,
		now:      time.Now,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeActivityRetention }
