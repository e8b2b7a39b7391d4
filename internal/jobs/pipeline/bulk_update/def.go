package bulk_update

import (
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type Pipeline struct {
	log  *logger.Logger
	bulk services.BulkService
}

func New(baseLog *logger.Logger, bulk services.BulkService) *Pipeline {
	return &Pipeline{
		log:  baseLog.With("job", jobs.TypeBulkUpdate),
		bulk: bulk,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeBulkUpdate }
