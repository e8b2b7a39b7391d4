package rebuild_id_trees

import (
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

type Pipeline struct {
	log   *logger.Logger
	vocab services.VocabService
}

func New(baseLog *logger.Logger, vocab services.VocabService) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("job", jobs.TypeRebuildIDTrees),
		vocab: vocab,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeRebuildIDTrees }
