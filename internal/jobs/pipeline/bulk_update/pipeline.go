package bulk_update

import (
	"errors"
	"fmt"

	"github.com/yungbote/casefile-backend/internal/domain/entities"
	jobrt "github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/services"
)

type payload struct {
	Kind  entities.Kind     `json:"kind"`
	Items []uint            `json:"items"`
	Bulk  services.BulkSpec `json:"bulk"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	var in payload
	if err := jc.DecodePayload(&in); err != nil {
		jc.Fail("decode", err)
		return nil
	}
	kind, ok := entities.ParseKind(string(in.Kind))
	if !ok || len(in.Items) == 0 {
		jc.Fail("decode", fmt.Errorf("bulk payload needs kind and items"))
		return nil
	}
	owner := jc.Job.OwnerUserID

	jc.Progress("apply", 1, fmt.Sprintf("Updating %d items", len(in.Items)))
	res, err := p.bulk.Run(jc.Ctx, owner, kind, in.Items, in.Bulk, func(done, total int) bool {
		pct := 1
		if total > 0 {
			pct = min(99, 1+done*98/total)
		}
		return jc.Progress("apply", pct, fmt.Sprintf("%d of %d items processed", done, total))
	})
	if errors.Is(err, services.ErrBulkCanceled) {
		p.log.Info("bulk job canceled by owner", "job_id", jc.Job.ID, "summary", res.Summary())
		return nil
	}
	if err != nil {
		p.log.Error("bulk run failed", "job_id", jc.Job.ID, "error", err)
		p.bulk.ReportFailure(jc.Ctx, owner, kind, err)
		jc.Fail("apply", err)
		return nil
	}
	jc.Succeed("done", res)
	return nil
}
