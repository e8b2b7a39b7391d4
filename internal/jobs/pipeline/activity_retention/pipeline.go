package activity_retention

import (
	"fmt"

	jobrt "github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}
	now := p.now().UTC()

	jc.Progress("activities", 10, "Purging expired activity rows")
	purged, err := p.activity.Purge(dbc, now)
	if err != nil {
		jc.Fail("activities", err)
		return nil
	}

	jc.Progress("jobs", 60, "Removing finished jobs")
	removed, err := p.jobs.DeleteFinishedBefore(dbc, now.Add(-JobRetention))
	if err != nil {
		jc.Fail("jobs", fmt.Errorf("delete finished jobs: %w", err))
		return nil
	}

	p.log.Info("retention pass finished", "activities", purged, "jobs", removed)
	jc.Succeed("done", map[string]any{
		"activities_deleted": purged,
		"jobs_deleted":       removed,
	})
	return nil
}
