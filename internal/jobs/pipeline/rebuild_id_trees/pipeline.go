package rebuild_id_trees

import (
	"fmt"

	jobrt "github.com/yungbote/casefile-backend/internal/jobs/runtime"
)

// Run recomputes id_tree and full_location for every location.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	jc.Progress("locations", 1, "Rebuilding location trees")
	n, err := p.vocab.RebuildIDTrees(jc.Ctx, func(done int) {
		// total is unknown up front; report the running count only
		jc.Progress("locations", 50, fmt.Sprintf("%d locations refreshed", done))
	})
	if err != nil {
		jc.Fail("locations", err)
		return nil
	}
	p.log.Info("location trees rebuilt", "count", n)
	jc.Succeed("done", map[string]any{"locations": n})
	return nil
}
