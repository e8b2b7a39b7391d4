package backup_snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	jobrt "github.com/yungbote/casefile-backend/internal/jobs/runtime"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
)

var errNoBucket = errors.New("BACKUP_BUCKET is not configured")

// Run streams every revision as JSON lines into a new object, then prunes old snapshots.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p.bucket == nil {
		jc.Fail("config", errNoBucket)
		return nil
	}
	key := KeyPrefix + p.now().UTC().Format("20060102T150405Z") + ".jsonl"

	jc.Progress("export", 1, "Writing revisions to "+key)
	pr, pw := io.Pipe()
	written := make(chan int, 1)
	go func() {
		n, err := p.writeRevisions(jc.Ctx, pw, func(n int) {
			jc.Progress("export", 50, fmt.Sprintf("%d revisions written", n))
		})
		written <- n
		_ = pw.CloseWithError(err)
	}()
	if err := p.bucket.Upload(jc.Ctx, key, "application/x-ndjson", pr); err != nil {
		_ = pr.CloseWithError(err)
		<-written
		jc.Fail("export", err)
		return nil
	}
	count := <-written

	jc.Progress("prune", 90, "Pruning old snapshots")
	pruned, err := p.prune(jc.Ctx)
	if err != nil {
		// snapshot is already stored; pruning retries next run
		p.log.Warn("snapshot prune failed", "error", err)
	}
	p.log.Info("snapshot written", "bucket", p.bucket.Name(), "key", key, "revisions", count)
	jc.Succeed("done", map[string]any{
		"bucket":    p.bucket.Name(),
		"key":       key,
		"revisions": count,
		"pruned":    pruned,
	})
	return nil
}

func (p *Pipeline) writeRevisions(ctx context.Context, w io.Writer, progress func(int)) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	var after uint
	total := 0
	for {
		page, err := p.revisions.ListAfter(dbc, after, pageSize)
		if err != nil {
			return total, err
		}
		for _, rev := range page {
			if err := enc.Encode(rev); err != nil {
				return total, err
			}
			after = rev.ID
		}
		total += len(page)
		if len(page) < pageSize {
			break
		}
		progress(total)
	}
	return total, bw.Flush()
}

// prune deletes all but the newest Keep snapshots. Keys sort by timestamp.
func (p *Pipeline) prune(ctx context.Context) (int, error) {
	keys, err := p.bucket.ListKeys(ctx, KeyPrefix)
	if err != nil {
		return 0, err
	}
	if len(keys) <= Keep {
		return 0, nil
	}
	sort.Strings(keys)
	stale := keys[:len(keys)-Keep]
	for i, k := range stale {
		if err := p.bucket.Delete(ctx, k); err != nil {
			return i, err
		}
	}
	return len(stale), nil
}
