package backup_snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/casefile-backend/internal/domain"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

type fakeRevisions struct {
	rows []*types.Revision
}

func (f *fakeRevisions) Append(dbctx.Context, []*types.Revision) error { return nil }
func (f *fakeRevisions) ListFor(dbctx.Context, string, uint) ([]*types.Revision, error) {
	return nil, nil
}
func (f *fakeRevisions) Count(dbctx.Context, string, uint) (int64, error) { return 0, nil }
func (f *fakeRevisions) Latest(dbctx.Context, string, uint) (*types.Revision, error) {
	return nil, nil
}
func (f *fakeRevisions) ListAfter(_ dbctx.Context, after uint, limit int) ([]*types.Revision, error) {
	var out []*types.Revision
	for _, r := range f.rows {
		if r.ID > after && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeBucket struct {
	objects map[string][]byte
}

func (b *fakeBucket) Name() string { return "test-bucket" }
func (b *fakeBucket) Upload(_ context.Context, key, _ string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}
func (b *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
func (b *fakeBucket) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}
func (b *fakeBucket) Close() error { return nil }

func testPipeline(t *testing.T, n int, bucket *fakeBucket) *Pipeline {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	revs := &fakeRevisions{}
	for i := 1; i <= n; i++ {
		revs.rows = append(revs.rows, &types.Revision{ID: uint(i), EntityKind: "bulletin", EntityID: 1, Data: []byte(`{}`)})
	}
	return New(log, revs, bucket)
}

func TestWriteRevisionsPagesThroughAll(t *testing.T) {
	p := testPipeline(t, pageSize+5, &fakeBucket{objects: map[string][]byte{}})
	var buf bytes.Buffer
	calls := 0
	n, err := p.writeRevisions(context.Background(), &buf, func(int) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, pageSize+5, n)
	assert.Equal(t, 1, calls)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, pageSize+5)
	var last types.Revision
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, uint(pageSize+5), last.ID)
}

func TestPruneKeepsNewest(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{"other/file": nil}}
	for i := 0; i < Keep+3; i++ {
		bucket.objects[fmt.Sprintf("%s2026010%dT000000Z.jsonl", KeyPrefix, i)] = nil
	}
	p := testPipeline(t, 0, bucket)

	n, err := p.prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	keys, _ := bucket.ListKeys(context.Background(), KeyPrefix)
	assert.Len(t, keys, Keep)
	assert.NotContains(t, bucket.objects, KeyPrefix+"20260100T000000Z.jsonl")
	assert.Contains(t, bucket.objects, "other/file")
}

func TestNowKeySortsChronologically(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format("20060102T150405Z")
	b := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC).Format("20060102T150405Z")
	assert.Less(t, a, b)
}
