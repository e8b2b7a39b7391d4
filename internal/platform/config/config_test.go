package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, path, body string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestDefaultsWhenFileMissing(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "settings.json"), nil)
	require.NoError(t, err)

	s := m.Get()
	assert.False(t, s.AccessControlRestrictive)
	assert.Equal(t, 90, s.ActivitiesRetentionDays)
	assert.Equal(t, 10, s.BulkChunkSize)
	assert.Equal(t, 250*time.Millisecond, s.BulkChunkPause())
	assert.True(t, s.ActivityEnabled("update"))
	assert.False(t, s.ActivityEnabled("VIEW"))
}

func TestFileOverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	writeSettings(t, path, `{
		"ACCESS_CONTROL_RESTRICTIVE": true,
		"ACTIVITIES": {"VIEW": true},
		"ACTIVITIES_RETENTION": 10,
		"BULK_CHUNK_SIZE": 500
	}`, time.Now().Add(-time.Minute))

	m, err := NewManager(path, nil)
	require.NoError(t, err)
	s := m.Get()

	assert.True(t, s.AccessControlRestrictive)
	assert.True(t, s.ActivityEnabled("VIEW"))
	assert.True(t, s.ActivityEnabled("CREATE"), "unlisted actions keep their default")
	assert.Equal(t, MinActivitiesRetentionDays, s.ActivitiesRetentionDays)
	assert.Equal(t, 50, s.BulkChunkSize)
}

func TestReloadFreezesStaticKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	base := time.Now().Add(-time.Hour)
	writeSettings(t, path, `{"SESSION_RETENTION_PERIOD": 30}`, base)

	m, err := NewManager(path, nil)
	require.NoError(t, err)

	var seen *Settings
	m.OnChange(func(s *Settings) { seen = s })

	changed, err := m.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "unchanged mtime must not reload")

	writeSettings(t, path, `{"SESSION_RETENTION_PERIOD": 7, "ACCESS_CONTROL_RESTRICTIVE": true}`, base.Add(time.Minute))
	changed, err = m.Reload()
	require.NoError(t, err)
	require.True(t, changed)

	s := m.Get()
	assert.True(t, s.AccessControlRestrictive)
	assert.Equal(t, 30, s.SessionRetentionDays)
	assert.Same(t, s, seen)
}

func TestReloadKeepsSnapshotOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	base := time.Now().Add(-time.Hour)
	writeSettings(t, path, `{"ACCESS_CONTROL_RESTRICTIVE": true}`, base)
	m, err := NewManager(path, nil)
	require.NoError(t, err)

	writeSettings(t, path, `{not json`, base.Add(time.Minute))
	_, err = m.Reload()
	require.Error(t, err)
	assert.True(t, m.Get().AccessControlRestrictive)
}

func TestUpdateWritesThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	m, err := NewManager(path, nil)
	require.NoError(t, err)

	s, err := m.Update(map[string]any{"access_control_restrictive": true, "BULK_CHUNK_SIZE": 5})
	require.NoError(t, err)
	assert.True(t, s.AccessControlRestrictive)
	assert.Equal(t, 5, s.BulkChunkSize)

	again, err := NewManager(path, nil)
	require.NoError(t, err)
	assert.True(t, again.Get().AccessControlRestrictive)
	assert.Equal(t, 5, again.Get().BulkChunkSize)
}

func TestUpdateRejectsUnknownAndInvalid(t *testing.T) {
	m := NewStatic(nil)

	_, err := m.Update(map[string]any{"NOPE": 1})
	require.Error(t, err)

	_, err = m.Update(map[string]any{"SECURITY_ZXCVBN_MINIMUM_SCORE": 9})
	require.Error(t, err)
	assert.Equal(t, 3, m.Get().ZxcvbnMinimumScore)
}

func TestIsStatic(t *testing.T) {
	assert.True(t, IsStatic("etl_allowed_path"))
	assert.False(t, IsStatic("ACCESS_CONTROL_RESTRICTIVE"))
}
