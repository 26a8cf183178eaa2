package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(t *testing.T) *Item {
	t.Helper()
	return &Item{
		Info:    json.RawMessage(`{"title":"Relaxing Jazz Radio"}`),
		Streams: json.RawMessage(`[{"itag":"140"}]`),
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1679800000, 0)

	require.NoError(t, Write(dir, "kHwmzef842g", 1679810403, testItem(t)))

	item, err := Read(dir, "kHwmzef842g", now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Relaxing Jazz Radio"}`, string(item.Info))

	// The file follows the {expire}~{key} convention.
	paths, _ := filepath.Glob(filepath.Join(dir, "*"))
	require.Len(t, paths, 1)
	assert.Equal(t, "1679810403~kHwmzef842g", filepath.Base(paths[0]))
}

func TestReadMissing(t *testing.T) {
	_, err := Read(t.TempDir(), "kHwmzef842g", time.Now())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestReadExpiredItemIsDeleted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "kHwmzef842g", 1679810403, testItem(t)))

	after := time.Unix(1679810403, 0)
	_, err := Read(dir, "kHwmzef842g", after)
	assert.ErrorIs(t, err, ErrItemNotFound)

	paths, _ := filepath.Glob(filepath.Join(dir, "*"))
	assert.Empty(t, paths)
}

func TestReadKeepsOnlyLatestForKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1679800000~kHwmzef842g"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1679810403~kHwmzef842g"), []byte(`{"info":{},"streams":[]}`), 0o644))

	_, err := Read(dir, "kHwmzef842g", time.Unix(1679800500, 0))
	require.NoError(t, err)

	paths, _ := filepath.Glob(filepath.Join(dir, "*"))
	require.Len(t, paths, 1)
	assert.Equal(t, "1679810403~kHwmzef842g", filepath.Base(paths[0]))
}

func TestWriteReplacesExistingEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "kHwmzef842g", 1679810403, testItem(t)))
	require.NoError(t, Write(dir, "kHwmzef842g", 1679899999, testItem(t)))

	paths, _ := filepath.Glob(filepath.Join(dir, "*"))
	require.Len(t, paths, 1)
	assert.Equal(t, "1679899999~kHwmzef842g", filepath.Base(paths[0]))
}

func TestRemoveExpired(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "expired1", 100, testItem(t)))
	require.NoError(t, Write(dir, "expired2", 200, testItem(t)))
	require.NoError(t, Write(dir, "alive", 1679810403, testItem(t)))

	require.NoError(t, RemoveExpired(dir, time.Unix(1679800000, 0)))

	paths, _ := filepath.Glob(filepath.Join(dir, "*"))
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "alive")
}

func TestOtherKeysAreUntouchedByRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "other", 1679810403, testItem(t)))

	_, err := Read(dir, "kHwmzef842g", time.Unix(1679800000, 0))
	assert.ErrorIs(t, err, ErrItemNotFound)

	paths, _ := filepath.Glob(filepath.Join(dir, "*"))
	assert.Len(t, paths, 1)
}
