package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicTextRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore()
	path := filepath.Join(dir, "value.txt")

	require.NoError(t, store.WriteText(path, "hello"))
	assert.Equal(t, "hello", store.ReadText(path))

	// No .tmp sibling should remain after a successful write.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReadTextMissingFileReturnsEmpty(t *testing.T) {
	store := NewFileStore()
	assert.Equal(t, "", store.ReadText(filepath.Join(t.TempDir(), "missing.txt")))
}

func TestSignalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore()
	path := filepath.Join(dir, "sig.txt")

	require.NoError(t, store.WriteSignal(path, 3.25))
	assert.InDelta(t, 3.25, store.ReadSignal(path, 0), 1e-9)
	assert.Equal(t, 0.0, store.ReadSignal(filepath.Join(dir, "nope.txt"), 0))
}

func TestIntSignalToleratesFloatFormat(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore()
	path := filepath.Join(dir, "level.txt")
	require.NoError(t, store.WriteText(path, "3.0"))
	assert.Equal(t, 3, store.ReadIntSignal(path, -1))
}

func TestJSONLAppendAndReadSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore()
	path := filepath.Join(dir, "journal.jsonl")

	require.NoError(t, store.AppendJSONL(path, map[string]any{"a": 1}))
	require.NoError(t, store.AppendJSONL(path, map[string]any{"a": 2}))
	// Inject a corrupt line directly.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, _ = f.WriteString("not json\n")
	f.Close()
	require.NoError(t, store.AppendJSONL(path, map[string]any{"a": 3}))

	recs := store.ReadJSONLines(path)
	require.Len(t, recs, 3)
	assert.EqualValues(t, 1, recs[0]["a"])
	assert.EqualValues(t, 3, recs[2]["a"])
}

func TestBuildCoinPathsBTCUsesRootOthersRequireExistingFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ETH"), 0755))

	paths := BuildCoinPaths(dir, []string{"BTC", "ETH", "DOGE"}, false)
	require.Contains(t, paths, "BTC")
	require.Contains(t, paths, "ETH")
	require.NotContains(t, paths, "DOGE") // folder doesn't exist yet

	assert.Equal(t, dir, paths["BTC"].Base)
	assert.Equal(t, filepath.Join(dir, "ETH"), paths["ETH"].Base)

	withCreate := BuildCoinPaths(dir, []string{"DOGE"}, true)
	require.Contains(t, withCreate, "DOGE")
	info, err := os.Stat(filepath.Join(dir, "DOGE"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
