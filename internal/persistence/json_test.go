package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront.chapter42.de/mailer/internal/attemptlog"
)

func sampleEntries() []attemptlog.Entry {
	ts := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	return []attemptlog.Entry{
		{ID: "1", Timestamp: ts, Type: "customer_confirmation", Recipient: "kunde@example.com", Subject: "Danke", OrderID: "o-1", Status: attemptlog.StatusFailed, Error: "dial tcp: timeout", Tier: "primary"},
		{ID: "2", Timestamp: ts.Add(time.Second), Type: "customer_confirmation", Recipient: "kunde@example.com", Subject: "Danke", OrderID: "o-1", Status: attemptlog.StatusSuccess, MessageID: "<abc@relay>", Tier: "fallback"},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "email_log.json")
	store := NewFileStore(path)
	ctx := context.Background()

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "missing file is an empty log")

	require.NoError(t, store.Save(ctx, sampleEntries()))

	entries, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries(), entries)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestFileStoreEmptyAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	entries, err := NewFileStore(empty).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))
	_, err = NewFileStore(corrupt).Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fehler beim Deserialisieren")
	assert.ErrorIs(t, err, attemptlog.ErrCorruptLog)
}

func TestFileStoreSaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	require.NoError(t, NewFileStore(path).Save(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestFileStoreUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// parent "directory" is a regular file
	err := NewFileStore(filepath.Join(blocker, "log.json")).Save(context.Background(), sampleEntries())
	assert.Error(t, err)
}

func TestNewFileStoreDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFileName, NewFileStore("").Path)
}
