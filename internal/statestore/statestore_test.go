package statestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	mtime := time.Unix(1700000000, 0).UTC()
	return []Record{
		{Path: "/w/a", ModTime: mtime, Size: 10},
		{Path: "/w/b", ModTime: mtime.Add(time.Minute), Size: 20},
		{Path: "/w/gone", Removed: true},
	}
}

func assertRecordsMatch(t *testing.T, want, got []Record) {
	t.Helper()
	require.Len(t, got, len(want))

	byPath := make(map[string]Record, len(got))
	for _, rec := range got {
		byPath[rec.Path] = rec
	}
	for _, rec := range want {
		loaded, ok := byPath[rec.Path]
		require.True(t, ok, "missing record %s", rec.Path)
		assert.Equal(t, rec.Size, loaded.Size)
		assert.Equal(t, rec.Removed, loaded.Removed)
		assert.True(t, rec.ModTime.Equal(loaded.ModTime), "mtime mismatch for %s", rec.Path)
	}
}

func TestJSONFile_RoundTrip(t *testing.T) {
	store := NewJSONFile(filepath.Join(t.TempDir(), "state.json"))
	defer store.Close()

	want := sampleRecords()
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assertRecordsMatch(t, want, got)
}

func TestJSONFile_LoadMissingFileIsEmpty(t *testing.T) {
	store := NewJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONFile_LoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONFile(path).Load()
	assert.Error(t, err)
}

func TestJSONFile_SaveReplacesWholesale(t *testing.T) {
	store := NewJSONFile(filepath.Join(t.TempDir(), "state.json"))

	require.NoError(t, store.Save(sampleRecords()))
	require.NoError(t, store.Save([]Record{{Path: "/w/only", Size: 1, ModTime: time.Now()}}))

	got, err := store.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/w/only", got[0].Path)
}

func TestBolt_RoundTrip(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	want := sampleRecords()
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assertRecordsMatch(t, want, got)
}

func TestBolt_SaveReplacesWholesale(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(sampleRecords()))
	require.NoError(t, store.Save(nil))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := OpenBolt(path)
	require.NoError(t, err)
	want := sampleRecords()
	require.NoError(t, store.Save(want))
	require.NoError(t, store.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load()
	require.NoError(t, err)
	assertRecordsMatch(t, want, got)
}

func TestOpen_SelectsStoreByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonStore, err := Open(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	defer jsonStore.Close()
	assert.IsType(t, &JSONFile{}, jsonStore)

	boltStore, err := Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	defer boltStore.Close()
	assert.IsType(t, &Bolt{}, boltStore)
}
