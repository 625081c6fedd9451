package ingest

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive_SaveAndLatest(t *testing.T) {
	a := NewArchive(t.TempDir(), zerolog.Nop())

	batch := []map[string]interface{}{
		{"id": int64(1), "description": "A", "debit": "$10.00"},
		{"id": int64(2), "description": "B", "credit": "$20.00"},
	}

	path, err := a.Save(batch)
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, loadedPath, err := a.Latest()
	require.NoError(t, err)
	assert.Equal(t, path, loadedPath)
	require.Len(t, loaded, 2)
	assert.Equal(t, "A", loaded[0]["description"])
}

func TestArchive_LatestWithoutSnapshots(t *testing.T) {
	a := NewArchive(t.TempDir(), zerolog.Nop())
	_, _, err := a.Latest()
	assert.Error(t, err)
}
