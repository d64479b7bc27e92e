package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchivePutGetRoundTrip(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	_, ok := archive.Get("CERT-1234")
	assert.False(t, ok)

	require.NoError(t, archive.Put("CERT-1234", []byte("%PDF-1.4")))

	data, ok := archive.Get("CERT-1234")
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	require.NoError(t, archive.Remove("CERT-1234"))
	_, ok = archive.Get("CERT-1234")
	assert.False(t, ok)
}

func TestArchiveSanitizesSerial(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewArchive(dir)
	require.NoError(t, err)

	require.NoError(t, archive.Put("../evil", []byte("x")))

	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(dir, "___evil.pdf"), matches[0])
}

func TestArchiveNilIsPassThrough(t *testing.T) {
	var archive *Archive

	_, ok := archive.Get("CERT-1234")
	assert.False(t, ok)
	assert.NoError(t, archive.Put("CERT-1234", []byte("x")))
	assert.NoError(t, archive.Remove("CERT-1234"))
}
