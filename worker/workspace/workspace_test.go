package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_CreateStageRemove(t *testing.T) {
	ws, err := New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	dir, err := ws.Create("job-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "job-1"), dir)

	path, n, err := ws.Stage(dir, "novel.epub", strings.NewReader("epub-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, filepath.Join(dir, "novel.epub"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "epub-bytes", string(data))

	require.NoError(t, ws.Remove(dir))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestWorkspace_CreateRejectsDuplicateAndTraversal(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = ws.Create("same")
	require.NoError(t, err)
	_, err = ws.Create("same")
	assert.Error(t, err)

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		_, err := ws.Create(id)
		assert.Error(t, err, id)
	}
}

func TestWorkspace_StageUsesBaseName(t *testing.T) {
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	dir, err := ws.Create("job")
	require.NoError(t, err)

	path, _, err := ws.Stage(dir, "../../secret/novel.epub", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "novel.epub"), path)

	_, _, err = ws.Stage(dir, "..", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestWorkspace_RemoveRefusesOutsideRoot(t *testing.T) {
	ws, err := New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	assert.Error(t, ws.Remove(ws.Root()))
	assert.Error(t, ws.Remove(filepath.Dir(ws.Root())))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "book.epub", SanitizeFilename(`C:\Users\me\book.epub`))
	assert.Equal(t, "book.epub", SanitizeFilename("book.epub"))
	assert.Equal(t, "", SanitizeFilename("/"))
	assert.Equal(t, "", SanitizeFilename(".."))
}
