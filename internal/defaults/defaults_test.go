package defaults

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_ListsBundledAssets(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)

	assert.Contains(t, files, "prompts/dreaming_agent.md")
	assert.Contains(t, files, "prompts/execution_agent.md")
	assert.Contains(t, files, "templates/commit/default.txt")
	assert.IsIncreasing(t, files)
}

func TestMaterialize_WritesOnlyWhatChanged(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/cache/jiro/0.1.0/assets"

	files, err := Files()
	require.NoError(t, err)

	n, err := Materialize(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, len(files), n)

	data, err := afero.ReadFile(fsys, filepath.Join(dir, "prompts", "execution_agent.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Execution Agent")

	n, err = Materialize(fsys, dir)
	require.NoError(t, err)
	assert.Zero(t, n)

	stale := filepath.Join(dir, "templates", "commit", "default.txt")
	require.NoError(t, afero.WriteFile(fsys, stale, []byte("tampered"), 0644))
	n, err = Materialize(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVerify_ReportsMissing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/opt/jiro/assets"
	_, err := Materialize(fsys, dir)
	require.NoError(t, err)

	missing, err := Verify(fsys, dir)
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, fsys.Remove(filepath.Join(dir, "prompts", "review_agent.md")))
	missing, err = Verify(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"prompts/review_agent.md"}, missing)
}

func TestCacheDir_UsesXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	dir, err := CacheDir("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-cache", "jiro", "1.2.3", "assets"), dir)

	dir, err = CacheDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-cache", "jiro", "dev", "assets"), dir)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Dreaming Agent", Describe("prompts/dreaming_agent.md"))
	assert.Empty(t, Describe("templates/commit/default.txt"))
	assert.Empty(t, Describe("prompts/unknown.md"))
}
