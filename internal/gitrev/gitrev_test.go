package gitrev

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithCommit(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	file := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(file, []byte("catalog\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir, hash.String()
}

func TestHeadSHA(t *testing.T) {
	dir, want := initRepoWithCommit(t)

	assert.Equal(t, want, HeadSHA(dir))

	// resolution walks up from nested paths
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	assert.Equal(t, want, HeadSHA(nested))
}

func TestHeadSHAOutsideRepo(t *testing.T) {
	assert.Equal(t, "", HeadSHA(t.TempDir()))
}

func TestShortSHA(t *testing.T) {
	dir, want := initRepoWithCommit(t)
	assert.Equal(t, want[:7], ShortSHA(dir))
	assert.Equal(t, "", ShortSHA(t.TempDir()))
}
