package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codealong/pkg/config"
)

type fakeRepo struct {
	path    string
	workdir string
	remotes map[string]string
}

func (f fakeRepo) Path() string    { return f.path }
func (f fakeRepo) WorkDir() string { return f.workdir }

func (f fakeRepo) RemoteURL(name string) (string, error) {
	url, ok := f.remotes[name]
	if !ok {
		return "", errors.New("remote not found")
	}

	return url, nil
}

func TestGithubNameFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"git@github.com:ghempton/codealong.git", "ghempton/codealong", true},
		{"https://github.com/ghempton/codealong.git", "ghempton/codealong", true},
		{"https://github.com/ghempton/codealong", "ghempton/codealong", true},
		{"ssh://git@github.com/ghempton/codealong.git", "ghempton/codealong", true},
		{"https://gitlab.com/ghempton/codealong.git", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := config.GithubNameFromURL(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestFromRepositoryWithoutConfigFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "widgets")
	require.NoError(t, os.Mkdir(dir, 0o755))

	rc, err := config.FromRepository(fakeRepo{
		path:    filepath.Join(dir, ".git"),
		workdir: dir,
		remotes: map[string]string{"origin": "git@github.com:acme/widgets.git"},
	})
	require.NoError(t, err)

	assert.Equal(t, "widgets", rc.Repo.Name)
	assert.Equal(t, "acme/widgets", rc.Repo.GithubName)
	assert.Equal(t, "git@github.com:acme/widgets.git", rc.Repo.CloneURL)
	assert.Equal(t, config.DefaultChurnCutoff, rc.Config.ChurnCutoff)
	assert.Equal(t, "https://github.com/acme/widgets/commit/abc", rc.Repo.GithubCommitURL("abc"))
}

func TestFromRepositoryReadsConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := "github: other/name\nrepo_name: gadgets\nchurn_cutoff: 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.RepoConfigFile), []byte(doc), 0o600))

	rc, err := config.FromRepository(fakeRepo{
		path:    filepath.Join(dir, ".git"),
		workdir: dir,
		remotes: map[string]string{"origin": "git@github.com:acme/widgets.git"},
	})
	require.NoError(t, err)

	assert.Equal(t, "gadgets", rc.Repo.Name)
	assert.Equal(t, "other/name", rc.Repo.GithubName)
	assert.Equal(t, 7, rc.Config.ChurnCutoff)
}

func TestFromRepositoryBare(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "mirror.git")
	require.NoError(t, os.Mkdir(dir, 0o755))

	rc, err := config.FromRepository(fakeRepo{path: dir})
	require.NoError(t, err)

	assert.Equal(t, "mirror", rc.Repo.Name)
	assert.Empty(t, rc.Repo.GithubName)
	assert.Empty(t, rc.Repo.GithubCommitURL("abc"))
}

func TestFromRepositoryInvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.RepoConfigFile), []byte("churn_cutoff: -3\n"), 0o600))

	_, err := config.FromRepository(fakeRepo{workdir: dir})
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
