package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// RepoInfo describes the repository a commit belongs to.
type RepoInfo struct {
	Name       string   `json:"name"                  yaml:"name"`
	Fork       bool     `json:"fork"                  yaml:"fork"`
	GithubName string   `json:"github_name,omitempty" yaml:"github_name,omitempty"`
	CloneURL   string   `json:"clone_url,omitempty"   yaml:"clone_url,omitempty"`
	Refs       []string `json:"refs,omitempty"        yaml:"refs,omitempty"`
}

// GithubCommitURL links a commit on GitHub, or returns "" when the
// repository has no GitHub name.
func (r RepoInfo) GithubCommitURL(id string) string {
	if r.GithubName == "" {
		return ""
	}

	return "https://github.com/" + r.GithubName + "/commit/" + id
}

// RepoConfig is the per-repository analysis configuration.
type RepoConfig struct {
	Repo   RepoInfo
	Config Config
}

// RepoSource is the slice of a repository handle needed to locate its config.
type RepoSource interface {
	Path() string
	WorkDir() string
	RemoteURL(name string) (string, error)
}

var githubRemote = regexp.MustCompile(`github\.com[:/]([^/]+/[^/]+?)(?:\.git)?/?$`)

// GithubNameFromURL extracts "owner/repo" from a GitHub remote URL.
func GithubNameFromURL(url string) (string, bool) {
	m := githubRemote.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", false
	}

	return m[1], true
}

// FromRepository loads .codealong.yml from the repository root when present
// and fills in the repository name and GitHub name.
func FromRepository(repo RepoSource) (RepoConfig, error) {
	root := repo.WorkDir()
	if root == "" {
		root = repo.Path()
	}

	cfg := Default()

	path := filepath.Join(root, RepoConfigFile)

	_, err := os.Stat(path)

	switch {
	case err == nil:
		cfg, err = FromPath(path)
		if err != nil {
			return RepoConfig{}, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return RepoConfig{}, fmt.Errorf("stat %s: %w", path, err)
	}

	return newRepoConfig(cfg, root, repo), nil
}

// WithConfig builds a RepoConfig around an explicitly loaded config.
func WithConfig(cfg Config, repo RepoSource) RepoConfig {
	root := repo.WorkDir()
	if root == "" {
		root = repo.Path()
	}

	return newRepoConfig(cfg, root, repo)
}

func newRepoConfig(cfg Config, root string, repo RepoSource) RepoConfig {
	info := RepoInfo{Name: cfg.RepoName, GithubName: cfg.Github, Refs: slices.Clone(cfg.Refs)}

	if info.Name == "" {
		info.Name = strings.TrimSuffix(filepath.Base(filepath.Clean(root)), ".git")
	}

	if url, err := repo.RemoteURL("origin"); err == nil {
		info.CloneURL = url

		if info.GithubName == "" {
			if name, ok := GithubNameFromURL(url); ok {
				info.GithubName = name
			}
		}
	}

	return RepoConfig{Repo: info, Config: cfg}
}
