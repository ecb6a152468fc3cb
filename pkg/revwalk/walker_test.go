package revwalk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codealong/pkg/config"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
	"github.com/Sumatoshi-tech/codealong/pkg/gitlib/gittest"
	"github.com/Sumatoshi-tech/codealong/pkg/revwalk"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type history struct {
	repo    *gittest.Repo
	commits []gitlib.Hash
	side    gitlib.Hash
}

// newHistory builds three commits on main a day apart, the middle one by an
// unknown author, plus one commit on refs/heads/side.
func newHistory(t *testing.T) history {
	t.Helper()

	r := gittest.New(t)
	alice := gittest.Sig("Alice", "alice@example.com", base)

	first := r.Commit(gittest.CommitSpec{Author: alice, Files: map[string]string{"a.txt": "1\n"}})
	second := r.Commit(gittest.CommitSpec{
		Author:  gittest.Sig("Stranger", "stranger@example.com", base.Add(24*time.Hour)),
		Files:   map[string]string{"a.txt": "1\n2\n"},
		Parents: []gitlib.Hash{first},
	})

	alice.When = base.Add(48 * time.Hour)
	third := r.Commit(gittest.CommitSpec{
		Author:  alice,
		Files:   map[string]string{"a.txt": "1\n2\n3\n"},
		Parents: []gitlib.Hash{second},
	})

	alice.When = base.Add(72 * time.Hour)
	side := r.Commit(gittest.CommitSpec{
		Author:  alice,
		Files:   map[string]string{"a.txt": "1\n", "b.txt": "b\n"},
		Parents: []gitlib.Hash{first},
		Branch:  "refs/heads/side",
	})

	return history{repo: r, commits: []gitlib.Hash{first, second, third}, side: side}
}

func knownAlice(t *testing.T) *config.WorkingConfig {
	t.Helper()

	cfg, err := config.ParseBytes([]byte(`
contributors:
  - id: alice
    identities: ["Alice <alice@example.com>"]
`))
	require.NoError(t, err)

	wc, err := config.NewWorkingConfig(cfg)
	require.NoError(t, err)

	return wc
}

func TestRepoAnalyzer_Walk(t *testing.T) {
	t.Parallel()

	h := newHistory(t)
	first, second, third := h.commits[0], h.commits[1], h.commits[2]

	tests := []struct {
		name string
		refs []string
		opts revwalk.Options
		want []gitlib.Hash
	}{
		{"head by default", nil, revwalk.Options{}, []gitlib.Hash{third, second, first}},
		{"since", nil, revwalk.Options{Since: base.Add(time.Hour)}, []gitlib.Hash{third, second}},
		{"known authors only", nil, revwalk.Options{IgnoreUnknownAuthors: true}, []gitlib.Hash{third, first}},
		{"several refs", []string{"refs/heads/main", "refs/heads/side"}, revwalk.Options{}, []gitlib.Hash{h.side, third, second, first}},
		{"missing ref falls back to head", []string{"refs/remotes/origin/master"}, revwalk.Options{}, []gitlib.Hash{third, second, first}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := config.RepoInfo{Name: "history", Refs: tt.refs}
			ra := revwalk.NewRepoAnalyzer(h.repo.Open(), knownAlice(t), info, tt.opts, nil)

			got, err := ra.Hashes(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			n, err := ra.Count(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
		})
	}
}

func TestRepoAnalyzer_WalkStopsOnError(t *testing.T) {
	t.Parallel()

	h := newHistory(t)
	ra := revwalk.NewRepoAnalyzer(h.repo.Open(), knownAlice(t), config.RepoInfo{}, revwalk.Options{}, nil)

	stop := errors.New("stop")
	calls := 0

	err := ra.Walk(context.Background(), func(gitlib.Hash) error {
		calls++

		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestRepoAnalyzer_WalkCanceled(t *testing.T) {
	t.Parallel()

	h := newHistory(t)
	ra := revwalk.NewRepoAnalyzer(h.repo.Open(), knownAlice(t), config.RepoInfo{}, revwalk.Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ra.Hashes(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
