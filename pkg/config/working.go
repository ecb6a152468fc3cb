package config

import (
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/codealong/pkg/identity"
)

// FileConfig is the merged configuration of every glob matching one path.
type FileConfig struct {
	Tags   []string
	Weight float64
	Ignore bool
}

// WorkingConfig is a resolved configuration ready for lookups. It is
// immutable after construction and safe for concurrent use.
type WorkingConfig struct {
	config Config
}

// NewWorkingConfig underlays the built-in defaults when cfg asks for them.
func NewWorkingConfig(cfg Config) (*WorkingConfig, error) {
	if cfg.MergeDefaults {
		base, err := Base()
		if err != nil {
			return nil, err
		}

		cfg.Underlay(base)
	}

	if cfg.ChurnCutoff <= 0 {
		cfg.ChurnCutoff = DefaultChurnCutoff
	}

	return &WorkingConfig{config: cfg}, nil
}

// DefaultWorkingConfig resolves the default configuration.
func DefaultWorkingConfig() *WorkingConfig {
	wc, err := NewWorkingConfig(Default())
	if err != nil {
		// base.yml is embedded; a parse failure is a build defect.
		panic(err)
	}

	return wc
}

// Config returns the underlying merged configuration.
func (w *WorkingConfig) Config() Config {
	return w.config
}

// ChurnCutoff is the blame search window in days.
func (w *WorkingConfig) ChurnCutoff() int {
	return w.config.ChurnCutoff
}

// ConfigForFile merges every glob matching path. Tags are unioned, the
// weight comes from the last declared match and ignore is set if any match
// sets it. The second result is false when nothing matches.
func (w *WorkingConfig) ConfigForFile(path string) (FileConfig, bool) {
	var (
		fc      FileConfig
		matched bool
	)

	for _, entry := range w.config.Files {
		ok, err := doublestar.Match(entry.Pattern, path)
		if err != nil || !ok {
			continue
		}

		matched = true

		for _, tag := range entry.Config.Tags {
			if !slices.Contains(fc.Tags, tag) {
				fc.Tags = append(fc.Tags, tag)
			}
		}

		fc.Weight = entry.Config.Weight
		fc.Ignore = fc.Ignore || entry.Config.Ignore
	}

	if w.config.SkipVendored && enry.IsVendor(path) {
		if !matched {
			fc.Weight = DefaultWeight
		}

		fc.Ignore = true
		matched = true
	}

	if !matched {
		return FileConfig{}, false
	}

	slices.Sort(fc.Tags)

	return fc, true
}

// ConfigForIdentity returns the first contributor with an alias equal to id.
func (w *WorkingConfig) ConfigForIdentity(id identity.Identity) (*ContributorConfig, bool) {
	for i := range w.config.Contributors {
		if w.config.Contributors[i].Matches(id) {
			return &w.config.Contributors[i], true
		}
	}

	return nil, false
}

// ConfigForGithubLogin returns the first contributor listing login.
func (w *WorkingConfig) ConfigForGithubLogin(login string) (*ContributorConfig, bool) {
	for i := range w.config.Contributors {
		if w.config.Contributors[i].HasGithubLogin(login) {
			return &w.config.Contributors[i], true
		}
	}

	return nil, false
}

// ContributorForIdentity returns the configured contributor or a synthetic
// one built from id.
func (w *WorkingConfig) ContributorForIdentity(id identity.Identity) identity.Contributor {
	if cc, ok := w.ConfigForIdentity(id); ok {
		return cc.Contributor
	}

	return identity.FromIdentity(id)
}

// ContributorForGithubLogin returns the configured contributor or a
// synthetic one built from login.
func (w *WorkingConfig) ContributorForGithubLogin(login string) identity.Contributor {
	if cc, ok := w.ConfigForGithubLogin(login); ok {
		return cc.Contributor
	}

	return identity.FromGithubLogin(login)
}

// IsKnown reports whether id belongs to a configured contributor.
func (w *WorkingConfig) IsKnown(id identity.Identity) bool {
	_, ok := w.ConfigForIdentity(id)

	return ok
}

// IsGithubLoginKnown reports whether login belongs to a configured contributor.
func (w *WorkingConfig) IsGithubLoginKnown(login string) bool {
	_, ok := w.ConfigForGithubLogin(login)

	return ok
}
