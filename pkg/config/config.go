// Package config resolves per-file and per-contributor analysis settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codealong/pkg/identity"
)

// Sentinel configuration errors.
var (
	ErrInvalidGlob     = errors.New("invalid glob pattern")
	ErrInvalidWeight   = errors.New("glob weight must not be negative")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrDuplicateAuthor = errors.New("duplicate author entry")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// GlobConfig is the configuration attached to one glob pattern.
type GlobConfig struct {
	Tags   []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Weight float64  `json:"weight"         yaml:"weight"           validate:"gte=0"`
	Ignore bool     `json:"ignore"         yaml:"ignore"`
}

// UnmarshalYAML applies the default weight before decoding.
func (g *GlobConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain GlobConfig

	decoded := plain{Weight: DefaultWeight}

	err := node.Decode(&decoded)
	if err != nil {
		return err
	}

	*g = GlobConfig(decoded)

	return nil
}

// GlobEntry pairs a pattern with its configuration.
type GlobEntry struct {
	Pattern string `validate:"required"`
	Config  GlobConfig
}

// FileGlobs is an ordered glob -> config mapping. Declaration order matters
// for weight resolution, so it is decoded from the YAML node directly.
type FileGlobs []GlobEntry

// UnmarshalYAML keeps the mapping's declaration order.
func (f *FileGlobs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: files must be a mapping (line %d)", ErrInvalidConfig, node.Line)
	}

	entries := make(FileGlobs, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		var gc GlobConfig

		err := node.Content[i+1].Decode(&gc)
		if err != nil {
			return fmt.Errorf("files[%q]: %w", node.Content[i].Value, err)
		}

		entries = append(entries, GlobEntry{Pattern: node.Content[i].Value, Config: gc})
	}

	*f = entries

	return nil
}

// MarshalYAML writes the globs back as an ordered mapping.
func (f FileGlobs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, entry := range f {
		value := &yaml.Node{}

		err := value.Encode(entry.Config)
		if err != nil {
			return nil, err
		}

		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Pattern},
			value,
		)
	}

	return node, nil
}

// Lookup returns the entry for an exact pattern.
func (f FileGlobs) Lookup(pattern string) (GlobConfig, bool) {
	idx := slices.IndexFunc(f, func(e GlobEntry) bool { return e.Pattern == pattern })
	if idx < 0 {
		return GlobConfig{}, false
	}

	return f[idx].Config, true
}

// ContributorConfig is a configured contributor plus the tags its work carries.
type ContributorConfig struct {
	identity.Contributor `yaml:",inline"`

	Tags   []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Ignore bool     `json:"ignore"         yaml:"ignore"`
}

// AuthorConfig is the legacy map-style contributor entry keyed by signature.
type AuthorConfig struct {
	Aliases []identity.Identity `yaml:"aliases"`
	Tags    []string            `yaml:"tags"`
	Ignore  bool                `yaml:"ignore"`
}

// Config mirrors the .codealong.yml schema.
//
//	github: owner/repo
//	refs: [refs/heads/main]
//	churn_cutoff: 14
//	files:
//	  "**/*.rb":
//	    tags: [ruby]
//	  "spec/**/*_spec.rb":
//	    tags: [ruby, rspec, test]
//	    weight: 0.5
//	contributors:
//	  - id: gordon
//	    identities: ["Gordon Hempton <ghempton@gmail.com>"]
//	    github_logins: [ghempton]
//	    teams: [apollo]
type Config struct {
	Github        string              `yaml:"github,omitempty"`
	RepoName      string              `yaml:"repo_name,omitempty"`
	Refs          []string            `yaml:"refs,omitempty"`
	MergeDefaults bool                `yaml:"merge_defaults"`
	ChurnCutoff   int                 `yaml:"churn_cutoff"     validate:"gt=0"`
	SkipVendored  bool                `yaml:"skip_vendored"`
	Files         FileGlobs           `yaml:"files,omitempty"  validate:"dive"`
	Contributors  []ContributorConfig `yaml:"contributors,omitempty"`
	Authors       yaml.Node           `yaml:"authors,omitempty"                json:"-"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		MergeDefaults: DefaultMergeDefaults,
		ChurnCutoff:   DefaultChurnCutoff,
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)

	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	err = cfg.foldAuthors()
	if err != nil {
		return Config{}, err
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (Config, error) {
	return Parse(bytes.NewReader(data))
}

// FromPath reads and parses a config file.
func FromPath(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field constraints and glob syntax.
func (c *Config) Validate() error {
	for _, entry := range c.Files {
		if !doublestar.ValidatePattern(entry.Pattern) {
			return fmt.Errorf("%w: %q", ErrInvalidGlob, entry.Pattern)
		}

		if entry.Config.Weight < 0 {
			return fmt.Errorf("%w: %q has weight %g", ErrInvalidWeight, entry.Pattern, entry.Config.Weight)
		}
	}

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for i, cc := range c.Contributors {
		if cc.ID == "" && len(cc.Identities) == 0 && len(cc.GithubLogins) == 0 {
			return fmt.Errorf("%w: contributors[%d] has no id, identity or login", ErrInvalidConfig, i)
		}
	}

	return nil
}

// Underlay places base's globs ahead of c's own so that c's entries are
// declared later and win on weight. Patterns c already declares are skipped.
func (c *Config) Underlay(base Config) {
	files := make(FileGlobs, 0, len(base.Files)+len(c.Files))

	for _, entry := range base.Files {
		if _, exists := c.Files.Lookup(entry.Pattern); !exists {
			files = append(files, entry)
		}
	}

	c.Files = append(files, c.Files...)
	c.Contributors = append(c.Contributors, base.Contributors...)
}

// foldAuthors converts the legacy `authors:` mapping into contributors.
func (c *Config) foldAuthors() error {
	if c.Authors.Kind == 0 {
		return nil
	}

	if c.Authors.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: authors must be a mapping", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Authors.Content)/2)

	for i := 0; i+1 < len(c.Authors.Content); i += 2 {
		key := c.Authors.Content[i].Value
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateAuthor, key)
		}

		seen[key] = true

		main, err := identity.ParseStrict(key)
		if err != nil {
			return fmt.Errorf("authors: %w", err)
		}

		var ac AuthorConfig

		err = c.Authors.Content[i+1].Decode(&ac)
		if err != nil {
			return fmt.Errorf("authors[%q]: %w", key, err)
		}

		c.Contributors = append(c.Contributors, ContributorConfig{
			Contributor: identity.Contributor{
				ID:         main.String(),
				Identities: append([]identity.Identity{main}, ac.Aliases...),
			},
			Tags:   ac.Tags,
			Ignore: ac.Ignore,
		})
	}

	c.Authors = yaml.Node{}

	return nil
}
