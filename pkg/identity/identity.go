// Package identity models commit signatures and the contributors behind them.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when an identity string carries neither a name nor an email.
var ErrEmpty = errors.New("identity has neither name nor email")

var nameEmailRegexp = regexp.MustCompile(`(?P<name>[^<]*[^< ])? *(?:<(?P<email>.*)>)?`)

// Identity is a name and/or email parsed from a "Name <email>" signature.
// Empty strings mean the part is absent.
type Identity struct {
	Name        string `json:"name,omitempty"         yaml:"name,omitempty"`
	Email       string `json:"email,omitempty"        yaml:"email,omitempty"`
	GithubLogin string `json:"github_login,omitempty" yaml:"github_login,omitempty"`
}

// New builds an identity from a signature's name and email.
func New(name, email string) Identity {
	return Identity{Name: name, Email: email}
}

// Parse reads "Name <email>", "<email>" or "Name". Unparseable input yields
// the zero Identity.
func Parse(s string) Identity {
	match := nameEmailRegexp.FindStringSubmatch(s)
	if match == nil {
		return Identity{}
	}

	return Identity{
		Name:  match[nameEmailRegexp.SubexpIndex("name")],
		Email: match[nameEmailRegexp.SubexpIndex("email")],
	}
}

// ParseStrict is Parse, failing when nothing usable was found.
func ParseStrict(s string) (Identity, error) {
	id := Parse(strings.TrimSpace(s))
	if id.IsZero() {
		return Identity{}, fmt.Errorf("%w: %q", ErrEmpty, s)
	}

	return id, nil
}

// Equal compares by name when either side lacks an email, otherwise by email only.
func (i Identity) Equal(other Identity) bool {
	if i.Email == "" || other.Email == "" {
		return i.Name == other.Name
	}

	return i.Email == other.Email
}

// SameEmail reports whether both identities have an email and the emails match.
func (i Identity) SameEmail(other Identity) bool {
	return i.Email != "" && other.Email != "" && i.Email == other.Email
}

// IsZero reports whether the identity has neither name nor email.
func (i Identity) IsZero() bool {
	return i.Name == "" && i.Email == ""
}

// String renders the identity back into signature form.
func (i Identity) String() string {
	switch {
	case i.Name != "" && i.Email != "":
		return i.Name + " <" + i.Email + ">"
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return "<" + i.Email + ">"
	default:
		return ""
	}
}

// UnmarshalYAML accepts either a "Name <email>" scalar or a mapping with
// name/email/github_login keys.
func (i *Identity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		id, err := ParseStrict(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}

		*i = id

		return nil
	}

	type plain Identity

	var decoded plain

	err := node.Decode(&decoded)
	if err != nil {
		return fmt.Errorf("decode identity: %w", err)
	}

	*i = Identity(decoded)

	return nil
}

// MarshalYAML writes the scalar form unless a GitHub login must be kept.
func (i Identity) MarshalYAML() (any, error) {
	if i.GithubLogin != "" {
		type plain Identity

		return plain(i), nil
	}

	return i.String(), nil
}
