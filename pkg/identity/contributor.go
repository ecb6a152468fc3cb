package identity

import "slices"

// Contributor is a person known by one or more identities and GitHub logins.
type Contributor struct {
	ID           string     `json:"id"                      yaml:"id"`
	Identities   []Identity `json:"identities,omitempty"    yaml:"identities,omitempty"`
	GithubLogins []string   `json:"github_logins,omitempty" yaml:"github_logins,omitempty"`
	Teams        []string   `json:"teams,omitempty"         yaml:"teams,omitempty"`
}

// Person is the flattened subset of a Contributor attached to every event.
type Person struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	GithubLogin string   `json:"github_login,omitempty"`
	Teams       []string `json:"teams,omitempty"`
}

// FromIdentity builds an unconfigured contributor for a raw identity.
func FromIdentity(id Identity) Contributor {
	return Contributor{
		ID:         id.String(),
		Identities: []Identity{id},
	}
}

// FromGithubLogin builds an unconfigured contributor for a raw GitHub login.
func FromGithubLogin(login string) Contributor {
	return Contributor{
		ID:           login,
		GithubLogins: []string{login},
	}
}

// Partial flattens the contributor using its first identity and login.
func (c Contributor) Partial() Person {
	p := Person{ID: c.ID, Teams: slices.Clone(c.Teams)}

	if len(c.Identities) > 0 {
		p.Name = c.Identities[0].Name
		p.Email = c.Identities[0].Email
	}

	if len(c.GithubLogins) > 0 {
		p.GithubLogin = c.GithubLogins[0]
	}

	return p
}

// Matches reports whether any of the contributor's identities equals id.
func (c Contributor) Matches(id Identity) bool {
	return slices.ContainsFunc(c.Identities, id.Equal)
}

// HasGithubLogin reports whether login is one of the contributor's logins.
func (c Contributor) HasGithubLogin(login string) bool {
	return login != "" && slices.Contains(c.GithubLogins, login)
}

// IsDupe reports whether the two contributors share an identity.
func (c Contributor) IsDupe(other Contributor) bool {
	return slices.ContainsFunc(c.Identities, other.Matches)
}

// Merge folds other's identities, logins and teams into c without duplicates.
func (c *Contributor) Merge(other Contributor) {
	for _, id := range other.Identities {
		if !slices.Contains(c.Identities, id) {
			c.Identities = append(c.Identities, id)
		}
	}

	c.GithubLogins = appendUnique(c.GithubLogins, other.GithubLogins...)
	c.Teams = appendUnique(c.Teams, other.Teams...)
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}

	return dst
}
