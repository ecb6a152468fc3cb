// Package blame attributes lines of a file at a revision to the commits that
// last touched them, within a churn cutoff window.
package blame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

// Sentinel causes wrapped by Error.
var (
	ErrSpawn          = errors.New("cannot start blame process")
	ErrMalformed      = errors.New("malformed blame record")
	ErrRead           = errors.New("cannot read blame output")
	ErrExit           = errors.New("blame process failed")
	ErrUnknownBackend = errors.New("unknown blame backend")
)

// Backend names.
const (
	BackendProcess = "process"
	BackendNative  = "native"
)

const day = 24 * time.Hour

// Error reports a failed blame of one path at one revision.
type Error struct {
	Path     string
	Revision gitlib.Hash
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("blame %s@%s: %v", e.Path, e.Revision.Short(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request identifies the file to blame.
type Request struct {
	Revision gitlib.Hash
	Path     string
	// ChurnCutoffDays bounds the search; older lines are unattributed.
	ChurnCutoffDays int
	// Anchor is the time the cutoff counts back from. Zero means now.
	Anchor time.Time
}

// Cutoff is the oldest commit time that still attributes a line.
func (r Request) Cutoff() time.Time {
	anchor := r.Anchor
	if anchor.IsZero() {
		anchor = time.Now()
	}

	return anchor.Add(-time.Duration(r.ChurnCutoffDays) * day)
}

// Session answers line lookups for one blamed file. Line numbers are
// 1-based positions in the blamed revision. A Session is not safe for
// concurrent use.
type Session interface {
	// Line returns the commit that last touched line n, or false when the
	// line is outside the cutoff window or does not exist.
	Line(n int) (gitlib.Hash, bool, error)
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Opener starts blame sessions against one repository.
type Opener interface {
	Open(ctx context.Context, req Request) (Session, error)
	Backend() string
}

// NewOpener returns the opener for a backend name.
func NewOpener(backend string, repo *gitlib.Repository) (Opener, error) {
	switch backend {
	case BackendProcess, "":
		return NewProcessOpener(repo.GitDir()), nil
	case BackendNative:
		return NewNativeOpener(repo), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
