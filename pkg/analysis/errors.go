// Package analysis classifies every changed line of a commit and folds the
// results into weighted, tag-bucketed work statistics.
package analysis

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/codealong/pkg/gitlib"
)

// ErrMissingLineNumber is returned for a context line without an old line number.
var ErrMissingLineNumber = errors.New("context line has no old line number")

// CommitError reports a commit whose analysis failed. Callers log the id and
// move on to the next commit.
type CommitError struct {
	ID  gitlib.Hash
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("analyze commit %s: %v", e.ID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// FileError reports the file delta being analyzed when an error occurred.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
