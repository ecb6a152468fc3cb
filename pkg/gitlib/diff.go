package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// DeltaStatus is the kind of change a file delta records.
type DeltaStatus int

// Delta statuses.
const (
	DeltaUnmodified DeltaStatus = iota
	DeltaAdded
	DeltaDeleted
	DeltaModified
	DeltaRenamed
	DeltaCopied
	DeltaTypeChange
	DeltaOther
)

var deltaStatusNames = [...]string{
	DeltaUnmodified: "unmodified",
	DeltaAdded:      "added",
	DeltaDeleted:    "deleted",
	DeltaModified:   "modified",
	DeltaRenamed:    "renamed",
	DeltaCopied:     "copied",
	DeltaTypeChange: "typechange",
	DeltaOther:      "other",
}

func (s DeltaStatus) String() string {
	if s < 0 || int(s) >= len(deltaStatusNames) {
		return "other"
	}

	return deltaStatusNames[s]
}

func deltaStatusFrom(d git2go.Delta) DeltaStatus {
	switch d {
	case git2go.DeltaUnmodified:
		return DeltaUnmodified
	case git2go.DeltaAdded:
		return DeltaAdded
	case git2go.DeltaDeleted:
		return DeltaDeleted
	case git2go.DeltaModified:
		return DeltaModified
	case git2go.DeltaRenamed:
		return DeltaRenamed
	case git2go.DeltaCopied:
		return DeltaCopied
	case git2go.DeltaTypeChange:
		return DeltaTypeChange
	default:
		return DeltaOther
	}
}

// LineOrigin marks what a diff line represents.
type LineOrigin byte

// Line origins, matching libgit2's markers.
const (
	LineContext      LineOrigin = ' '
	LineAddition     LineOrigin = '+'
	LineDeletion     LineOrigin = '-'
	LineContextEOFNL LineOrigin = '='
	LineAddEOFNL     LineOrigin = '>'
	LineDelEOFNL     LineOrigin = '<'
	LineFileHeader   LineOrigin = 'F'
	LineHunkHeader   LineOrigin = 'H'
	LineBinary       LineOrigin = 'B'
)

// DiffDelta is one file's change within a diff.
type DiffDelta struct {
	Status  DeltaStatus
	OldPath string
	NewPath string
	OldHash Hash
	NewHash Hash
	Binary  bool
}

// Path returns the new path, falling back to the old one for deletions.
func (d DiffDelta) Path() string {
	if d.NewPath != "" {
		return d.NewPath
	}

	return d.OldPath
}

// DiffHunk is a contiguous changed region.
type DiffHunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Header   string
}

// DiffLine is one line of a hunk. OldLineno is -1 for additions and
// NewLineno is -1 for deletions.
type DiffLine struct {
	Origin    LineOrigin
	OldLineno int
	NewLineno int
	Content   string
}

// Callbacks for Diff.ForEach. A nil callback skips the level below it.
type (
	FileCallback func(DiffDelta) (HunkCallback, error)
	HunkCallback func(DiffHunk) (LineCallback, error)
	LineCallback func(DiffLine) error
)

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// NumDeltas returns the number of deltas in the diff.
func (d *Diff) NumDeltas() (int, error) {
	numDeltas, err := d.diff.NumDeltas()
	if err != nil {
		return 0, fmt.Errorf("get num deltas: %w", err)
	}

	return numDeltas, nil
}

// ForEach streams files, hunks and lines in diff order. An error returned
// by a callback stops the walk and is returned wrapped.
func (d *Diff) ForEach(onFile FileCallback) error {
	err := d.diff.ForEach(func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		onHunk, err := onFile(deltaFrom(delta))
		if err != nil || onHunk == nil {
			return nil, err
		}

		return func(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			onLine, err := onHunk(DiffHunk{
				OldStart: hunk.OldStart,
				OldLines: hunk.OldLines,
				NewStart: hunk.NewStart,
				NewLines: hunk.NewLines,
				Header:   hunk.Header,
			})
			if err != nil || onLine == nil {
				return nil, err
			}

			return func(line git2go.DiffLine) error {
				return onLine(DiffLine{
					Origin:    LineOrigin(line.Origin),
					OldLineno: line.OldLineno,
					NewLineno: line.NewLineno,
					Content:   line.Content,
				})
			}, nil
		}, nil
	}, git2go.DiffDetailLines)
	if err != nil {
		return fmt.Errorf("diff foreach: %w", err)
	}

	return nil
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d.diff == nil {
		return
	}

	// Free errors are non-actionable in cleanup.
	_ = d.diff.Free()
	d.diff = nil
}

func deltaFrom(delta git2go.DiffDelta) DiffDelta {
	return DiffDelta{
		Status:  deltaStatusFrom(delta.Status),
		OldPath: delta.OldFile.Path,
		NewPath: delta.NewFile.Path,
		OldHash: HashFromOid(delta.OldFile.Oid),
		NewHash: HashFromOid(delta.NewFile.Oid),
		Binary:  delta.Flags&git2go.DiffFlagBinary != 0,
	}
}
