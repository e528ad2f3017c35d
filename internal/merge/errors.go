package merge

import (
	"errors"
	"fmt"
)

// ErrNoSources is returned for a merge with an empty source list.
var ErrNoSources = errors.New("no source documents to merge")

// Stage identifies where in the merge a failure happened.
type Stage string

const (
	// StageParse: a source buffer is not a valid .docx package.
	StageParse Stage = "parse"
	// StageCopy: a body element or embedded image could not be
	// copied into the output.
	StageCopy Stage = "copy"
	// StageSerialize: the finished document could not be encoded.
	StageSerialize Stage = "serialize"
)

// Error is the single failure a merge surfaces. The merge is
// all-or-nothing; when an Error is returned no partial output exists.
type Error struct {
	Stage  Stage
	Source string // display name of the offending source, empty for serialization
	Err    error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("merge %s %q: %v", e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("merge %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func stageErr(stage Stage, source string, err error) *Error {
	return &Error{Stage: stage, Source: source, Err: err}
}
