package errors

import (
	"errors"
	"fmt"
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageConnect  Stage = "connect"
	StageQuery    Stage = "query"
	StageAssemble Stage = "assemble"
	StageEncode   Stage = "encode"
	StageWrite    Stage = "write"
	StageUpload   Stage = "upload"
	StageUnknown  Stage = "unknown"
)

// Error represents a failed run.
//
// All of them are fatal: the stage and document are only there for the log line.
type Error struct {
	Stage Stage
	Doc   Doc   // The document being handled, if any
	Err   error // The error this wraps
}

// Doc is the filename of the document an error relates to.
type Doc string

func (e *Error) Error() string {
	if e.Doc != "" {
		return fmt.Sprintf("%s %s: %s", e.Stage, e.Doc, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(args ...any) *Error {
	ret := &Error{
		Stage: StageUnknown,
		Err:   nil,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case Stage:
			ret.Stage = arg
		case Doc:
			ret.Doc = arg
		}
	}

	return ret
}

// StageOf reports the stage of the first [Error] in the chain.
func StageOf(err error) Stage {
	var e *Error
	if !errors.As(err, &e) {
		return StageUnknown
	}

	return e.Stage
}
