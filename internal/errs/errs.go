package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a deployment failure
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedInput
	KindModuleSourceMissing
	KindEncoding
	KindAccountLookup
	KindPreparation
	KindSubmission
	KindStorage
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindMalformedInput:      "MalformedInput",
	KindModuleSourceMissing: "ModuleSourceMissing",
	KindEncoding:            "EncodingFailure",
	KindAccountLookup:       "AccountLookupFailure",
	KindPreparation:         "TransactionPreparationFailure",
	KindSubmission:          "SubmissionFailure",
	KindStorage:             "StorageFailure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure. Input carries the offending literal for
// MalformedInput errors.
type Error struct {
	Kind  Kind
	Op    string
	Input string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap classifies err unless it already carries a kind
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return err
	}
	return New(kind, op, err)
}

// Malformed reports an unparsable user-supplied string
func Malformed(what, input string, err error) *Error {
	op := fmt.Sprintf("cannot parse %s %s", what, input)
	return &Error{Kind: KindMalformedInput, Op: op, Input: input, Err: err}
}

// ErrModuleSourceMissing is returned when neither module bytes nor a module hash is given
var ErrModuleSourceMissing = &Error{
	Kind: KindModuleSourceMissing,
	Op:   "must provide either a module (--wasm) or a module hash (--wasm-hash)",
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
