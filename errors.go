package juxfix

import "fmt"

// Kind classifies per-file failures. The batch driver branches on Kind to
// decide summary bucketing, so the set is closed: every error produced by a
// fixture operation maps to exactly one Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnreadableInput
	KindMalformedXML
	KindUnsupportedRoot
	KindSigningError
	KindWriteFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnreadableInput:
		return "unreadable-input"
	case KindMalformedXML:
		return "malformed-xml"
	case KindUnsupportedRoot:
		return "unsupported-root"
	case KindSigningError:
		return "signing-error"
	case KindWriteFailure:
		return "write-failure"
	}
	return "unknown"
}

// InputError wraps a failure to read a fixture from disk.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return fmt.Sprintf("unreadable input: %v", e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// ParseError wraps an XML well-formedness failure.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("malformed XML: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedRootError reports a document whose root tag is outside the
// accepted set. The file is skipped and counted as failed; it is never a
// crash.
type UnsupportedRootError struct {
	Tag string
}

func (e *UnsupportedRootError) Error() string {
	return fmt.Sprintf("unsupported root element %q (want %s or %s)", e.Tag, RootTestsuite, RootTestsuites)
}

// SigningError wraps an unusable key or a failure of the signing primitive.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return fmt.Sprintf("signing failed: %v", e.Err) }
func (e *SigningError) Unwrap() error { return e.Err }

// WriteError wraps a failure to create or write an output file.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write failed: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Classify maps an operation error onto its Kind.
func Classify(err error) Kind {
	switch err.(type) {
	case *InputError:
		return KindUnreadableInput
	case *ParseError:
		return KindMalformedXML
	case *UnsupportedRootError:
		return KindUnsupportedRoot
	case *SigningError:
		return KindSigningError
	case *WriteError:
		return KindWriteFailure
	}
	return KindUnknown
}
