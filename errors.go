package memvfs

import "github.com/pkg/errors"

// Typed failures surfaced by the file store, the path resolver and the
// attribute service. Callers test with errors.Is; operations wrap these
// with contextual detail.
var (
	// ErrNoSuchFile reports an absent path component.
	ErrNoSuchFile = errors.New("no such file")

	// ErrAlreadyExists reports a create, link or move collision
	// without replace.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrNotDirectory reports a non-directory where a directory is
	// required during traversal.
	ErrNotDirectory = errors.New("not a directory")

	// ErrTypeMismatch reports a content access against the wrong
	// node kind.
	ErrTypeMismatch = errors.New("unexpected file type")

	// ErrDirectoryNotEmpty reports removal or replacement of a
	// non-empty directory.
	ErrDirectoryNotEmpty = errors.New("directory not empty")

	// ErrTooManyLinks reports that symlink expansion exceeded the
	// per-resolution bound, usually a cycle.
	ErrTooManyLinks = errors.New("too many levels of symbolic links")

	// ErrUnknownView reports an attribute view with no installed
	// provider.
	ErrUnknownView = errors.New("unknown attribute view")

	// ErrUnknownAttribute reports an attribute not declared, directly
	// or by inheritance, by the addressed view.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrNotSettable reports a set of a read-only attribute.
	ErrNotSettable = errors.New("attribute is not settable")

	// ErrNotSettableOnCreate reports a set whose phase does not match
	// the attribute: a runtime-only attribute supplied at creation, or
	// a creation-only attribute set afterwards.
	ErrNotSettableOnCreate = errors.New("attribute not settable in this phase")

	// ErrInvalidType reports a set value matching none of the
	// attribute's accepted types.
	ErrInvalidType = errors.New("invalid attribute value type")

	// ErrNullArgument reports a required value that is absent.
	ErrNullArgument = errors.New("value must not be nil")

	// ErrInvalidFormat reports a malformed attribute specification.
	ErrInvalidFormat = errors.New("invalid attribute specification")

	// ErrUnsupported reports an operation no installed provider or
	// node kind can satisfy.
	ErrUnsupported = errors.New("unsupported operation")
)
