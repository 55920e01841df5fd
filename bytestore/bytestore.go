// Package bytestore implements the growable byte buffer backing the
// content of one regular file.
//
// Every Store carries its own mutex, so concurrent readers and writers
// of a single file are serialized against each other while access to
// distinct files never contends. Copy produces a copy-on-write clone:
// both stores keep sharing the backing bytes until the first mutation
// of either side.
package bytestore

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfRange reports a negative offset or size.
	ErrOutOfRange = errors.New("offset out of range")

	// ErrCapacityExceeded reports growth beyond the configured
	// maximum store size.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// Store is the byte content of one regular file.
type Store struct {
	mtx sync.Mutex
	// Must acquire mtx to access.
	data []byte
	// owned is false while data's backing array may be shared with
	// a copy-on-write clone. Must acquire mtx to access.
	owned bool
	// limit is the maximum size in bytes, 0 meaning unlimited.
	limit int64
}

// New returns an empty store. A limit of 0 disables the size cap.
func New(limit int64) *Store {
	return &Store{owned: true, limit: limit}
}

// Size returns the current content size in bytes.
func (s *Store) Size() int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return int64(len(s.data))
}

// ReadAt reads into p starting at off. Reads at or beyond the end of
// the store are short; a read that transfers nothing returns io.EOF.
func (s *Store) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "read at %d", off)
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	sliceOff := min(off, int64(len(s.data)))
	numRead := copy(p, s.data[sliceOff:])
	if numRead == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return numRead, nil
}

// WriteAt writes p at off, growing the store as needed and
// zero-filling any gap between the previous end and off.
func (s *Store) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Wrapf(ErrOutOfRange, "write at %d", off)
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	end := off + int64(len(p))
	if s.limit > 0 && end > s.limit {
		return 0, errors.Wrapf(ErrCapacityExceeded, "write to %d exceeds limit %d", end, s.limit)
	}
	s.ensureOwnedLocked()
	s.reserveLocked(end)
	numWritten := copy(s.data[off:], p)
	return numWritten, nil
}

// Truncate sets the store size, growing with zero bytes or discarding
// the tail as needed.
func (s *Store) Truncate(size int64) error {
	if size < 0 {
		return errors.Wrapf(ErrOutOfRange, "truncate to %d", size)
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.limit > 0 && size > s.limit {
		return errors.Wrapf(ErrCapacityExceeded, "truncate to %d exceeds limit %d", size, s.limit)
	}
	s.ensureOwnedLocked()
	if size <= int64(len(s.data)) {
		s.data = s.data[:size]
		return nil
	}
	s.reserveLocked(size)
	return nil
}

// Copy returns an independent store with the same content. The clone
// initially shares the backing bytes; the first write to either side
// makes the contents diverge.
func (s *Store) Copy() *Store {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.owned = false
	return &Store{
		data:  s.data,
		owned: false,
		limit: s.limit,
	}
}

// ensureOwnedLocked clones the backing array before the first
// mutation after a Copy, so the clone and the original diverge.
func (s *Store) ensureOwnedLocked() {
	if s.owned {
		return
	}
	cloned := make([]byte, len(s.data))
	copy(cloned, s.data)
	s.data = cloned
	s.owned = true
}

func (s *Store) reserveLocked(size int64) {
	lesser := size - int64(len(s.data))
	if lesser > 0 {
		filling := make([]byte, int(lesser))
		s.data = append(s.data, filling...)
	}
}
