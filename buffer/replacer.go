package buffer

import "errors"

// AccessType tags the kind of access recorded against a frame. The policy
// never branches on it today; it exists so a future replacer could, without
// changing every call site (spec-reserved forward-compat hook).
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessLookup
	AccessScan
	AccessIndex
)

// ErrInvalidFrame is returned when a frame ID is negative or out of range
// for the configured number of frames.
var ErrInvalidFrame = errors.New("buffer: invalid frame id")

// ErrNotEvictable is returned by Remove when the targeted frame is tracked
// but currently marked non-evictable.
var ErrNotEvictable = errors.New("buffer: frame is not evictable")

// Replacer selects eviction victims among the frames the buffer pool
// manager has marked evictable.
type Replacer interface {
	// RecordAccess notes that frameID was just accessed. It creates
	// tracking state for frameID on first use; new frames start
	// non-evictable.
	RecordAccess(frameID int, accessType AccessType) error

	// SetEvictable toggles whether frameID is a candidate for Evict. It is
	// a no-op if frameID is not tracked, and idempotent in evictable.
	SetEvictable(frameID int, evictable bool) error

	// Evict removes and returns the frame ID chosen by the replacement
	// policy, or (0, false) if no frame is evictable.
	Evict() (frameID int, ok bool)

	// Remove drops all tracking state for frameID without regard to the
	// replacement policy. It fails if the frame is tracked but not
	// evictable.
	Remove(frameID int) error

	// Size reports the number of frames currently evictable.
	Size() int
}
