package camera

import (
	"errors"
	"sync"
)

// Fixed frame format shared by every camera path. Consumers may rely on
// this layout; no negotiation or alternate resolutions are supported.
const (
	FrameWidth    = 640
	FrameHeight   = 480
	FrameChannels = 3 // interleaved BGR
	FrameBytes    = FrameWidth * FrameHeight * FrameChannels
)

var (
	// ErrBufferBusy is returned by Lend when the buffer is already
	// borrowed; only one borrower may hold it at a time.
	ErrBufferBusy = errors.New("frame buffer already lent")

	// ErrStaleHandle is returned by Snapshot when the handle was
	// revoked (or superseded) since it was lent.
	ErrStaleHandle = errors.New("stale frame buffer handle")
)

// Buffer is the shared memory region holding the most recent raw camera
// frame. The capture backend writes into it from its own goroutine while
// a single borrower reads snapshots from another; the internal mutex
// makes each write and each snapshot atomic with respect to the other.
//
// The buffer is owned by the gateway for its entire existence; borrowers
// only ever hold a revocable Handle.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	n    int    // valid bytes of the newest frame
	gen  uint64 // bumped on every revoke, invalidating old handles
	lent bool
}

// NewBuffer allocates a buffer sized for one full frame.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, FrameBytes)}
}

// Write replaces the buffer contents with the newest frame. Called by
// the producer at the device frame rate. Frames larger than the region
// are truncated; the stored length is what size checks compare against.
func (b *Buffer) Write(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n = copy(b.data, frame)
}

// Lend borrows the buffer, returning a handle bound to the current
// generation. A second Lend without an intervening Revoke fails with
// ErrBufferBusy (single-owner borrow).
func (b *Buffer) Lend() (*Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lent {
		return nil, ErrBufferBusy
	}
	b.lent = true
	return &Handle{buf: b, gen: b.gen}, nil
}

// Revoke ends the borrow. Any snapshot through the handle afterwards
// fails with ErrStaleHandle. Revoking an already-stale handle is a no-op.
func (b *Buffer) Revoke(h *Handle) {
	if h == nil || h.buf != b {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.lent || h.gen != b.gen {
		return
	}
	b.lent = false
	b.gen++
}

// Handle is an opaque borrowed reference to a Buffer, valid from Lend
// until Revoke.
type Handle struct {
	buf *Buffer
	gen uint64
}

// Snapshot copies the newest frame out of the shared region and returns
// an independently owned byte slice. The rewind-check-copy sequence runs
// under the buffer lock as one atomic unit, so a concurrent producer
// write can never tear the result.
func (h *Handle) Snapshot() ([]byte, error) {
	b := h.buf
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.lent || h.gen != b.gen {
		return nil, ErrStaleHandle
	}
	out := make([]byte, b.n)
	copy(out, b.data[:b.n])
	return out, nil
}
