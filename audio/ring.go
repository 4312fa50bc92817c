package audio

import "sync"

// Writer receives mono sample blocks from a capture source
type Writer interface {
	Write(samples []float32)
}

// Ring is a fixed-capacity circular store of mono samples. It always holds
// the most recent Cap() samples; the oldest are overwritten on wraparound.
// Samples never written read as silence.
type Ring struct {
	mu      sync.Mutex
	buf     []float32
	pos     int   // next write position, also the oldest sample
	written int64 // total samples ever written
}

// NewRing creates a ring holding capacity samples
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		panic("audio: ring capacity must be positive")
	}
	return &Ring{buf: make([]float32, capacity)}
}

// NewRingFor sizes a ring to hold seconds of audio at sampleRate
func NewRingFor(seconds float64, sampleRate int) *Ring {
	return NewRing(int(seconds * float64(sampleRate)))
}

// Cap returns the ring capacity in samples
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Write appends a block, wrapping at capacity. Called from the capture
// callback, so it only copies and never waits on anything but the lock.
func (r *Ring) Write(samples []float32) {
	n := len(samples)
	if n == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buf)
	r.written += int64(n)

	// Only the tail of an oversized block survives
	if n >= size {
		copy(r.buf, samples[n-size:])
		r.pos = 0
		return
	}

	first := copy(r.buf[r.pos:], samples)
	if first < n {
		copy(r.buf, samples[first:])
	}
	r.pos = (r.pos + n) % size
}

// Snapshot returns a time-ordered copy of the whole ring, oldest first
func (r *Ring) Snapshot() []float32 {
	return r.SnapshotInto(nil)
}

// SnapshotInto is Snapshot reusing dst when it is large enough
func (r *Ring) SnapshotInto(dst []float32) []float32 {
	if cap(dst) < len(r.buf) {
		dst = make([]float32, len(r.buf))
	}
	dst = dst[:len(r.buf)]

	r.mu.Lock()
	n := copy(dst, r.buf[r.pos:])
	copy(dst[n:], r.buf[:r.pos])
	r.mu.Unlock()

	return dst
}

// Written returns how many samples have been written since creation
func (r *Ring) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}
