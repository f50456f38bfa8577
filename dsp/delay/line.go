// Package delay provides fixed-size circular delay lines for channel time
// alignment.
package delay

import (
	"fmt"
)

// Line is a circular delay line with a power-of-two buffer so reads and
// writes index with a mask instead of a modulo.
type Line[S any] struct {
	buffer   []S
	mask     uint32
	writePos uint32
}

// New returns a delay line holding at least size samples. The buffer is
// rounded up to the next power of two.
func New[S any](size int) (*Line[S], error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	n := 1
	for n < size {
		n <<= 1
	}
	return &Line[S]{buffer: make([]S, n), mask: uint32(n - 1)}, nil
}

// Len returns the internal buffer size.
func (d *Line[S]) Len() int {
	return len(d.buffer)
}

// Write writes one sample and advances the line.
func (d *Line[S]) Write(sample S) {
	d.buffer[d.writePos&d.mask] = sample
	d.writePos++
}

// Read reads the sample written delay steps ago. delay 0 returns the most
// recent write.
func (d *Line[S]) Read(delay int) S {
	return d.buffer[(d.writePos-1-uint32(delay))&d.mask]
}

// Reset clears the line.
func (d *Line[S]) Reset() {
	var z S
	for i := range d.buffer {
		d.buffer[i] = z
	}
	d.writePos = 0
}
