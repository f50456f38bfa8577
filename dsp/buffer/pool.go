package buffer

// Pool hands out a fixed number of preallocated Buffers. TryTake is
// non-blocking so a real-time producer drops a packet rather than waiting
// when all buffers are checked out.
type Pool struct {
	free chan *Buffer
}

// NewPool returns a Pool of count buffers, each with capacity for
// maxSamples samples.
func NewPool(count, maxSamples int) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{free: make(chan *Buffer, count)}
	for i := 0; i < count; i++ {
		p.free <- New(maxSamples)
	}
	return p
}

// TryTake returns a zero-length buffer, or nil if none is free.
// Callers must return it via Put when done.
func (p *Pool) TryTake() *Buffer {
	select {
	case b := <-p.free:
		b.Resize(0)
		return b
	default:
		return nil
	}
}

// Put returns a Buffer to the pool. The caller must not use the buffer
// after calling Put. Putting a foreign buffer when the pool is full is
// discarded silently.
func (p *Pool) Put(b *Buffer) {
	if b == nil {
		return
	}
	select {
	case p.free <- b:
	default:
	}
}

// Free reports how many buffers are currently available.
func (p *Pool) Free() int {
	return len(p.free)
}
