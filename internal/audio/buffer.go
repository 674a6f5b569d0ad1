package audio

import "sync"

// SampleRing is a circular buffer of float32 samples used to re-chunk
// device periods into fixed-size blocks.
type SampleRing struct {
	mu       sync.Mutex
	buffer   []float32
	writePos int
	readPos  int
	count    int
}

// NewSampleRing creates a ring holding up to size samples
func NewSampleRing(size int) *SampleRing {
	return &SampleRing{buffer: make([]float32, size)}
}

// Write appends samples and returns how many fit. Samples past capacity are dropped.
func (r *SampleRing) Write(samples []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for _, s := range samples {
		if r.count == len(r.buffer) {
			break
		}
		r.buffer[r.writePos] = s
		r.writePos = (r.writePos + 1) % len(r.buffer)
		r.count++
		written++
	}
	return written
}

// Read copies up to len(dst) samples into dst and returns the count
func (r *SampleRing) Read(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for n < len(dst) && r.count > 0 {
		dst[n] = r.buffer[r.readPos]
		r.readPos = (r.readPos + 1) % len(r.buffer)
		r.count--
		n++
	}
	return n
}

// NextBlock returns a block of exactly size samples if that many are buffered
func (r *SampleRing) NextBlock(size int) (Block, bool) {
	if r.Available() < size {
		return nil, false
	}
	block := make(Block, size)
	r.Read(block)
	return block, true
}

// Available returns the number of buffered samples
func (r *SampleRing) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
