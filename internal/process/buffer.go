package process

import "sync"

// truncationMarker is appended exactly once when a stream hits its cap.
const truncationMarker = "\n... [output truncated]"

// cappedBuffer accumulates stream output up to a byte limit. Space for the
// truncation marker is reserved up front so the rendered output never
// exceeds the configured cap. Writes past the cap are discarded; the reader
// keeps draining the pipe so the process is never blocked on a full pipe.
type cappedBuffer struct {
	mu        sync.Mutex
	data      []byte
	limit     int
	truncated bool
}

func newCappedBuffer(maxBytes int) *cappedBuffer {
	limit := maxBytes - len(truncationMarker)
	if limit < 0 {
		limit = 0
	}
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.truncated {
		remaining := b.limit - len(b.data)
		if remaining >= len(p) {
			b.data = append(b.data, p...)
		} else {
			b.data = append(b.data, p[:remaining]...)
			b.truncated = true
		}
	}

	// Report the full length so the copier never errors out.
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return string(b.data) + truncationMarker
	}
	return string(b.data)
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
