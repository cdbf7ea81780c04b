package push

import "sync"

// responseBuffer holds untagged responses until the driver gets to them.
type responseBuffer struct {
	mu        sync.Mutex
	responses []Response
}

func (b *responseBuffer) Append(r Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses = append(b.responses, r)
}

// DrainAll returns everything buffered so far and empties the buffer.
func (b *responseBuffer) DrainAll() []Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.responses) == 0 {
		return nil
	}
	drained := b.responses
	b.responses = nil
	return drained
}

func (b *responseBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses = nil
}

func (b *responseBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.responses)
}
