package runs

import "sync"

// History stores recent run records in a fixed-size ring buffer.
// Safe for concurrent access from multiple goroutines.
type History struct {
	mu      sync.RWMutex
	records []*Record
	size    int
	head    int // next write position
	count   int // number of stored records
}

// NewHistory creates a History with the given capacity.
func NewHistory(size int) *History {
	if size < 1 {
		size = 50
	}
	return &History{
		records: make([]*Record, size),
		size:    size,
	}
}

// Push adds a record. If the buffer is full, the oldest record is overwritten.
func (h *History) Push(rec *Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[h.head] = rec
	h.head = (h.head + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// Get returns the stored record with the given ID.
func (h *History) Get(id string) (*Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := 0; i < h.count; i++ {
		rec := h.records[(h.head-1-i+h.size)%h.size]
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

// Snapshot returns the stored records, newest first.
// The returned slice is owned by the caller; the records are shared.
func (h *History) Snapshot() []*Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Record, h.count)
	for i := 0; i < h.count; i++ {
		// Walk backwards from head
		idx := (h.head - 1 - i + h.size) % h.size
		result[i] = h.records[idx]
	}
	return result
}

// Len returns the number of records currently stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Cap returns the maximum capacity of the history.
func (h *History) Cap() int {
	return h.size
}
