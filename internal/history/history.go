package history

import (
	"sync"

	"rtls-go-server/internal/data"
)

const defaultCapacity = 1000

// Buffer keeps a bounded window of temperature samples for the analytics
// charts. Oldest samples are dropped once capacity is reached.
type Buffer struct {
	mu       sync.RWMutex
	samples  []data.TemperatureSample
	capacity int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Buffer{
		samples:  make([]data.TemperatureSample, 0, capacity),
		capacity: capacity,
	}
}

func (b *Buffer) Add(sample data.TemperatureSample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) >= b.capacity {
		b.samples = b.samples[1:]
	}
	b.samples = append(b.samples, sample)
}

// Recent returns the newest count samples, oldest first. A count <= 0 or
// larger than the buffer returns everything.
func (b *Buffer) Recent(count int) []data.TemperatureSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if count <= 0 || count > len(b.samples) {
		count = len(b.samples)
	}
	out := make([]data.TemperatureSample, count)
	copy(out, b.samples[len(b.samples)-count:])
	return out
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}
