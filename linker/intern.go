package linker

import "sync"

// Interner deduplicates equal option sets so repeated call sites share one
// instance. Safe for concurrent use.
type Interner struct {
	buckets map[uint64][]*Options
	size    int
	mu      sync.Mutex
}

func NewInterner() *Interner {
	return &Interner{buckets: make(map[uint64][]*Options)}
}

// Intern returns the canonical instance equal to o.
func (in *Interner) Intern(o *Options) *Options {
	if o == emptyOptions {
		return o
	}
	h := o.Hash()

	in.mu.Lock()
	defer in.mu.Unlock()

	for _, existing := range in.buckets[h] {
		if existing.Equal(o) {
			return existing
		}
	}
	in.buckets[h] = append(in.buckets[h], o)
	in.size++
	return o
}

// Len is the number of distinct option sets held.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.size
}
