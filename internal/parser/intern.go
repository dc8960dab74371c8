package parser

import (
	"sync"
)

// MaxInternPoolSize bounds the pool. Past the limit strings are returned as is.
const MaxInternPoolSize = 100000

// Interner shares one copy of strings that repeat across a survey batch:
// sign codes, shapes, foil types, owner names and road segment ids.
// It is safe for concurrent use by the ParseBatch workers.
type Interner struct {
	mu   sync.RWMutex
	pool map[string]string
	hits int
}

// NewInterner creates an empty Interner.
func NewInterner() *Interner {
	return &Interner{pool: make(map[string]string, 1024)}
}

// Intern returns the pooled copy of s, storing s if it is new and the pool
// still has room.
func (in *Interner) Intern(s string) string {
	if s == "" {
		return s
	}

	in.mu.RLock()
	pooled, ok := in.pool[s]
	full := len(in.pool) >= MaxInternPoolSize
	in.mu.RUnlock()
	if ok {
		in.mu.Lock()
		in.hits++
		in.mu.Unlock()
		return pooled
	}
	if full {
		return s
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if pooled, ok := in.pool[s]; ok {
		in.hits++
		return pooled
	}
	if len(in.pool) >= MaxInternPoolSize {
		return s
	}
	in.pool[s] = s
	return s
}

// Len returns the number of distinct pooled strings.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.pool)
}

// Hits returns how many lookups were served from the pool.
func (in *Interner) Hits() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.hits
}
