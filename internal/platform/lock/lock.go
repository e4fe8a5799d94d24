// Package lock provides small in-process mutex registries keyed by string.
// Stores serialize concurrent writers per obligation and per settlement pair
// without holding database transactions open across domain logic.
package lock

import (
	"sort"
	"strings"
	"sync"
)

// Keyed hands out one mutex per key. Mutexes are never released; the key
// space is bounded by live obligations, so the map stays small.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// PairKey builds an order-independent key for a pair of identifiers, so that
// (a, b) and (b, a) contend on the same mutex.
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "\x00")
}
