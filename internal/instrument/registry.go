package instrument

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

var ErrPoolEmpty = errors.New("underlying pool is empty")

// Registry holds the runtime-selected pool of symbols for each asset
// class. Pools are sampled once at startup; everything downstream
// (books, price data, per-symbol locks) is keyed off the pool contents,
// so re-initialisation is a no-op.
type Registry struct {
	mu    sync.Mutex
	pools map[AssetClass][]Symbol
}

func NewRegistry() *Registry {
	return &Registry{pools: make(map[AssetClass][]Symbol)}
}

func fullSet(class AssetClass) []Symbol {
	switch class {
	case Equity:
		return Equities
	case Future:
		return Futures
	case Option:
		return Options
	}
	return nil
}

// InitPool samples a shuffled poolSize-element pool for the class. A
// poolSize of zero or one exceeding the family size keeps the whole
// enumeration. Calling InitPool again for the same class does nothing.
func (r *Registry) InitPool(class AssetClass, poolSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pools[class]; ok {
		return
	}

	pool := append([]Symbol(nil), fullSet(class)...)
	if poolSize > 0 && poolSize < len(pool) {
		rand.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		pool = pool[:poolSize]
	}

	r.pools[class] = pool
}

// Pool returns the active pool for the class; nil before InitPool.
func (r *Registry) Pool(class AssetClass) []Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pools[class]
}

// Random draws a uniformly random instrument from the class's active
// pool.
func (r *Registry) Random(class AssetClass) (Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool := r.pools[class]
	if len(pool) == 0 {
		return Instrument{}, fmt.Errorf("%w: %s", ErrPoolEmpty, class)
	}

	return Instrument{Class: class, Symbol: pool[rand.Intn(len(pool))]}, nil
}
