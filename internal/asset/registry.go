package asset

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byID     map[AssetID]*Asset
	bySymbol map[string]*Asset
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string]*Asset),
	}
}

// Register adds an asset to the registry.
// Panics if an asset with the same ID is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.byID[id]; exists {
		panic(fmt.Sprintf("asset: %s already registered", id))
	}

	r.byID[id] = a
	r.bySymbol[a.Symbol()] = a
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// GetByMint retrieves an asset by mint address.
func (r *Registry) GetByMint(mint string) (*Asset, bool) {
	return r.Get(AssetID{mint: mint})
}

// GetBySymbol retrieves an asset by ticker.
func (r *Registry) GetBySymbol(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.bySymbol[symbol]
	return a, ok
}

// Resolve returns the registered asset for mint, or registers a new one with
// the given decimals. A registered asset whose decimals disagree is an error.
func (r *Registry) Resolve(mint string, decimals uint8) (*Asset, error) {
	if a, ok := r.GetByMint(mint); ok {
		if a.Decimals() != decimals {
			return nil, fmt.Errorf("asset: %s has %d decimals, configured %d", a.Symbol(), a.Decimals(), decimals)
		}
		return a, nil
	}

	id, err := NewMintID(mint)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		return a, nil
	}
	a := NewAsset(id, id.String(), decimals)
	r.byID[id] = a
	return a, nil
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
