// Package registry tracks loaded datasets and assigns their display names.
// It maps display names, short handles and file names used in expressions
// to the datasets they refer to, preserving load order.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leapstack-labs/dataviz/internal/dataset"
)

var (
	// ErrNotFound is returned when no dataset matches a name.
	ErrNotFound = errors.New("dataset not found")
	// ErrEmpty is returned by First when nothing has been registered.
	ErrEmpty = errors.New("no datasets loaded")
	// ErrAlreadyRegistered is returned when a dataset already carries a name.
	ErrAlreadyRegistered = errors.New("dataset already registered")
)

// Registry holds registered datasets in load order.
// The ordinal counter lives here and only advances on successful registration.
type Registry struct {
	mu sync.RWMutex

	// ordered holds datasets in registration order.
	ordered []*dataset.Dataset

	// byName maps display names to datasets: "D1--samples" → ds
	byName map[string]*dataset.Dataset

	// byHandle maps short handles to datasets: "D1" → ds
	byHandle map[string]*dataset.Dataset

	// lastOrdinal is the ordinal handed out most recently. Never reused.
	lastOrdinal int
}

// New creates an empty registry. The first registered dataset gets ordinal 1.
func New() *Registry {
	return &Registry{
		byName:   make(map[string]*dataset.Dataset),
		byHandle: make(map[string]*dataset.Dataset),
	}
}

// Register names ds with the next ordinal and adds it to the registry.
func (r *Registry) Register(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if ds == nil {
		return nil, fmt.Errorf("register: nil dataset")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if ds.Named() {
		return nil, fmt.Errorf("register %s: %w", ds.Name(), ErrAlreadyRegistered)
	}
	if err := ds.AssignName(r.lastOrdinal + 1); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	r.lastOrdinal++

	r.ordered = append(r.ordered, ds)
	r.byName[ds.Name()] = ds
	r.byHandle[ds.Handle()] = ds
	return ds, nil
}

// All returns registered datasets in load order.
func (r *Registry) All() []*dataset.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*dataset.Dataset, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ByName returns the dataset with the given display name or handle.
func (r *Registry) ByName(name string) (*dataset.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ds, ok := r.byName[name]; ok {
		return ds, nil
	}
	if ds, ok := r.byHandle[name]; ok {
		return ds, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Resolve maps an expression identifier to a dataset.
// Handles and display names are tried first, then file base names; when two
// datasets share a file name the earliest registered wins.
func (r *Registry) Resolve(ident string) (*dataset.Dataset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ds, ok := r.byHandle[ident]; ok {
		return ds, true
	}
	if ds, ok := r.byName[ident]; ok {
		return ds, true
	}
	for _, ds := range r.ordered {
		if ds.FileName() == ident {
			return ds, true
		}
	}
	return nil, false
}

// First returns the earliest registered dataset still present.
func (r *Registry) First() (*dataset.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.ordered) == 0 {
		return nil, ErrEmpty
	}
	return r.ordered[0], nil
}

// Remove drops a dataset by display name or handle. Other names are unaffected.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.byName[name]
	if !ok {
		ds, ok = r.byHandle[name]
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(r.byName, ds.Name())
	delete(r.byHandle, ds.Handle())
	for i, cur := range r.ordered {
		if cur == ds {
			r.ordered = append(r.ordered[:i:i], r.ordered[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of registered datasets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// DatasetNames returns the identifiers that name a dataset in an expression:
// every display name and every handle.
func (r *Registry) DatasetNames() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]struct{}, 2*len(r.ordered))
	for _, ds := range r.ordered {
		names[ds.Name()] = struct{}{}
		names[ds.Handle()] = struct{}{}
	}
	return names
}

// FileNames returns the source base names of all registered datasets.
func (r *Registry) FileNames() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[string]struct{}, len(r.ordered))
	for _, ds := range r.ordered {
		names[ds.FileName()] = struct{}{}
	}
	return names
}
