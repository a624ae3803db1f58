package vehicle

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Vehicle
	active  map[string]bool
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage: make(map[string]Vehicle),
		active:  make(map[string]bool),
	}
}

// MarkActiveRide is a test helper flagging the vehicle as bound to an
// active ride.
func MarkActiveRide(r Repository, vehicleID string, active bool) {
	if mem, ok := r.(*memoryRepository); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.active[vehicleID] = active
	}
}

func (r *memoryRepository) Create(_ context.Context, v Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[v.ID] = v
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.storage[id]
	if !ok {
		return Vehicle{}, ErrNotFound
	}
	return v, nil
}

func (r *memoryRepository) GetByToken(_ context.Context, token string) (Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.storage {
		if v.AccessToken == token {
			return v, nil
		}
	}
	return Vehicle{}, ErrNotFound
}

func (r *memoryRepository) List(_ context.Context) ([]Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vehicles := make([]Vehicle, 0, len(r.storage))
	for _, v := range r.storage {
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

func (r *memoryRepository) SetAvailable(_ context.Context, id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	v.Available = available
	r.storage[id] = v
	return nil
}

func (r *memoryRepository) HasActiveRide(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.storage[id]; !ok {
		return false, ErrNotFound
	}
	return r.active[id], nil
}
