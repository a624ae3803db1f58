package paymentmethod

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]PaymentMethod // keyed by provider id
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]PaymentMethod)}
}

func (r *memoryRepository) UpsertByProviderID(_ context.Context, pm PaymentMethod) (PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.storage[pm.ProviderID]; ok {
		return existing, nil
	}
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = time.Now().UTC()
	}
	r.storage[pm.ProviderID] = pm
	return pm, nil
}

func (r *memoryRepository) UpdateDataByProviderID(_ context.Context, providerID string, data json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pm, ok := r.storage[providerID]; ok {
		pm.Data = data
		r.storage[providerID] = pm
	}
	return nil
}

func (r *memoryRepository) DeleteByProviderID(_ context.Context, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.storage, providerID)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (PaymentMethod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pm := range r.storage {
		if pm.ID == id {
			return pm, nil
		}
	}
	return PaymentMethod{}, ErrNotFound
}

func (r *memoryRepository) GetByProviderID(_ context.Context, providerID string) (PaymentMethod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pm, ok := r.storage[providerID]
	if !ok {
		return PaymentMethod{}, ErrNotFound
	}
	return pm, nil
}

func (r *memoryRepository) ForWallet(_ context.Context, walletID string) ([]PaymentMethod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var methods []PaymentMethod
	for _, pm := range r.storage {
		if pm.WalletID == walletID {
			methods = append(methods, pm)
		}
	}
	return methods, nil
}
