package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Subscription // keyed by provider id
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Subscription)}
}

func (r *memoryRepository) Upsert(_ context.Context, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.storage[sub.ProviderID]; ok {
		sub.ID = existing.ID
	} else if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.UpdatedAt = time.Now().UTC()
	r.storage[sub.ProviderID] = sub
	return nil
}

func (r *memoryRepository) DeleteByProviderID(_ context.Context, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.storage, providerID)
	return nil
}

func (r *memoryRepository) ForWallet(_ context.Context, walletID string) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var subs []Subscription
	for _, s := range r.storage {
		if s.WalletID == walletID {
			subs = append(subs, s)
		}
	}
	return subs, nil
}
