package wallet

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	storage  map[string]Wallet
	defaults map[string]string // wallet id -> payment method id
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage:  make(map[string]Wallet),
		defaults: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.storage {
		if w.UserID == wallet.UserID && w.Name == wallet.Name {
			return ErrNameTaken
		}
	}
	r.storage[wallet.ID] = wallet
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *memoryRepository) GetByBillingRef(_ context.Context, ref string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.storage {
		if w.BillingRef != "" && w.BillingRef == ref {
			return w, nil
		}
	}
	return Wallet{}, ErrNotFound
}

func (r *memoryRepository) ForUser(_ context.Context, userID string) ([]Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var wallets []Wallet
	for _, w := range r.storage {
		if w.UserID == userID {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

func (r *memoryRepository) Rename(_ context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	for _, other := range r.storage {
		if other.ID != id && other.UserID == w.UserID && other.Name == name {
			return ErrNameTaken
		}
	}
	w.Name = name
	r.storage[id] = w
	return nil
}

func (r *memoryRepository) SetBillingRef(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	w.BillingRef = ref
	r.storage[id] = w
	return nil
}

func (r *memoryRepository) SetDefaultPaymentMethod(_ context.Context, walletID, paymentMethodID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[walletID]; !ok {
		return ErrNotFound
	}
	if paymentMethodID == "" {
		delete(r.defaults, walletID)
		return nil
	}
	r.defaults[walletID] = paymentMethodID
	return nil
}

func (r *memoryRepository) DefaultPaymentMethod(_ context.Context, walletID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.storage[walletID]; !ok {
		return "", ErrNotFound
	}
	return r.defaults[walletID], nil
}
