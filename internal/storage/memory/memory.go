// Package memory implements the repositories with mutex-guarded maps. It
// backs the service when no database is configured.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/xenking/cart-pricing/internal/domain/auth"
	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/internal/domain/user"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ user.Repository    = (*UserRepository)(nil)
	_ order.Repository   = (*OrderRepository)(nil)
	_ auth.Repository    = (*APIKeyRepository)(nil)
)

// ProductRepository is an in-memory catalog.
type ProductRepository struct {
	mu   sync.RWMutex
	byID map[string]product.Product
}

// NewProductRepository returns an empty catalog.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{byID: make(map[string]product.Product)}
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// GetByID returns a product or product.ErrNotFound.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns each existing product once, skipping unknown IDs.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Upsert inserts or replaces a product.
func (r *ProductRepository) Upsert(_ context.Context, p product.Product) error {
	r.mu.Lock()
	r.byID[p.ID] = p
	r.mu.Unlock()
	return nil
}

// UserRepository is an in-memory customer store.
type UserRepository struct {
	mu   sync.RWMutex
	byID map[string]user.User
}

// NewUserRepository returns an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{byID: make(map[string]user.User)}
}

// GetByID returns a user or user.ErrNotFound.
func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

// Upsert inserts or replaces a user.
func (r *UserRepository) Upsert(_ context.Context, u user.User) error {
	r.mu.Lock()
	r.byID[u.ID] = u
	r.mu.Unlock()
	return nil
}

// OrderRepository is an in-memory order log. Stored orders are deep copies
// so callers cannot mutate history.
type OrderRepository struct {
	mu   sync.RWMutex
	byID map[string]order.Order
}

// NewOrderRepository returns an empty order log.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byID: make(map[string]order.Order)}
}

// Create stores a copy of o.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	c := *o
	c.Items = slices.Clone(o.Items)

	r.mu.Lock()
	r.byID[o.ID] = c
	r.mu.Unlock()
	return nil
}

// GetByID returns a copy of the stored order or order.ErrNotFound.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

// APIKeyRepository is an in-memory key store indexed by hash.
type APIKeyRepository struct {
	mu     sync.RWMutex
	byHash map[string]auth.APIKeyInfo
}

// NewAPIKeyRepository returns an empty key store.
func NewAPIKeyRepository() *APIKeyRepository {
	return &APIKeyRepository{byHash: make(map[string]auth.APIKeyInfo)}
}

// FindByHash returns the key with the given hash or auth.ErrNotFound.
func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &info, nil
}

// Upsert stores a key, replacing any previous key with the same ID.
func (r *APIKeyRepository) Upsert(_ context.Context, info auth.APIKeyInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for h, k := range r.byHash {
		if k.ID == info.ID {
			delete(r.byHash, h)
		}
	}
	r.byHash[info.KeyHash] = info
	return nil
}
