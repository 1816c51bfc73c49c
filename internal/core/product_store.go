package core

import (
	"context"
	"net/http"
	"sync"

	"foodie/pkg/domain"
)

// ProductStore caches the flat product collection. It is the leaf of the
// composition chain.
type ProductStore struct {
	api   domain.ProductAPI
	creds CredentialSource
	obs   *observer

	refreshMu sync.Mutex
	mu        sync.RWMutex
	products  []Product
}

// NewProductStore builds an empty product store.
func NewProductStore(api domain.ProductAPI, creds CredentialSource, opts ...Option) *ProductStore {
	o := newOptions(opts)
	return &ProductStore{api: api, creds: creds, obs: o.observer(EntityProduct)}
}

// Products returns a copy of the cached collection in server order.
func (s *ProductStore) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

// RetrieveAll fetches every product and replaces the cache wholesale. On
// failure the previous cache is kept.
func (s *ProductStore) RetrieveAll(ctx context.Context) ([]Product, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var out []Product
	err := s.obs.run(ctx, "retrieve_all", func(ctx context.Context) error {
		fetched, err := s.api.ListProducts(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.products = fetched
		s.mu.Unlock()
		out = cloneProducts(fetched)
		return nil
	})
	return out, err
}

// RetrieveOne fetches a single product without touching the cache.
func (s *ProductStore) RetrieveOne(ctx context.Context, id string) (Product, error) {
	var out Product
	err := s.obs.run(ctx, "retrieve_one", func(ctx context.Context) error {
		var err error
		out, err = s.api.GetProduct(ctx, id)
		return err
	})
	return out, err
}

// Create stores a new product remotely and resynchronises the cache.
func (s *ProductStore) Create(ctx context.Context, p Product) (Product, error) {
	var created Product
	err := s.obs.run(ctx, "create", func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateProduct(ctx, s.creds.Token(), p)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.obs.resync(ctx, s.refresh)
	return created, nil
}

// Update replaces a product remotely and resynchronises the cache.
func (s *ProductStore) Update(ctx context.Context, p Product) (Product, error) {
	var updated Product
	err := s.obs.run(ctx, "update", func(ctx context.Context) error {
		var err error
		updated, err = s.api.UpdateProduct(ctx, s.creds.Token(), p)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.obs.resync(ctx, s.refresh)
	return updated, nil
}

// Delete removes a product remotely. A product still referenced by a recipe
// fails with domain.ErrProductInUse and stays cached.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	err := s.obs.run(ctx, "delete", func(ctx context.Context) error {
		return mapStatus(s.api.DeleteProduct(ctx, s.creds.Token(), id), http.StatusConflict, domain.ErrProductInUse)
	})
	if err != nil {
		return err
	}
	s.obs.resync(ctx, s.refresh)
	return nil
}

func (s *ProductStore) refresh(ctx context.Context) error {
	_, err := s.RetrieveAll(ctx)
	return err
}
