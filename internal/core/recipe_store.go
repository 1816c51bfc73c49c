package core

import (
	"context"
	"net/http"
	"sync"

	"foodie/pkg/domain"
)

// RecipeStore caches recipes hydrated against the product store.
type RecipeStore struct {
	api      domain.RecipeAPI
	products *ProductStore
	creds    CredentialSource
	obs      *observer

	refreshMu sync.Mutex
	mu        sync.RWMutex
	recipes   []HydratedRecipe
}

// NewRecipeStore builds an empty recipe store depending on products.
func NewRecipeStore(api domain.RecipeAPI, products *ProductStore, creds CredentialSource, opts ...Option) *RecipeStore {
	o := newOptions(opts)
	return &RecipeStore{api: api, products: products, creds: creds, obs: o.observer(EntityRecipe)}
}

// Recipes returns a copy of the hydrated cache in server order.
func (s *RecipeStore) Recipes() []HydratedRecipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHydratedRecipes(s.recipes)
}

// RetrieveAll refreshes products, then fetches recipes and hydrates them
// against the refreshed products. A product failure is returned as is and
// the recipe fetch is skipped. A recipe failure keeps the previous recipe
// cache while the product refresh stands.
func (s *RecipeStore) RetrieveAll(ctx context.Context) ([]HydratedRecipe, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var out []HydratedRecipe
	err := s.obs.run(ctx, "retrieve_all", func(ctx context.Context) error {
		products, err := s.products.RetrieveAll(ctx)
		if err != nil {
			return err
		}
		fetched, err := s.api.ListRecipes(ctx)
		if err != nil {
			return err
		}
		hydrated := ComposeRecipes(fetched, products)
		s.mu.Lock()
		s.recipes = hydrated
		s.mu.Unlock()
		out = cloneHydratedRecipes(hydrated)
		return nil
	})
	return out, err
}

// Create stores a normalized recipe remotely and rebuilds the chain.
func (s *RecipeStore) Create(ctx context.Context, r Recipe) (Recipe, error) {
	var created Recipe
	err := s.obs.run(ctx, "create", func(ctx context.Context) error {
		var err error
		created, err = s.api.CreateRecipe(ctx, s.creds.Token(), r)
		return err
	})
	if err != nil {
		return Recipe{}, err
	}
	s.obs.resync(ctx, s.refresh)
	return created, nil
}

// Update replaces a recipe remotely and rebuilds the chain.
func (s *RecipeStore) Update(ctx context.Context, r Recipe) (Recipe, error) {
	var updated Recipe
	err := s.obs.run(ctx, "update", func(ctx context.Context) error {
		var err error
		updated, err = s.api.UpdateRecipe(ctx, s.creds.Token(), r)
		return err
	})
	if err != nil {
		return Recipe{}, err
	}
	s.obs.resync(ctx, s.refresh)
	return updated, nil
}

// Delete removes a recipe remotely. A recipe still used by a plan fails with
// domain.ErrRecipeInUse.
func (s *RecipeStore) Delete(ctx context.Context, id string) error {
	err := s.obs.run(ctx, "delete", func(ctx context.Context) error {
		return mapStatus(s.api.DeleteRecipe(ctx, s.creds.Token(), id), http.StatusConflict, domain.ErrRecipeInUse)
	})
	if err != nil {
		return err
	}
	s.obs.resync(ctx, s.refresh)
	return nil
}

func (s *RecipeStore) refresh(ctx context.Context) error {
	_, err := s.RetrieveAll(ctx)
	return err
}
