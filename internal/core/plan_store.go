package core

import (
	"context"
	"sync"

	"foodie/pkg/domain"
)

// PlanStore caches plans hydrated against the hydrated recipe store.
type PlanStore struct {
	api     domain.PlanAPI
	recipes *RecipeStore
	creds   CredentialSource
	obs     *observer

	refreshMu sync.Mutex
	mu        sync.RWMutex
	plans     []HydratedPlan
}

// NewPlanStore builds an empty plan store depending on recipes.
func NewPlanStore(api domain.PlanAPI, recipes *RecipeStore, creds CredentialSource, opts ...Option) *PlanStore {
	o := newOptions(opts)
	return &PlanStore{api: api, recipes: recipes, creds: creds, obs: o.observer(EntityPlan)}
}

// Plans returns a copy of the hydrated cache in server order.
func (s *PlanStore) Plans() []HydratedPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHydratedPlans(s.plans)
}

// RetrieveAll refreshes the recipe chain (and through it the products), then
// fetches plans and hydrates them against the refreshed recipes.
func (s *PlanStore) RetrieveAll(ctx context.Context) ([]HydratedPlan, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var out []HydratedPlan
	err := s.obs.run(ctx, "retrieve_all", func(ctx context.Context) error {
		recipes, err := s.recipes.RetrieveAll(ctx)
		if err != nil {
			return err
		}
		fetched, err := s.api.ListPlans(ctx)
		if err != nil {
			return err
		}
		hydrated := ComposePlans(fetched, recipes)
		s.mu.Lock()
		s.plans = hydrated
		s.mu.Unlock()
		out = cloneHydratedPlans(hydrated)
		return nil
	})
	return out, err
}

// Create stores a normalized plan remotely and rebuilds the chain.
func (s *PlanStore) Create(ctx context.Context, p Plan) (Plan, error) {
	var created Plan
	err := s.obs.run(ctx, "create", func(ctx context.Context) error {
		var err error
		created, err = s.api.CreatePlan(ctx, s.creds.Token(), p)
		return err
	})
	if err != nil {
		return Plan{}, err
	}
	s.obs.resync(ctx, s.refresh)
	return created, nil
}

// Update replaces a plan remotely and rebuilds the chain.
func (s *PlanStore) Update(ctx context.Context, p Plan) (Plan, error) {
	var updated Plan
	err := s.obs.run(ctx, "update", func(ctx context.Context) error {
		var err error
		updated, err = s.api.UpdatePlan(ctx, s.creds.Token(), p)
		return err
	})
	if err != nil {
		return Plan{}, err
	}
	s.obs.resync(ctx, s.refresh)
	return updated, nil
}

// Delete removes a plan remotely. Errors pass through unchanged.
func (s *PlanStore) Delete(ctx context.Context, id string) error {
	err := s.obs.run(ctx, "delete", func(ctx context.Context) error {
		return s.api.DeletePlan(ctx, s.creds.Token(), id)
	})
	if err != nil {
		return err
	}
	s.obs.resync(ctx, s.refresh)
	return nil
}

func (s *PlanStore) refresh(ctx context.Context) error {
	_, err := s.RetrieveAll(ctx)
	return err
}
