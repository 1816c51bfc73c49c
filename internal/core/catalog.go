package core

import (
	"foodie/internal/localstore"
	"foodie/pkg/domain"
)

// Catalog wires the session and the stores over one remote API. Stores read
// the session credential at call time.
type Catalog struct {
	Auth     *Auth
	Products *ProductStore
	Recipes  *RecipeStore
	Plans    *PlanStore
	Users    *UserStore
}

// NewCatalog builds empty stores and an unauthenticated session bound to
// slot. Call Auth.Restore to pick up a stored credential.
func NewCatalog(api domain.CatalogAPI, slot localstore.Store, opts ...Option) *Catalog {
	auth := NewAuth(api, slot, opts...)
	products := NewProductStore(api, auth, opts...)
	recipes := NewRecipeStore(api, products, auth, opts...)
	plans := NewPlanStore(api, recipes, auth, opts...)
	users := NewUserStore(api, auth, opts...)
	auth.users = users
	return &Catalog{Auth: auth, Products: products, Recipes: recipes, Plans: plans, Users: users}
}
