package core

import "foodie/pkg/domain"

type (
	EntityType     = domain.EntityType
	Product        = domain.Product
	Serving        = domain.Serving
	Recipe         = domain.Recipe
	RecipeProduct  = domain.RecipeProduct
	RecipeItem     = domain.RecipeItem
	HydratedRecipe = domain.HydratedRecipe
	Plan           = domain.Plan
	PlanRecipe     = domain.PlanRecipe
	PlanItem       = domain.PlanItem
	HydratedPlan   = domain.HydratedPlan
	User           = domain.User
	Session        = domain.Session
	Credentials    = domain.Credentials
)

const (
	EntityProduct = domain.EntityProduct
	EntityRecipe  = domain.EntityRecipe
	EntityPlan    = domain.EntityPlan
	EntityUser    = domain.EntityUser
)

// CredentialSource supplies the bearer credential used by write calls. Stores
// read it on every call, so a new login takes effect immediately.
type CredentialSource interface {
	Token() string
}

// StaticToken is a fixed CredentialSource.
type StaticToken string

// Token returns the fixed credential.
func (t StaticToken) Token() string { return string(t) }
