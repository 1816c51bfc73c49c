// Package domain defines the catalog entities, their normalized and hydrated
// shapes, and the remote API contract consumed by the foodie client.
package domain

import (
	"github.com/shopspring/decimal"
)

// EntityType identifies the kind of record held by a catalog store.
type EntityType string

// Supported entity type identifiers used in errors, logs and metrics.
const (
	// EntityProduct identifies a product record.
	EntityProduct EntityType = "product"
	// EntityRecipe identifies a recipe record.
	EntityRecipe EntityType = "recipe"
	// EntityPlan identifies a plan record.
	EntityPlan EntityType = "plan"
	// EntityUser identifies a user account.
	EntityUser EntityType = "user"
)

// ServingType describes how a product serving is measured.
type ServingType int

// Serving measurement units recognised by the remote API.
const (
	ServingTypeGrams ServingType = iota + 1
	ServingTypeUnits
)

// IsValid reports whether st is a known serving type.
func (st ServingType) IsValid() bool {
	return st == ServingTypeGrams || st == ServingTypeUnits
}

// Serving describes a product's reference portion.
type Serving struct {
	Type     ServingType     `json:"type"`
	Size     decimal.Decimal `json:"size"`
	Calories decimal.Decimal `json:"calories"`
}

// Product is the leaf catalog entity. It holds no references.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Serving     Serving `json:"serving"`
}

// RecipeProduct links a recipe to a product in its normalized (wire) form.
type RecipeProduct struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Recipe is the normalized recipe record as stored by the remote API.
type Recipe struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Products    []RecipeProduct `json:"products"`
}

// PlanRecipe links a plan to a recipe in its normalized (wire) form.
type PlanRecipe struct {
	RecipeID string `json:"recipe_id"`
	Quantity uint64 `json:"quantity"`
}

// Plan is the normalized plan record as stored by the remote API.
type Plan struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	ImageURL    string       `json:"image_url"`
	Recipes     []PlanRecipe `json:"recipes"`
}

// User is an account profile. Credential fields never leave the server.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

// Credentials is the login and registration payload.
type Credentials struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Session is returned by login and registration.
type Session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
