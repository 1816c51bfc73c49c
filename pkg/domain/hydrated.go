package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RecipeItem is one slot of a hydrated recipe. The link fields are always
// set; Product is non-nil only when the referenced product was found in the
// product cache at hydration time.
type RecipeItem struct {
	ProductID string
	Quantity  decimal.Decimal
	Product   *Product
}

// Resolved reports whether the slot carries the referenced product.
func (i RecipeItem) Resolved() bool { return i.Product != nil }

// Link returns the normalized form of the slot.
func (i RecipeItem) Link() RecipeProduct {
	return RecipeProduct{ProductID: i.ProductID, Quantity: i.Quantity}
}

type resolvedRecipeItem struct {
	Product
	Quantity decimal.Decimal `json:"quantity"`
}

// MarshalJSON emits the product fields merged with the link quantity, or the
// bare {product_id, quantity} pair when the slot is unresolved.
func (i RecipeItem) MarshalJSON() ([]byte, error) {
	if i.Product == nil {
		return json.Marshal(i.Link())
	}
	return json.Marshal(resolvedRecipeItem{Product: *i.Product, Quantity: i.Quantity})
}

// UnmarshalJSON accepts both the normalized and the hydrated slot shape.
func (i *RecipeItem) UnmarshalJSON(b []byte) error {
	var probe struct {
		ID        string          `json:"id"`
		ProductID string          `json:"product_id"`
		Quantity  decimal.Decimal `json:"quantity"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	*i = RecipeItem{ProductID: probe.ProductID, Quantity: probe.Quantity}
	if probe.ID == "" {
		return nil
	}
	var p Product
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	i.ProductID = p.ID
	i.Product = &p
	return nil
}

// HydratedRecipe is a recipe whose product links have been expanded against
// the product cache.
type HydratedRecipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	ImageURL    string       `json:"image_url"`
	Products    []RecipeItem `json:"products"`
}

// Normalize returns the wire form of the recipe used by write calls.
func (r HydratedRecipe) Normalize() Recipe {
	out := Recipe{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Products:    make([]RecipeProduct, len(r.Products)),
	}
	for i, item := range r.Products {
		out.Products[i] = item.Link()
	}
	return out
}

// PlanItem is one slot of a hydrated plan. Recipe is non-nil only when the
// referenced recipe was found in the hydrated recipe cache.
type PlanItem struct {
	RecipeID string
	Quantity uint64
	Recipe   *HydratedRecipe
}

// Resolved reports whether the slot carries the referenced recipe.
func (i PlanItem) Resolved() bool { return i.Recipe != nil }

// Link returns the normalized form of the slot.
func (i PlanItem) Link() PlanRecipe {
	return PlanRecipe{RecipeID: i.RecipeID, Quantity: i.Quantity}
}

// The plan-level quantity is the outermost field, so it always describes
// usage in the parent plan.
type resolvedPlanItem struct {
	HydratedRecipe
	Quantity uint64 `json:"quantity"`
}

// MarshalJSON emits the hydrated recipe merged with the plan quantity, or the
// bare {recipe_id, quantity} pair when the slot is unresolved.
func (i PlanItem) MarshalJSON() ([]byte, error) {
	if i.Recipe == nil {
		return json.Marshal(i.Link())
	}
	return json.Marshal(resolvedPlanItem{HydratedRecipe: *i.Recipe, Quantity: i.Quantity})
}

// UnmarshalJSON accepts both the normalized and the hydrated slot shape.
func (i *PlanItem) UnmarshalJSON(b []byte) error {
	var probe struct {
		ID       string `json:"id"`
		RecipeID string `json:"recipe_id"`
		Quantity uint64 `json:"quantity"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	*i = PlanItem{RecipeID: probe.RecipeID, Quantity: probe.Quantity}
	if probe.ID == "" {
		return nil
	}
	var r HydratedRecipe
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	i.RecipeID = r.ID
	i.Recipe = &r
	return nil
}

// HydratedPlan is a plan whose recipe links have been expanded against the
// hydrated recipe cache.
type HydratedPlan struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Recipes     []PlanItem `json:"recipes"`
}

// Normalize returns the wire form of the plan used by write calls.
func (p HydratedPlan) Normalize() Plan {
	out := Plan{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Recipes:     make([]PlanRecipe, len(p.Recipes)),
	}
	for i, item := range p.Recipes {
		out.Recipes[i] = item.Link()
	}
	return out
}
