package core

import (
	"foodie/pkg/domain"
)

// lastMatch scans every candidate and returns the last one whose id equals
// id. Duplicate ids in a dependency collection resolve to the later record.
func lastMatch[T any](candidates []T, id string, idOf func(T) string) (T, bool) {
	var (
		found T
		ok    bool
	)
	for _, c := range candidates {
		if idOf(c) == id {
			found, ok = c, true
		}
	}
	return found, ok
}

func productID(p Product) string       { return p.ID }
func recipeID(r HydratedRecipe) string { return r.ID }

// ComposeRecipes hydrates recipes against products. Output length and order
// match the input; each slot keeps its link quantity and embeds a copy of the
// matching product, or stays unresolved when no product matches.
func ComposeRecipes(recipes []Recipe, products []Product) []HydratedRecipe {
	out := make([]HydratedRecipe, len(recipes))
	for i, r := range recipes {
		h := HydratedRecipe{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			ImageURL:    r.ImageURL,
			Products:    make([]RecipeItem, len(r.Products)),
		}
		for j, link := range r.Products {
			item := RecipeItem{ProductID: link.ProductID, Quantity: link.Quantity}
			if p, ok := lastMatch(products, link.ProductID, productID); ok {
				cp := cloneProduct(p)
				item.Product = &cp
			}
			h.Products[j] = item
		}
		out[i] = h
	}
	return out
}

// ComposePlans hydrates plans against already hydrated recipes, so a resolved
// plan slot carries its recipe's products as well.
func ComposePlans(plans []Plan, recipes []HydratedRecipe) []HydratedPlan {
	out := make([]HydratedPlan, len(plans))
	for i, p := range plans {
		h := HydratedPlan{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			ImageURL:    p.ImageURL,
			Recipes:     make([]PlanItem, len(p.Recipes)),
		}
		for j, link := range p.Recipes {
			item := PlanItem{RecipeID: link.RecipeID, Quantity: link.Quantity}
			if r, ok := lastMatch(recipes, link.RecipeID, recipeID); ok {
				cp := cloneHydratedRecipe(r)
				item.Recipe = &cp
			}
			h.Recipes[j] = item
		}
		out[i] = h
	}
	return out
}

// mapStatus replaces a remote failure with status by the domain sentinel and
// passes every other error through unchanged.
func mapStatus(err error, status int, sentinel *domain.Error) error {
	if err == nil {
		return nil
	}
	if domain.StatusCode(err) == status {
		return sentinel.WithCause(err)
	}
	return err
}
