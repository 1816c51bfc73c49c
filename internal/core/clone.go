package core

// Deep copies used whenever a record crosses from one cache into another or
// out to a caller. decimal.Decimal values are immutable and safe to share.

func cloneProduct(p Product) Product { return p }

func cloneProducts(in []Product) []Product {
	if in == nil {
		return nil
	}
	out := make([]Product, len(in))
	for i, p := range in {
		out[i] = cloneProduct(p)
	}
	return out
}

func cloneRecipeItem(item RecipeItem) RecipeItem {
	cp := item
	if item.Product != nil {
		p := cloneProduct(*item.Product)
		cp.Product = &p
	}
	return cp
}

func cloneHydratedRecipe(r HydratedRecipe) HydratedRecipe {
	cp := r
	if r.Products != nil {
		cp.Products = make([]RecipeItem, len(r.Products))
		for i, item := range r.Products {
			cp.Products[i] = cloneRecipeItem(item)
		}
	}
	return cp
}

func cloneHydratedRecipes(in []HydratedRecipe) []HydratedRecipe {
	if in == nil {
		return nil
	}
	out := make([]HydratedRecipe, len(in))
	for i, r := range in {
		out[i] = cloneHydratedRecipe(r)
	}
	return out
}

func clonePlanItem(item PlanItem) PlanItem {
	cp := item
	if item.Recipe != nil {
		r := cloneHydratedRecipe(*item.Recipe)
		cp.Recipe = &r
	}
	return cp
}

func cloneHydratedPlan(p HydratedPlan) HydratedPlan {
	cp := p
	if p.Recipes != nil {
		cp.Recipes = make([]PlanItem, len(p.Recipes))
		for i, item := range p.Recipes {
			cp.Recipes[i] = clonePlanItem(item)
		}
	}
	return cp
}

func cloneHydratedPlans(in []HydratedPlan) []HydratedPlan {
	if in == nil {
		return nil
	}
	out := make([]HydratedPlan, len(in))
	for i, p := range in {
		out[i] = cloneHydratedPlan(p)
	}
	return out
}

func cloneUsers(in []User) []User {
	if in == nil {
		return nil
	}
	return append([]User(nil), in...)
}
