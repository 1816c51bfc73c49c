package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func oats() Product {
	return Product{
		ID:          "p1",
		Name:        "Oats",
		Description: "rolled",
		ImageURL:    "oats.png",
		Serving: Serving{
			Type:     ServingTypeGrams,
			Size:     decimal.NewFromInt(100),
			Calories: decimal.NewFromInt(389),
		},
	}
}

func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestRecipeItemJSONShapes(t *testing.T) {
	p := oats()
	resolved := asMap(t, RecipeItem{ProductID: "p1", Quantity: decimal.RequireFromString("1.5"), Product: &p})
	if resolved["id"] != "p1" || resolved["name"] != "Oats" || resolved["quantity"] != "1.5" {
		t.Fatalf("unexpected resolved shape %v", resolved)
	}
	if _, ok := resolved["product_id"]; ok {
		t.Fatalf("resolved slot should not carry product_id: %v", resolved)
	}
	if _, ok := resolved["serving"].(map[string]any); !ok {
		t.Fatalf("resolved slot should carry the serving: %v", resolved)
	}

	unresolved := asMap(t, RecipeItem{ProductID: "ghost", Quantity: decimal.NewFromInt(2)})
	if len(unresolved) != 2 || unresolved["product_id"] != "ghost" || unresolved["quantity"] != "2" {
		t.Fatalf("unexpected unresolved shape %v", unresolved)
	}
}

func TestRecipeItemUnmarshalAcceptsBothShapes(t *testing.T) {
	var items []RecipeItem
	raw := `[{"product_id":"p2","quantity":"3"},{"id":"p1","name":"Oats","quantity":"0.5","serving":{"type":1,"size":"100","calories":"389"}}]`
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if items[0].Resolved() || items[0].ProductID != "p2" || !items[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected normalized slot %+v", items[0])
	}
	if !items[1].Resolved() || items[1].ProductID != "p1" || items[1].Product.Name != "Oats" {
		t.Fatalf("unexpected hydrated slot %+v", items[1])
	}
	if !items[1].Quantity.Equal(decimal.RequireFromString("0.5")) || !items[1].Product.Serving.Calories.Equal(decimal.NewFromInt(389)) {
		t.Fatalf("hydrated slot lost numbers %+v", items[1])
	}
	if err := json.Unmarshal([]byte(`{"quantity":"x"}`), &items[0]); err == nil {
		t.Fatalf("expected error for malformed quantity")
	}
}

func TestPlanItemQuantityIsOutermost(t *testing.T) {
	p := oats()
	r := HydratedRecipe{
		ID:       "r1",
		Name:     "Porridge",
		Products: []RecipeItem{{ProductID: "p1", Quantity: decimal.RequireFromString("0.5"), Product: &p}},
	}
	m := asMap(t, PlanItem{RecipeID: "r1", Quantity: 7, Recipe: &r})
	if m["id"] != "r1" || m["quantity"] != float64(7) {
		t.Fatalf("unexpected plan slot %v", m)
	}
	products := m["products"].([]any)
	inner := products[0].(map[string]any)
	if inner["quantity"] != "0.5" || inner["name"] != "Oats" {
		t.Fatalf("recipe slot lost its own quantity: %v", inner)
	}

	bare := asMap(t, PlanItem{RecipeID: "gone", Quantity: 2})
	if len(bare) != 2 || bare["recipe_id"] != "gone" || bare["quantity"] != float64(2) {
		t.Fatalf("unexpected unresolved plan slot %v", bare)
	}
}

func TestPlanItemUnmarshal(t *testing.T) {
	var item PlanItem
	if err := json.Unmarshal([]byte(`{"id":"r1","name":"Porridge","quantity":4,"products":[{"product_id":"p1","quantity":"1"}]}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !item.Resolved() || item.RecipeID != "r1" || item.Quantity != 4 || len(item.Recipe.Products) != 1 {
		t.Fatalf("unexpected item %+v", item)
	}
	if err := json.Unmarshal([]byte(`{"recipe_id":"r2","quantity":1}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Resolved() || item.RecipeID != "r2" {
		t.Fatalf("stale recipe kept after decoding a link: %+v", item)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	p := oats()
	h := HydratedPlan{
		ID:   "pl1",
		Name: "Week",
		Recipes: []PlanItem{
			{RecipeID: "r1", Quantity: 7, Recipe: &HydratedRecipe{ID: "r1", Products: []RecipeItem{{ProductID: "p1", Quantity: decimal.NewFromInt(1), Product: &p}}}},
			{RecipeID: "ghost", Quantity: 1},
		},
	}
	plan := h.Normalize()
	want := []PlanRecipe{{RecipeID: "r1", Quantity: 7}, {RecipeID: "ghost", Quantity: 1}}
	if plan.ID != "pl1" || plan.Name != "Week" || len(plan.Recipes) != 2 || plan.Recipes[0] != want[0] || plan.Recipes[1] != want[1] {
		t.Fatalf("unexpected plan %+v", plan)
	}

	recipe := h.Recipes[0].Recipe.Normalize()
	if len(recipe.Products) != 1 || recipe.Products[0].ProductID != "p1" {
		t.Fatalf("unexpected recipe %+v", recipe)
	}
	empty := HydratedRecipe{ID: "r9"}.Normalize()
	if empty.Products == nil {
		t.Fatalf("normalized products should be an empty list, not null")
	}
}

func TestServingTypeIsValid(t *testing.T) {
	if !ServingTypeGrams.IsValid() || !ServingTypeUnits.IsValid() {
		t.Fatalf("known serving types rejected")
	}
	if ServingType(0).IsValid() || ServingType(3).IsValid() {
		t.Fatalf("unknown serving types accepted")
	}
}
