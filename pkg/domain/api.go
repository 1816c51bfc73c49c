package domain

import "context"

// ProductAPI is the remote product collection.
type ProductAPI interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateProduct(ctx context.Context, token string, p Product) (Product, error)
	UpdateProduct(ctx context.Context, token string, p Product) (Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
}

// RecipeAPI is the remote recipe collection. Records are exchanged in their
// normalized form.
type RecipeAPI interface {
	ListRecipes(ctx context.Context) ([]Recipe, error)
	CreateRecipe(ctx context.Context, token string, r Recipe) (Recipe, error)
	UpdateRecipe(ctx context.Context, token string, r Recipe) (Recipe, error)
	DeleteRecipe(ctx context.Context, token, id string) error
}

// PlanAPI is the remote plan collection.
type PlanAPI interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	CreatePlan(ctx context.Context, token string, p Plan) (Plan, error)
	UpdatePlan(ctx context.Context, token string, p Plan) (Plan, error)
	DeletePlan(ctx context.Context, token, id string) error
}

// UserAPI covers the admin user listing.
type UserAPI interface {
	ListUsers(ctx context.Context, token string) ([]User, error)
	DeleteUser(ctx context.Context, token, id string) error
}

// AuthAPI covers login, registration and self-service account calls.
type AuthAPI interface {
	Login(ctx context.Context, c Credentials) (Session, error)
	Register(ctx context.Context, c Credentials) (Session, error)
	Self(ctx context.Context, token string) (User, error)
	CreateAdmin(ctx context.Context, token string, c Credentials) (User, error)
	ChangePassword(ctx context.Context, token, password, oldPassword string) error
	DeleteAccount(ctx context.Context, token string) error
}

// CatalogAPI is the full remote contract consumed by the client core.
type CatalogAPI interface {
	ProductAPI
	RecipeAPI
	PlanAPI
	UserAPI
	AuthAPI
}
