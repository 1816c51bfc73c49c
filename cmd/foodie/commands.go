package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"foodie/pkg/domain"
)

type command struct {
	args string
	help string
	run  func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"products":       {"", "list products", listProducts},
		"product":        {"<id>", "show one product", showProduct},
		"product-create": {"<file.json>", "create a product", createProduct},
		"product-update": {"<file.json>", "update a product", updateProduct},
		"product-delete": {"<id>", "delete a product", deleteProduct},
		"recipes":        {"", "list hydrated recipes", listRecipes},
		"recipe-create":  {"<file.json>", "create a recipe", createRecipe},
		"recipe-update":  {"<file.json>", "update a recipe", updateRecipe},
		"recipe-delete":  {"<id>", "delete a recipe", deleteRecipe},
		"plans":          {"", "list hydrated plans", listPlans},
		"plan-create":    {"<file.json>", "create a plan", createPlan},
		"plan-update":    {"<file.json>", "update a plan", updatePlan},
		"plan-delete":    {"<id>", "delete a plan", deletePlan},
		"login":          {"<name> <password>", "log in and store the credential", login},
		"register":       {"<name> <password>", "create an account and log in", register},
		"logout":         {"[-purge]", "forget the stored credential (-purge removes the slot)", logout},
		"whoami":         {"", "show the current session", whoami},
		"passwd":         {"<new> <old>", "change the account password", passwd},
		"delete-account": {"", "delete the current account", deleteAccount},
		"users":          {"", "list users (admin)", listUsers},
		"user-delete":    {"<id>", "delete a user (admin)", deleteUser},
		"admin-create":   {"<name> <password>", "create an admin account (admin)", createAdmin},
		"watch":          {"[-interval d] [-iterations n]", "refresh plans periodically and serve metrics", watch},
	}
}

var (
	errNotLoggedIn   = errors.New("not logged in")
	errAdminRequired = errors.New("admin rights required")
)

func wantArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %d argument(s), got %d", errUsage, n, len(args))
	}
	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) requireAdmin() error {
	if !a.catalog.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}
	if !a.catalog.Auth.IsAdmin() {
		return errAdminRequired
	}
	return nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// Products
// =============================================================================

func listProducts(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	products, err := a.catalog.Products.RetrieveAll(ctx)
	if err != nil {
		return err
	}
	return a.print(products)
}

func showProduct(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	p, err := a.catalog.Products.RetrieveOne(ctx, args[0])
	if err != nil {
		return err
	}
	return a.print(p)
}

func createProduct(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	var p domain.Product
	if err := readJSON(args[0], &p); err != nil {
		return err
	}
	created, err := a.catalog.Products.Create(ctx, p)
	if err != nil {
		return err
	}
	return a.print(created)
}

func updateProduct(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	var p domain.Product
	if err := readJSON(args[0], &p); err != nil {
		return err
	}
	if p.ID == "" {
		return errors.New("product id required")
	}
	updated, err := a.catalog.Products.Update(ctx, p)
	if err != nil {
		return err
	}
	return a.print(updated)
}

func deleteProduct(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	return a.catalog.Products.Delete(ctx, args[0])
}

// =============================================================================
// Recipes
// =============================================================================

func listRecipes(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	recipes, err := a.catalog.Recipes.RetrieveAll(ctx)
	if err != nil {
		return err
	}
	return a.print(recipes)
}

// readRecipe accepts a recipe file in normalized or hydrated form.
func readRecipe(path string) (domain.Recipe, error) {
	var h domain.HydratedRecipe
	if err := readJSON(path, &h); err != nil {
		return domain.Recipe{}, err
	}
	return h.Normalize(), nil
}

func createRecipe(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	r, err := readRecipe(args[0])
	if err != nil {
		return err
	}
	created, err := a.catalog.Recipes.Create(ctx, r)
	if err != nil {
		return err
	}
	return a.print(created)
}

func updateRecipe(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	r, err := readRecipe(args[0])
	if err != nil {
		return err
	}
	if r.ID == "" {
		return errors.New("recipe id required")
	}
	updated, err := a.catalog.Recipes.Update(ctx, r)
	if err != nil {
		return err
	}
	return a.print(updated)
}

func deleteRecipe(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	return a.catalog.Recipes.Delete(ctx, args[0])
}

// =============================================================================
// Plans
// =============================================================================

func listPlans(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	plans, err := a.catalog.Plans.RetrieveAll(ctx)
	if err != nil {
		return err
	}
	return a.print(plans)
}

func readPlan(path string) (domain.Plan, error) {
	var h domain.HydratedPlan
	if err := readJSON(path, &h); err != nil {
		return domain.Plan{}, err
	}
	return h.Normalize(), nil
}

func createPlan(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	p, err := readPlan(args[0])
	if err != nil {
		return err
	}
	created, err := a.catalog.Plans.Create(ctx, p)
	if err != nil {
		return err
	}
	return a.print(created)
}

func updatePlan(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	p, err := readPlan(args[0])
	if err != nil {
		return err
	}
	if p.ID == "" {
		return errors.New("plan id required")
	}
	updated, err := a.catalog.Plans.Update(ctx, p)
	if err != nil {
		return err
	}
	return a.print(updated)
}

func deletePlan(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	return a.catalog.Plans.Delete(ctx, args[0])
}

// =============================================================================
// Session
// =============================================================================

func login(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 2); err != nil {
		return err
	}
	user, err := a.catalog.Auth.Authorize(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.print(user)
}

func register(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 2); err != nil {
		return err
	}
	user, err := a.catalog.Auth.Register(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.print(user)
}

func logout(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	purge := fs.Bool("purge", false, "delete the credential slot instead of emptying it")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := wantArgs(fs.Args(), 0); err != nil {
		return err
	}
	if *purge {
		existed, err := a.catalog.Auth.Forget(ctx)
		if err != nil {
			return err
		}
		a.log.WithField("existed", existed).Info("credential slot removed")
		return nil
	}
	return a.catalog.Auth.Clear(ctx)
}

type sessionView struct {
	User  domain.User `json:"user"`
	Admin bool        `json:"admin"`
}

func whoami(_ context.Context, a *app, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	if !a.catalog.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}
	return a.print(sessionView{User: a.catalog.Auth.User(), Admin: a.catalog.Auth.IsAdmin()})
}

func passwd(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 2); err != nil {
		return err
	}
	if !a.catalog.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}
	return a.catalog.Auth.ChangePassword(ctx, args[0], args[1])
}

func deleteAccount(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	if !a.catalog.Auth.IsAuthenticated() {
		return errNotLoggedIn
	}
	return a.catalog.Auth.DeleteAccount(ctx)
}

// =============================================================================
// Users (admin)
// =============================================================================

func listUsers(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	if err := a.requireAdmin(); err != nil {
		return err
	}
	users, err := a.catalog.Users.RetrieveAll(ctx)
	if err != nil {
		return err
	}
	return a.print(users)
}

func deleteUser(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.catalog.Users.Delete(ctx, args[0])
}

func createAdmin(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 2); err != nil {
		return err
	}
	if err := a.requireAdmin(); err != nil {
		return err
	}
	user, err := a.catalog.Auth.CreateAdmin(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.print(user)
}

// =============================================================================
// Watch
// =============================================================================

func watch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	interval := fs.Duration("interval", 30*time.Second, "refresh interval")
	iterations := fs.Int("iterations", 0, "stop after n refreshes (0 runs until interrupted)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", errUsage)
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle(a.metricsPath, a.metricsHandler)
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.WithError(err).Error("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.log.WithField("addr", addr).WithField("path", a.metricsPath).Info("serving metrics")
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	var (
		last    []domain.HydratedPlan
		lastErr error
	)
	for n := 1; ; n++ {
		plans, err := a.catalog.Plans.RetrieveAll(ctx)
		if err != nil {
			a.log.WithError(err).Warn("refresh failed")
		} else {
			last = plans
			a.log.WithField("count", len(plans)).Info("plans refreshed")
		}
		lastErr = err
		if *iterations > 0 && n >= *iterations {
			if lastErr != nil {
				return lastErr
			}
			return a.print(last)
		}
		select {
		case <-ctx.Done():
			return a.print(last)
		case <-ticker.C:
		}
	}
}
