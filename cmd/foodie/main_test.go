package main

import (
	"bytes"
	"context"
	"encoding/json"
	"expvar"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"foodie/internal/config"
	"foodie/internal/core"
	"foodie/internal/infra/api/apitest"
	"foodie/pkg/domain"
)

func newEnv(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	t.Setenv("FOODIE_API_URL", srv.URL)
	t.Setenv("FOODIE_STORAGE_DRIVER", "fs")
	t.Setenv("FOODIE_STORAGE_FS_ROOT", t.TempDir())
	t.Setenv("FOODIE_LOG_LEVEL", "error")
	t.Setenv("FOODIE_METRICS_ADDR", "")
	t.Setenv("FOODIE_METRICS_BACKEND", config.MetricsPrometheus)
	return srv
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func seed(srv *apitest.Server) {
	srv.SeedProducts(domain.Product{
		ID:   "p1",
		Name: "Oats",
		Serving: domain.Serving{
			Type:     domain.ServingTypeGrams,
			Size:     decimal.NewFromInt(100),
			Calories: decimal.NewFromInt(389),
		},
	})
	srv.SeedRecipes(domain.Recipe{
		ID:       "r1",
		Name:     "Porridge",
		Products: []domain.RecipeProduct{{ProductID: "p1", Quantity: decimal.RequireFromString("0.5")}},
	})
	srv.SeedPlans(domain.Plan{
		ID:      "pl1",
		Name:    "Week",
		Recipes: []domain.PlanRecipe{{RecipeID: "r1", Quantity: 7}},
	})
}

func TestCLIUsageErrors(t *testing.T) {
	newEnv(t)
	if code, _, _ := run(t); code != 2 {
		t.Fatalf("no command: expected 2, got %d", code)
	}
	if code, _, stderr := run(t, "frobnicate"); code != 2 || !strings.Contains(stderr, "unknown command") {
		t.Fatalf("unknown command: code %d stderr %q", code, stderr)
	}
	if code, _, _ := run(t, "-nope"); code != 2 {
		t.Fatalf("bad flag: expected 2, got %d", code)
	}
	if code, _, stderr := run(t, "product"); code != 2 || !strings.Contains(stderr, "usage: foodie product <id>") {
		t.Fatalf("missing argument: code %d stderr %q", code, stderr)
	}
}

func TestCLIConfigError(t *testing.T) {
	newEnv(t)
	t.Setenv("FOODIE_LOG_LEVEL", "chatty")
	if code, _, stderr := run(t, "products"); code != 1 || !strings.Contains(stderr, "config") {
		t.Fatalf("expected config failure, got %d %q", code, stderr)
	}
}

func TestCLIListsHydratedPlans(t *testing.T) {
	srv := newEnv(t)
	seed(srv)

	code, out, stderr := run(t, "plans")
	if code != 0 {
		t.Fatalf("plans failed: %d %s", code, stderr)
	}
	var plans []map[string]any
	if err := json.Unmarshal([]byte(out), &plans); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(plans))
	}
	recipes, _ := plans[0]["recipes"].([]any)
	if len(recipes) != 1 {
		t.Fatalf("expected one plan slot, got %v", plans[0]["recipes"])
	}
	slot, _ := recipes[0].(map[string]any)
	if slot["name"] != "Porridge" || slot["quantity"] != float64(7) {
		t.Fatalf("plan slot not hydrated: %v", slot)
	}
	products, _ := slot["products"].([]any)
	item, _ := products[0].(map[string]any)
	if item["name"] != "Oats" || item["quantity"] != "0.5" {
		t.Fatalf("recipe slot not hydrated: %v", item)
	}
}

func TestCLIProductLookup(t *testing.T) {
	srv := newEnv(t)
	seed(srv)
	code, out, _ := run(t, "product", "p1")
	if code != 0 {
		t.Fatalf("product failed: %d", code)
	}
	var p domain.Product
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != "p1" || p.Name != "Oats" {
		t.Fatalf("unexpected product %+v", p)
	}
	if code, _, stderr := run(t, "product", "ghost"); code != 1 || !strings.Contains(stderr, "404") {
		t.Fatalf("missing product: %d %q", code, stderr)
	}
}

func TestCLISessionPersistsAcrossInvocations(t *testing.T) {
	srv := newEnv(t)
	srv.AddUser("admin", "secret", true)

	if code, _, stderr := run(t, "login", "admin", "secret"); code != 0 {
		t.Fatalf("login failed: %d %s", code, stderr)
	}
	code, out, stderr := run(t, "whoami")
	if code != 0 {
		t.Fatalf("whoami failed: %d %s", code, stderr)
	}
	var view sessionView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.User.Name != "admin" || !view.Admin {
		t.Fatalf("unexpected session %+v", view)
	}

	if code, _, _ := run(t, "logout"); code != 0 {
		t.Fatalf("logout failed: %d", code)
	}
	if code, _, stderr := run(t, "whoami"); code != 1 || !strings.Contains(stderr, "not logged in") {
		t.Fatalf("expected logged out, got %d %q", code, stderr)
	}
}

func TestCLILogoutPurgeRemovesSlot(t *testing.T) {
	srv := newEnv(t)
	root := t.TempDir()
	t.Setenv("FOODIE_STORAGE_FS_ROOT", root)
	srv.AddUser("admin", "secret", true)

	if code, _, stderr := run(t, "login", "admin", "secret"); code != 0 {
		t.Fatalf("login failed: %d %s", code, stderr)
	}
	before, err := os.ReadDir(root)
	if err != nil || len(before) == 0 {
		t.Fatalf("expected a stored credential, got %v (%v)", before, err)
	}
	if code, _, stderr := run(t, "logout", "-purge"); code != 0 {
		t.Fatalf("logout -purge: %d %s", code, stderr)
	}
	after, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read store root: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("slot should be removed, found %d entries", len(after))
	}
	if code, _, _ := run(t, "whoami"); code != 1 {
		t.Fatalf("expected logged out after purge")
	}
	if code, _, _ := run(t, "logout", "extra"); code != 2 {
		t.Fatalf("logout with argument should be a usage error")
	}
}

func TestCLILoginRejected(t *testing.T) {
	srv := newEnv(t)
	srv.AddUser("ann", "right", false)
	code, _, stderr := run(t, "login", "ann", "wrong")
	if code != 1 || !strings.Contains(stderr, "Invalid name or password") {
		t.Fatalf("expected rejection, got %d %q", code, stderr)
	}
}

func TestCLIAdminCommandsRequireAdmin(t *testing.T) {
	srv := newEnv(t)
	if code, _, stderr := run(t, "users"); code != 1 || !strings.Contains(stderr, "not logged in") {
		t.Fatalf("anonymous users: %d %q", code, stderr)
	}
	if code, _, _ := run(t, "register", "bob", "pw"); code != 0 {
		t.Fatalf("register failed: %d", code)
	}
	if code, _, stderr := run(t, "users"); code != 1 || !strings.Contains(stderr, "admin rights required") {
		t.Fatalf("non-admin users: %d %q", code, stderr)
	}
	if code, _, stderr := run(t, "register", "bob", "pw"); code != 1 || !strings.Contains(stderr, "User with this name already exists.") {
		t.Fatalf("duplicate register: %d %q", code, stderr)
	}

	srv.AddUser("root", "toor", true)
	if code, _, _ := run(t, "login", "root", "toor"); code != 0 {
		t.Fatalf("admin login failed")
	}
	code, out, stderr := run(t, "users")
	if code != 0 {
		t.Fatalf("admin users: %d %s", code, stderr)
	}
	if !strings.Contains(out, "bob") || !strings.Contains(out, "root") {
		t.Fatalf("listing misses accounts: %s", out)
	}
	if code, _, stderr := run(t, "admin-create", "carol", "pw"); code != 0 {
		t.Fatalf("admin-create: %d %s", code, stderr)
	}
}

func TestCLIWritesFromFiles(t *testing.T) {
	srv := newEnv(t)
	seed(srv)
	srv.AddUser("admin", "secret", true)
	if code, _, _ := run(t, "login", "admin", "secret"); code != 0 {
		t.Fatalf("login failed")
	}

	productFile := writeTestFile(t, "product.json", `{"name":"Milk","serving":{"type":1,"size":"100","calories":"64"}}`)
	code, out, stderr := run(t, "product-create", productFile)
	if code != 0 {
		t.Fatalf("product-create: %d %s", code, stderr)
	}
	var created domain.Product
	if err := json.Unmarshal([]byte(out), &created); err != nil || created.ID == "" {
		t.Fatalf("unexpected create output %q (%v)", out, err)
	}

	// Hydrated slots are accepted and written back in normalized form.
	recipeFile := writeTestFile(t, "recipe.json", `{"name":"Muesli","products":[{"id":"p1","name":"Oats","quantity":"0.3"},{"product_id":"`+created.ID+`","quantity":"2"}]}`)
	if code, _, stderr := run(t, "recipe-create", recipeFile); code != 0 {
		t.Fatalf("recipe-create: %d %s", code, stderr)
	}
	code, out, _ = run(t, "recipes")
	if code != 0 || !strings.Contains(out, "Muesli") || !strings.Contains(out, "Milk") {
		t.Fatalf("recipes after create: %d %s", code, out)
	}

	if code, _, stderr := run(t, "product-delete", "p1"); code != 1 || !strings.Contains(stderr, "Product is in use.") {
		t.Fatalf("delete referenced product: %d %q", code, stderr)
	}
	if code, _, stderr := run(t, "recipe-delete", "r1"); code != 1 || !strings.Contains(stderr, "Recipe is in use.") {
		t.Fatalf("delete referenced recipe: %d %q", code, stderr)
	}

	empty := writeTestFile(t, "empty.json", "")
	if code, _, _ := run(t, "product-create", empty); code != 1 {
		t.Fatalf("empty input should fail, got %d", code)
	}
	noID := writeTestFile(t, "noid.json", `{"name":"x"}`)
	if code, _, stderr := run(t, "plan-update", noID); code != 1 || !strings.Contains(stderr, "plan id required") {
		t.Fatalf("plan-update without id: %d %q", code, stderr)
	}
}

func TestCLIAccountCommands(t *testing.T) {
	srv := newEnv(t)
	srv.AddUser("dana", "old", false)
	if code, _, _ := run(t, "login", "dana", "old"); code != 0 {
		t.Fatalf("login failed")
	}
	if code, _, stderr := run(t, "passwd", "new", "wrong"); code != 1 || !strings.Contains(stderr, "Invalid old password") {
		t.Fatalf("wrong old password: %d %q", code, stderr)
	}
	if code, _, stderr := run(t, "passwd", "new", "old"); code != 0 {
		t.Fatalf("passwd: %d %s", code, stderr)
	}
	if code, _, stderr := run(t, "delete-account"); code != 0 {
		t.Fatalf("delete-account: %d %s", code, stderr)
	}
	if code, _, _ := run(t, "whoami"); code != 1 {
		t.Fatalf("session should be gone after deleting the account")
	}
	if code, _, _ := run(t, "login", "dana", "new"); code != 1 {
		t.Fatalf("deleted account should not log in")
	}
}

func TestCLIWatchSingleIteration(t *testing.T) {
	srv := newEnv(t)
	seed(srv)
	trace := filepath.Join(t.TempDir(), "trace.jsonl")
	code, out, stderr := run(t, "-trace", trace, "watch", "-interval", "10ms", "-iterations", "2")
	if code != 0 {
		t.Fatalf("watch failed: %d %s", code, stderr)
	}
	if !strings.Contains(out, "Week") {
		t.Fatalf("watch output misses plan: %s", out)
	}
	data, err := os.ReadFile(trace)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if !strings.Contains(string(data), "plan.retrieve_all") {
		t.Fatalf("trace misses plan refresh: %s", data)
	}
	if code, _, _ := run(t, "watch", "-interval", "0s"); code != 2 {
		t.Fatalf("zero interval should be a usage error, got %d", code)
	}
}

func TestCLIWatchPrintsLastPlansOnCancel(t *testing.T) {
	srv := newEnv(t)
	seed(srv)
	cfg, err := config.Load("", "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	var out bytes.Buffer
	a, err := newApp(context.Background(), cfg, "", &out, io.Discard)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watch(ctx, a, []string{"-interval", "1h"}) }()
	// The first refresh lands in the plan cache before watch blocks on the ticker.
	for deadline := time.Now().Add(5 * time.Second); len(a.catalog.Plans.Plans()) == 0; {
		if time.Now().After(deadline) {
			t.Fatalf("first refresh never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out.String(), "Week") {
		t.Fatalf("cancelled watch should print the last plans, got %q", out.String())
	}
}

func TestCLIExpvarMetricsBackend(t *testing.T) {
	srv := newEnv(t)
	seed(srv)
	t.Setenv("FOODIE_METRICS_BACKEND", config.MetricsExpvar)

	if code, _, stderr := run(t, "products"); code != 0 {
		t.Fatalf("products failed: %d %s", code, stderr)
	}
	v := expvar.Get(core.DefaultExpvarName)
	if v == nil || !strings.Contains(v.String(), "product.retrieve_all") {
		t.Fatalf("expvar map misses product refresh: %v", v)
	}
}

func TestAppMetricsEndpoint(t *testing.T) {
	for _, tc := range []struct {
		backend, path, want string
	}{
		{config.MetricsPrometheus, "/metrics", "foodie_operation"},
		{config.MetricsExpvar, "/debug/vars", core.DefaultExpvarName},
	} {
		t.Run(tc.backend, func(t *testing.T) {
			srv := newEnv(t)
			seed(srv)
			t.Setenv("FOODIE_METRICS_BACKEND", tc.backend)
			cfg, err := config.Load("", "")
			if err != nil {
				t.Fatalf("load config: %v", err)
			}
			a, err := newApp(context.Background(), cfg, "", io.Discard, io.Discard)
			if err != nil {
				t.Fatalf("new app: %v", err)
			}
			defer a.close()
			if a.metricsPath != tc.path {
				t.Fatalf("expected path %s, got %s", tc.path, a.metricsPath)
			}
			if _, err := a.catalog.Products.RetrieveAll(context.Background()); err != nil {
				t.Fatalf("retrieve: %v", err)
			}

			rec := httptest.NewRecorder()
			a.metricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("unexpected metrics response %d: %.200s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMainFunctionCoversSuccessAndFailure(t *testing.T) {
	srv := newEnv(t)
	seed(srv)
	var codes []int
	oldExit, oldArgs := exitFunc, os.Args
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc, os.Args = oldExit, oldArgs }()

	// main writes to the real stdout; silence it for the duration.
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open devnull: %v", err)
	}
	oldStdout, oldStderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = devnull, devnull
	defer func() {
		os.Stdout, os.Stderr = oldStdout, oldStderr
		_ = devnull.Close()
	}()

	os.Args = []string{"foodie", "products"}
	main()
	os.Args = []string{"foodie", "product", "ghost"}
	main()
	if len(codes) != 2 {
		t.Fatalf("expected two exit codes, got %v", codes)
	}
	if codes[0] != 0 || codes[1] == 0 {
		t.Fatalf("unexpected exit codes: %v", codes)
	}
}
