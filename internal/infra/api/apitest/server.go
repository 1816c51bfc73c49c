// Package apitest provides an in-memory catalog server for tests. It speaks
// the same HTTP JSON contract as the real backend, issues HS256 bearer
// tokens and supports per-route failure injection.
package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"foodie/pkg/domain"
)

type account struct {
	user     domain.User
	password string
}

// publicUser mirrors the backend user payload, which never exposes the
// admin flag. Admin rights travel in the token's "adm" claim.
type publicUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type session struct {
	AccessToken string     `json:"access_token"`
	User        publicUser `json:"user"`
}

type tokenClaims struct {
	Name  string `json:"name"`
	Admin bool   `json:"adm"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// Server is a running fake catalog API.
type Server struct {
	*httptest.Server

	secret []byte

	mu       sync.Mutex
	products []domain.Product
	recipes  []domain.Recipe
	plans    []domain.Plan
	accounts []account
	failures map[string]int
	calls    []string
}

// New starts a fake server. Close it when done.
func New() *Server {
	s := &Server{
		secret:   []byte(uuid.NewString()),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.record, s.inject)
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.With(s.authorize(false)).Get("/self", s.self)

		r.Route("/products", func(sr chi.Router) {
			sr.Get("/", s.listProducts)
			sr.Get("/{id}", s.getProduct)
			sr.Group(func(ssr chi.Router) {
				ssr.Use(s.authorize(true))
				ssr.Post("/", s.createProduct)
				ssr.Patch("/{id}", s.updateProduct)
				ssr.Delete("/{id}", s.deleteProduct)
			})
		})

		r.Route("/recipes", func(sr chi.Router) {
			sr.Get("/", s.listRecipes)
			sr.Group(func(ssr chi.Router) {
				ssr.Use(s.authorize(false))
				ssr.Post("/", s.createRecipe)
				ssr.Patch("/{id}", s.updateRecipe)
				ssr.Delete("/{id}", s.deleteRecipe)
			})
		})

		r.Route("/plans", func(sr chi.Router) {
			sr.Get("/", s.listPlans)
			sr.Group(func(ssr chi.Router) {
				ssr.Use(s.authorize(false))
				ssr.Post("/", s.createPlan)
				ssr.Patch("/{id}", s.updatePlan)
				ssr.Delete("/{id}", s.deletePlan)
			})
		})

		r.Route("/users", func(sr chi.Router) {
			sr.Group(func(ssr chi.Router) {
				ssr.Use(s.authorize(false))
				ssr.Delete("/", s.deleteSelf)
				ssr.Patch("/", s.changePassword)
			})
			sr.Group(func(ssr chi.Router) {
				ssr.Use(s.authorize(true))
				ssr.Get("/", s.listUsers)
				ssr.Post("/", s.createAdmin)
				ssr.Delete("/{id}", s.deleteUser)
			})
		})
	})
	return r
}

// =============================================================================
// Seeding and inspection
// =============================================================================

// SeedProducts appends products verbatim; duplicate ids are kept.
func (s *Server) SeedProducts(ps ...domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, ps...)
}

// SeedRecipes appends recipes verbatim.
func (s *Server) SeedRecipes(rs ...domain.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes = append(s.recipes, rs...)
}

// SeedPlans appends plans verbatim.
func (s *Server) SeedPlans(ps ...domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = append(s.plans, ps...)
}

// AddUser creates an account and returns its profile.
func (s *Server) AddUser(name, password string, admin bool) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: uuid.NewString(), Name: name, Admin: admin}
	s.accounts = append(s.accounts, account{user: u, password: password})
	return u
}

// IssueToken signs a bearer token for u.
func (s *Server) IssueToken(u domain.User) string {
	claims := tokenClaims{
		Name:  u.Name,
		Admin: u.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Fail makes every request matching method and path answer status until
// Recover is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Recover removes an injected failure.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

// Calls returns "METHOD /path" for every request served, in arrival order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls forgets recorded calls.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Products returns the stored products.
func (s *Server) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Product(nil), s.products...)
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+strings.TrimSuffix(r.URL.Path, "/"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+strings.TrimSuffix(r.URL.Path, "/")]
		s.mu.Unlock()
		if ok {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(admin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}
			claims := &tokenClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
				return s.secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			s.mu.Lock()
			idx := s.accountIndex(claims.Subject)
			var u domain.User
			if idx >= 0 {
				u = s.accounts[idx].user
			}
			s.mu.Unlock()
			if idx < 0 {
				http.Error(w, "unknown user", http.StatusUnauthorized)
				return
			}
			if admin && !u.Admin {
				http.Error(w, "admin required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
		})
	}
}

func currentUser(r *http.Request) domain.User {
	u, _ := r.Context().Value(ctxKey{}).(domain.User)
	return u
}

// =============================================================================
// Session handlers
// =============================================================================

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var cr domain.Credentials
	if !decode(w, r, &cr) {
		return
	}
	if cr.Name == "" || cr.Password == "" {
		http.Error(w, "name and password required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	if s.nameIndex(cr.Name) >= 0 {
		s.mu.Unlock()
		http.Error(w, "user exists", http.StatusConflict)
		return
	}
	u := domain.User{ID: uuid.NewString(), Name: cr.Name}
	s.accounts = append(s.accounts, account{user: u, password: cr.Password})
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, session{AccessToken: s.IssueToken(u), User: toPublic(u)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var cr domain.Credentials
	if !decode(w, r, &cr) {
		return
	}
	s.mu.Lock()
	idx := s.nameIndex(cr.Name)
	var acc account
	if idx >= 0 {
		acc = s.accounts[idx]
	}
	s.mu.Unlock()
	if idx < 0 || acc.password != cr.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, session{AccessToken: s.IssueToken(acc.user), User: toPublic(acc.user)})
}

func (s *Server) self(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toPublic(currentUser(r)))
}

// =============================================================================
// Product handlers
// =============================================================================

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.Products())
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			respondJSON(w, http.StatusOK, p)
			return
		}
	}
	http.Error(w, "product not found", http.StatusNotFound)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decode(w, r, &p) {
		return
	}
	p.ID = uuid.NewString()
	s.mu.Lock()
	s.products = append(s.products, p)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if !decode(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			respondJSON(w, http.StatusOK, p)
			return
		}
	}
	http.Error(w, "product not found", http.StatusNotFound)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recipes {
		for _, link := range rec.Products {
			if link.ProductID == id {
				http.Error(w, "product is referenced", http.StatusConflict)
				return
			}
		}
	}
	kept := s.products[:0]
	found := false
	for _, p := range s.products {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	s.products = kept
	if !found {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Recipe handlers
// =============================================================================

func (s *Server) listRecipes(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]domain.Recipe(nil), s.recipes...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	var rec domain.Recipe
	if !decode(w, r, &rec) {
		return
	}
	rec.ID = uuid.NewString()
	s.mu.Lock()
	s.recipes = append(s.recipes, rec)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request) {
	var rec domain.Recipe
	if !decode(w, r, &rec) {
		return
	}
	rec.ID = chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recipes {
		if s.recipes[i].ID == rec.ID {
			s.recipes[i] = rec
			respondJSON(w, http.StatusOK, rec)
			return
		}
	}
	http.Error(w, "recipe not found", http.StatusNotFound)
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		for _, link := range p.Recipes {
			if link.RecipeID == id {
				http.Error(w, "recipe is referenced", http.StatusConflict)
				return
			}
		}
	}
	kept := s.recipes[:0]
	found := false
	for _, rec := range s.recipes {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	s.recipes = kept
	if !found {
		http.Error(w, "recipe not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Plan handlers
// =============================================================================

func (s *Server) listPlans(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]domain.Plan(nil), s.plans...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var p domain.Plan
	if !decode(w, r, &p) {
		return
	}
	p.ID = uuid.NewString()
	s.mu.Lock()
	s.plans = append(s.plans, p)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	var p domain.Plan
	if !decode(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.plans {
		if s.plans[i].ID == p.ID {
			s.plans[i] = p
			respondJSON(w, http.StatusOK, p)
			return
		}
	}
	http.Error(w, "plan not found", http.StatusNotFound)
}

func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.plans[:0]
	found := false
	for _, p := range s.plans {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	s.plans = kept
	if !found {
		http.Error(w, "plan not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// User handlers
// =============================================================================

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]publicUser, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, toPublic(a.user))
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) createAdmin(w http.ResponseWriter, r *http.Request) {
	var cr domain.Credentials
	if !decode(w, r, &cr) {
		return
	}
	s.mu.Lock()
	if s.nameIndex(cr.Name) >= 0 {
		s.mu.Unlock()
		http.Error(w, "user exists", http.StatusConflict)
		return
	}
	u := domain.User{ID: uuid.NewString(), Name: cr.Name, Admin: true}
	s.accounts = append(s.accounts, account{user: u, password: cr.Password})
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, toPublic(u))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password    string `json:"password"`
		OldPassword string `json:"old_password"`
	}
	if !decode(w, r, &body) {
		return
	}
	u := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.accountIndex(u.ID)
	if idx < 0 || s.accounts[idx].password != body.OldPassword {
		http.Error(w, "invalid old password", http.StatusBadRequest)
		return
	}
	s.accounts[idx].password = body.Password
	respondJSON(w, http.StatusOK, toPublic(u))
}

func (s *Server) deleteSelf(w http.ResponseWriter, r *http.Request) {
	s.removeAccount(w, currentUser(r).ID)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.removeAccount(w, chi.URLParam(r, "id"))
}

func (s *Server) removeAccount(w http.ResponseWriter, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.accountIndex(id)
	if idx < 0 {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	s.accounts = append(s.accounts[:idx], s.accounts[idx+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) accountIndex(id string) int {
	for i, a := range s.accounts {
		if a.user.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) nameIndex(name string) int {
	for i, a := range s.accounts {
		if a.user.Name == name {
			return i
		}
	}
	return -1
}

func toPublic(u domain.User) publicUser { return publicUser{ID: u.ID, Name: u.Name} }

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			http.Error(w, "malformed json", http.StatusBadRequest)
			return false
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
