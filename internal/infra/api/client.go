// Package api implements the remote catalog contract over the HTTP JSON API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"foodie/pkg/domain"
)

var _ domain.CatalogAPI = (*Client)(nil)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Client talks to the catalog server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// Config holds client configuration.
type Config struct {
	URL        string
	HTTPClient *http.Client
	Timeout    time.Duration // used when HTTPClient is nil
	RateLimit  float64       // requests per second, 0 disables
	Logger     logrus.FieldLogger
}

// New creates a catalog API client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		log:        log.WithField("component", "api"),
	}, nil
}

// =============================================================================
// Products
// =============================================================================

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := c.do(ctx, http.MethodGet, "/api/products", "", nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), "", nil, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, token string, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodPost, "/api/products", token, p, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, token string, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodPatch, "/api/products/"+url.PathEscape(p.ID), token, p, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), token, nil, nil)
}

// =============================================================================
// Recipes
// =============================================================================

func (c *Client) ListRecipes(ctx context.Context) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := c.do(ctx, http.MethodGet, "/api/recipes", "", nil, &out)
	return out, err
}

func (c *Client) CreateRecipe(ctx context.Context, token string, r domain.Recipe) (domain.Recipe, error) {
	var out domain.Recipe
	err := c.do(ctx, http.MethodPost, "/api/recipes", token, r, &out)
	return out, err
}

func (c *Client) UpdateRecipe(ctx context.Context, token string, r domain.Recipe) (domain.Recipe, error) {
	var out domain.Recipe
	err := c.do(ctx, http.MethodPatch, "/api/recipes/"+url.PathEscape(r.ID), token, r, &out)
	return out, err
}

func (c *Client) DeleteRecipe(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/recipes/"+url.PathEscape(id), token, nil, nil)
}

// =============================================================================
// Plans
// =============================================================================

func (c *Client) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	err := c.do(ctx, http.MethodGet, "/api/plans", "", nil, &out)
	return out, err
}

func (c *Client) CreatePlan(ctx context.Context, token string, p domain.Plan) (domain.Plan, error) {
	var out domain.Plan
	err := c.do(ctx, http.MethodPost, "/api/plans", token, p, &out)
	return out, err
}

func (c *Client) UpdatePlan(ctx context.Context, token string, p domain.Plan) (domain.Plan, error) {
	var out domain.Plan
	err := c.do(ctx, http.MethodPatch, "/api/plans/"+url.PathEscape(p.ID), token, p, &out)
	return out, err
}

func (c *Client) DeletePlan(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/plans/"+url.PathEscape(id), token, nil, nil)
}

// =============================================================================
// Users and session
// =============================================================================

func (c *Client) ListUsers(ctx context.Context, token string) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, http.MethodGet, "/api/users", token, nil, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) Login(ctx context.Context, cr domain.Credentials) (domain.Session, error) {
	var out domain.Session
	err := c.do(ctx, http.MethodPost, "/api/login", "", cr, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, cr domain.Credentials) (domain.Session, error) {
	var out domain.Session
	err := c.do(ctx, http.MethodPost, "/api/register", "", cr, &out)
	return out, err
}

func (c *Client) Self(ctx context.Context, token string) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, http.MethodGet, "/api/self", token, nil, &out)
	return out, err
}

func (c *Client) CreateAdmin(ctx context.Context, token string, cr domain.Credentials) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, http.MethodPost, "/api/users", token, cr, &out)
	return out, err
}

// PasswordChange is the body of the password change call.
type PasswordChange struct {
	Password    string `json:"password"`
	OldPassword string `json:"old_password"`
}

func (c *Client) ChangePassword(ctx context.Context, token, password, oldPassword string) error {
	body := PasswordChange{Password: password, OldPassword: oldPassword}
	return c.do(ctx, http.MethodPatch, "/api/users", token, body, nil)
}

func (c *Client) DeleteAccount(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/api/users", token, nil, nil)
}

// =============================================================================
// Transport
// =============================================================================

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	entry := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	entry.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
