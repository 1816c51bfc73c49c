package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"foodie/internal/localstore"
	"foodie/pkg/domain"
)

const entityAuth EntityType = "auth"

// adminClaim is the bearer token claim carrying the admin flag.
const adminClaim = "adm"

// Auth holds the session: bearer credential, profile and authorized flag.
// The credential survives restarts through a single slot in a local store.
// Auth satisfies CredentialSource; stores read Token at call time.
type Auth struct {
	api   domain.AuthAPI
	slot  localstore.Store
	key   string
	users *UserStore
	obs   *observer

	mu         sync.RWMutex
	token      string
	user       User
	authorized bool
}

// NewAuth builds an unauthenticated session bound to slot.
func NewAuth(api domain.AuthAPI, slot localstore.Store, opts ...Option) *Auth {
	o := newOptions(opts)
	return &Auth{api: api, slot: slot, key: o.slotKey, obs: o.observer(entityAuth)}
}

// Token returns the current bearer credential, empty when logged out.
func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// User returns the profile of the logged in user.
func (a *Auth) User() User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

// IsAuthenticated reports whether a verified session is held.
func (a *Auth) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.authorized
}

// IsAdmin reports whether the session belongs to an administrator. The
// profile flag is used when present, otherwise the unverified token claim.
func (a *Auth) IsAdmin() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.authorized {
		return false
	}
	return a.user.Admin || tokenClaimsAdmin(a.token)
}

func tokenClaimsAdmin(token string) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	adm, _ := claims[adminClaim].(bool)
	return adm
}

// Restore loads the stored credential and verifies it against the remote
// profile endpoint. Any failure clears the session and the slot; nothing is
// reported to the caller.
func (a *Auth) Restore(ctx context.Context) {
	token, err := a.slot.Get(ctx, a.key)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			a.obs.log.WithError(err).Warn("read credential slot failed")
		}
		return
	}
	if token == "" {
		return
	}
	_ = a.obs.run(ctx, "restore", func(ctx context.Context) error {
		user, err := a.api.Self(ctx, token)
		if err != nil {
			if cerr := a.Clear(ctx); cerr != nil {
				a.obs.log.WithError(cerr).Warn("clear credential slot failed")
			}
			return err
		}
		a.set(token, user)
		return nil
	})
}

// Authorize logs in with name and password and persists the credential.
// Rejected credentials fail with domain.ErrInvalidCredentials.
func (a *Auth) Authorize(ctx context.Context, name, password string) (User, error) {
	var session domain.Session
	err := a.obs.run(ctx, "authorize", func(ctx context.Context) error {
		var err error
		session, err = a.api.Login(ctx, domain.Credentials{Name: name, Password: password})
		return mapStatus(err, http.StatusUnauthorized, domain.ErrInvalidCredentials)
	})
	if err != nil {
		return User{}, err
	}
	return session.User, a.begin(ctx, session)
}

// Register creates an account and logs it in. A taken name fails with
// domain.ErrUserExists.
func (a *Auth) Register(ctx context.Context, name, password string) (User, error) {
	var session domain.Session
	err := a.obs.run(ctx, "register", func(ctx context.Context) error {
		var err error
		session, err = a.api.Register(ctx, domain.Credentials{Name: name, Password: password})
		return mapStatus(err, http.StatusConflict, domain.ErrUserExists)
	})
	if err != nil {
		return User{}, err
	}
	return session.User, a.begin(ctx, session)
}

// begin installs session in memory and persists its credential. A persist
// failure is returned but the in-memory session stays usable.
func (a *Auth) begin(ctx context.Context, session domain.Session) error {
	a.set(session.AccessToken, session.User)
	if err := a.slot.Put(ctx, a.key, session.AccessToken); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	a.obs.log.WithFields(logrus.Fields{"user": session.User.Name}).Info("session started")
	return nil
}

func (a *Auth) set(token string, user User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.user = user
	a.authorized = true
}

// Clear drops the session and stores an empty credential in the slot.
func (a *Auth) Clear(ctx context.Context) error {
	a.mu.Lock()
	a.token = ""
	a.user = User{}
	a.authorized = false
	a.mu.Unlock()
	if err := a.slot.Put(ctx, a.key, ""); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Forget drops the session and removes the credential slot entirely.
// It reports whether a credential was stored.
func (a *Auth) Forget(ctx context.Context) (bool, error) {
	a.mu.Lock()
	a.token = ""
	a.user = User{}
	a.authorized = false
	a.mu.Unlock()
	existed, err := a.slot.Delete(ctx, a.key)
	if err != nil {
		return false, fmt.Errorf("forget credential: %w", err)
	}
	return existed, nil
}

// CreateAdmin creates an administrator account. A taken name fails with
// domain.ErrUserExists; success refreshes the user listing.
func (a *Auth) CreateAdmin(ctx context.Context, name, password string) (User, error) {
	var created User
	err := a.obs.run(ctx, "create_admin", func(ctx context.Context) error {
		var err error
		created, err = a.api.CreateAdmin(ctx, a.Token(), domain.Credentials{Name: name, Password: password})
		return mapStatus(err, http.StatusConflict, domain.ErrUserExists)
	})
	if err != nil {
		return User{}, err
	}
	if a.users != nil {
		a.obs.resync(ctx, a.users.refresh)
	}
	return created, nil
}

// ChangePassword replaces the account password. A wrong old password fails
// with domain.ErrInvalidOldPassword.
func (a *Auth) ChangePassword(ctx context.Context, password, oldPassword string) error {
	return a.obs.run(ctx, "change_password", func(ctx context.Context) error {
		err := a.api.ChangePassword(ctx, a.Token(), password, oldPassword)
		return mapStatus(err, http.StatusBadRequest, domain.ErrInvalidOldPassword)
	})
}

// DeleteAccount removes the logged in account and clears the session.
func (a *Auth) DeleteAccount(ctx context.Context) error {
	err := a.obs.run(ctx, "delete_account", func(ctx context.Context) error {
		return a.api.DeleteAccount(ctx, a.Token())
	})
	if err != nil {
		return err
	}
	return a.Clear(ctx)
}
