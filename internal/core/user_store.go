package core

import (
	"context"
	"sync"

	"foodie/pkg/domain"
)

// UserStore caches the admin-only user listing. It is independent of the
// composition chain.
type UserStore struct {
	api   domain.UserAPI
	creds CredentialSource
	obs   *observer

	refreshMu sync.Mutex
	mu        sync.RWMutex
	users     []User
}

// NewUserStore builds an empty user store.
func NewUserStore(api domain.UserAPI, creds CredentialSource, opts ...Option) *UserStore {
	o := newOptions(opts)
	return &UserStore{api: api, creds: creds, obs: o.observer(EntityUser)}
}

// Users returns a copy of the cached listing.
func (s *UserStore) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUsers(s.users)
}

// RetrieveAll fetches the user listing with the current credential.
func (s *UserStore) RetrieveAll(ctx context.Context) ([]User, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var out []User
	err := s.obs.run(ctx, "retrieve_all", func(ctx context.Context) error {
		fetched, err := s.api.ListUsers(ctx, s.creds.Token())
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.users = fetched
		s.mu.Unlock()
		out = cloneUsers(fetched)
		return nil
	})
	return out, err
}

// Delete removes a user account and refreshes the listing.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	err := s.obs.run(ctx, "delete", func(ctx context.Context) error {
		return s.api.DeleteUser(ctx, s.creds.Token(), id)
	})
	if err != nil {
		return err
	}
	s.obs.resync(ctx, s.refresh)
	return nil
}

func (s *UserStore) refresh(ctx context.Context) error {
	_, err := s.RetrieveAll(ctx)
	return err
}
