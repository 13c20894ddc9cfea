package profiles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/glycoshape/glyco/pkg/rest"
)

type storedTokens struct {
	mu      sync.Mutex
	store   string
	profile string
	auth    Auth
}

// Tokens returns a rest.TokenStore which writes through to the profile named
// profile in the ProfileStore file store.
//
// The file is read again on each write, so changes by others to other
// profiles are not lost.
func Tokens(store string, profile string, current Auth) rest.TokenStore {
	return &storedTokens{store: store, profile: profile, auth: current}
}

func (s *storedTokens) Tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth.AccessToken, s.auth.RefreshToken
}

func (s *storedTokens) SetTokens(t auth.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.auth
	next.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		next.RefreshToken = t.RefreshToken
	}
	if t.User.Email != "" {
		next.Email = t.User.Email
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.auth = next
	return nil
}

func (s *storedTokens) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// forget in memory even when the store cannot be written.
	s.auth = Auth{}
	return s.write(Auth{})
}

func (s *storedTokens) write(a Auth) error {
	ps, err := LoadProfileStore(s.store)
	if err != nil {
		if !errors.Is(err, ErrProfileStoreNotFound) {
			return err
		}
		ps = ProfileStore{}
	}
	prof, ok := ps[s.profile]
	if !ok {
		return fmt.Errorf("profile '%s' not found in the profile store (%s)", s.profile, s.store)
	}
	prof.Auth = a
	return ps.Save(s.store)
}
