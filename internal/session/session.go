// Package session owns who is signed in and which city is selected. Both
// changes invalidate the cart, so they always go through here.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/internal/preferences"
	"github.com/Dmitrij-bot/storefront/internal/repository"
	"github.com/Dmitrij-bot/storefront/pkg/httpclient"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingCity        = errors.New("city id cannot be empty")
)

type Backend interface {
	SignIn(ctx context.Context, req repository.SignInRequest) (resp repository.SignInResponse, err error)
	SetUserCity(ctx context.Context, req repository.SetUserCityRequest) (resp repository.SetUserCityResponse, err error)
}

// Cart is the part of the cart manager the session drives.
type Cart interface {
	ResetCartContext()
	SyncOpenCart(ctx context.Context) error
}

type Session struct {
	backend Backend
	tokens  httpclient.TokenStore
	cart    Cart
	cities  preferences.Store
	logger  *zap.Logger

	mu   sync.RWMutex
	user *repository.User
}

func New(backend Backend, tokens httpclient.TokenStore, cart Cart, cities preferences.Store, logger *zap.Logger) *Session {
	if cities == nil {
		cities = preferences.NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		backend: backend,
		tokens:  tokens,
		cart:    cart,
		cities:  cities,
		logger:  logger,
	}
}

// SignIn opens a session and, once a city is selected, adopts the cart the
// backend still has open for the user. A failed cart sync does not undo the
// sign-in.
func (s *Session) SignIn(ctx context.Context, email, password string) (repository.User, error) {
	if email == "" || password == "" {
		return repository.User{}, ErrMissingCredentials
	}

	resp, err := s.backend.SignIn(ctx, repository.SignInRequest{Email: email, Password: password})
	if err != nil {
		return repository.User{}, err
	}

	s.tokens.Save(httpclient.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})

	s.mu.Lock()
	user := resp.User
	s.user = &user
	s.mu.Unlock()

	s.cart.ResetCartContext()
	s.restoreOpenCart(ctx, user.ID)

	s.logger.Info("signed in", zap.String("user_id", user.ID), zap.String("role", user.Role))

	return user, nil
}

// restoreOpenCart adopts the backend's open cart. Stores belong to a city,
// so nothing is restored until one is selected.
func (s *Session) restoreOpenCart(ctx context.Context, userID string) {
	if _, ok, err := s.cities.GetCity(ctx); err != nil || !ok {
		if err != nil {
			s.logger.Warn("failed to load city", zap.Error(err))
		}
		return
	}

	if err := s.cart.SyncOpenCart(ctx); err != nil {
		s.logger.Warn("failed to restore open cart after sign in", zap.String("user_id", userID), zap.Error(err))
	}
}

// SignOut is also registered as the HTTP client's callback for an expired
// session, so it must not call the backend.
func (s *Session) SignOut() {
	s.tokens.Clear()

	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	s.cart.ResetCartContext()
	s.logger.Info("signed out")
}

func (s *Session) User() (repository.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return repository.User{}, false
	}
	return *s.user, true
}

func (s *Session) SignedIn() bool {
	_, ok := s.tokens.Get()
	return ok
}

// SetCity tells the backend about the new city when signed in, drops the
// cart and then remembers the choice locally.
func (s *Session) SetCity(ctx context.Context, city preferences.City) error {
	if city.ID == "" {
		return ErrMissingCity
	}

	if s.SignedIn() {
		if _, err := s.backend.SetUserCity(ctx, repository.SetUserCityRequest{CityID: city.ID}); err != nil {
			return err
		}
	}

	s.cart.ResetCartContext()

	if err := s.cities.SaveCity(ctx, city); err != nil {
		return fmt.Errorf("failed to persist city %s: %w", city.ID, err)
	}

	s.logger.Info("city selected", zap.String("city_id", city.ID), zap.String("uf", city.UF))

	return nil
}

func (s *Session) ClearCity(ctx context.Context) error {
	s.cart.ResetCartContext()
	return s.cities.ClearCity(ctx)
}

func (s *Session) CurrentCity(ctx context.Context) (preferences.City, bool, error) {
	return s.cities.GetCity(ctx)
}
