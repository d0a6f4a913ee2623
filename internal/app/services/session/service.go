// Package session tracks the identities available to the caller and which
// one is acting.
package session

import (
	"context"
	"sync"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/identity"
	"github.com/PolkaTrace/trace_layer/internal/app/services/wallet"
	"github.com/PolkaTrace/trace_layer/internal/app/storage"
	"github.com/PolkaTrace/trace_layer/internal/errors"
	"github.com/PolkaTrace/trace_layer/pkg/format"
	"github.com/PolkaTrace/trace_layer/pkg/logger"
)

// Service is the account session. Authorization and admin status are always
// recomputed against the ledger store, never cached.
type Service struct {
	provider wallet.Provider
	auth     storage.AuthorizationStore
	log      *logger.Logger

	mu        sync.RWMutex
	connected []identity.Identity
	active    *identity.Identity
	balance   string
	linked    bool
}

// New constructs a session backed by the wallet provider and the ledger's
// authorization records.
func New(provider wallet.Provider, auth storage.AuthorizationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Service{provider: provider, auth: auth, log: log}
}

// Connect populates the connected identities from the wallet provider and
// marks the session connected. Reconnecting while connected replaces the
// list. On failure the session keeps its prior state.
func (s *Service) Connect(ctx context.Context) ([]identity.Identity, error) {
	if s.provider == nil {
		return nil, errors.Connection("identity provider not configured", nil)
	}

	accounts, err := s.provider.Connect(ctx)
	if err != nil {
		if errors.GetServiceError(err) != nil {
			return nil, err
		}
		return nil, errors.Connection("wallet connect failed", err)
	}

	s.mu.Lock()
	s.connected = accounts
	s.linked = true
	s.mu.Unlock()

	s.log.WithField("accounts", len(accounts)).Info("wallet connected")
	return append([]identity.Identity(nil), accounts...), nil
}

// SelectActive makes the identity with the given address the acting one and
// refreshes its balance.
func (s *Service) SelectActive(ctx context.Context, address string) (identity.Identity, error) {
	s.mu.Lock()
	var selected *identity.Identity
	for i := range s.connected {
		if s.connected[i].Address == address {
			selected = &s.connected[i]
			break
		}
	}
	if selected == nil {
		s.mu.Unlock()
		return identity.Identity{}, errors.UnknownIdentity(address)
	}
	chosen := *selected
	s.mu.Unlock()

	balance, err := s.provider.Balance(ctx, chosen.Address)
	if err != nil {
		// Selection only commits with a consistent balance; on failure the
		// previously active identity stays in place.
		return identity.Identity{}, err
	}

	s.mu.Lock()
	s.active = &chosen
	s.balance = balance
	s.mu.Unlock()

	s.log.WithField("address", format.Address(chosen.Address, 8)).WithField("name", chosen.Name).Info("account selected")
	return chosen, nil
}

// Disconnect clears every session field back to its initial state. Calling
// it repeatedly is a no-op after the first.
func (s *Service) Disconnect(context.Context) {
	s.mu.Lock()
	s.connected = nil
	s.active = nil
	s.balance = ""
	s.linked = false
	s.mu.Unlock()

	s.log.Info("wallet disconnected")
}

// Active returns the acting identity, if one is selected.
func (s *Service) Active() (identity.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return identity.Identity{}, false
	}
	return *s.active, true
}

// Connected returns the identities granted by the wallet.
func (s *Service) Connected() []identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]identity.Identity(nil), s.connected...)
}

// IsConnected reports whether a wallet connection is established.
func (s *Service) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.linked
}

// Balance returns the last refreshed balance for the active identity.
func (s *Service) Balance() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.balance == "" {
		return "0"
	}
	return s.balance
}

// RefreshBalance re-queries the provider for the active identity's balance.
func (s *Service) RefreshBalance(ctx context.Context) (string, error) {
	active, ok := s.Active()
	if !ok {
		return "", errors.Unauthenticated("no account selected")
	}

	balance, err := s.provider.Balance(ctx, active.Address)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.balance = balance
	s.mu.Unlock()
	return balance, nil
}

// IsAdmin reports whether the active identity is the ledger admin. False
// when no identity is selected.
func (s *Service) IsAdmin(ctx context.Context) (bool, error) {
	active, ok := s.Active()
	if !ok {
		return false, nil
	}
	admin, err := s.auth.Admin(ctx)
	if err != nil {
		return false, err
	}
	return active.Address == admin, nil
}

// IsAuthorized reports whether the active identity may log lifecycle events.
// False when no identity is selected.
func (s *Service) IsAuthorized(ctx context.Context) (bool, error) {
	active, ok := s.Active()
	if !ok {
		return false, nil
	}
	return s.auth.IsAuthorized(ctx, active.Address)
}
