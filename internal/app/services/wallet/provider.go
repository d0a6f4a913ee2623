// Package wallet provides the identity provider the session connects to.
// The simulated provider stands in for a browser wallet extension.
package wallet

import (
	"context"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/identity"
	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/errors"
)

// Provider exposes the identities available to the caller and their balances.
type Provider interface {
	// Connect returns the identities the wallet grants access to.
	Connect(ctx context.Context) ([]identity.Identity, error)

	// Balance returns the free balance for the address as a numeric
	// string in base units.
	Balance(ctx context.Context, address string) (string, error)
}

// Simulated is a Provider with a fixed account roster and balance table.
type Simulated struct {
	accounts []identity.Identity
	balances map[string]string
	delays   latency.Profile
}

var _ Provider = (*Simulated)(nil)

// Option customizes the simulated provider.
type Option func(*Simulated)

// WithDelays sets the simulated latency profile.
func WithDelays(delays latency.Profile) Option {
	return func(s *Simulated) {
		s.delays = delays
	}
}

// WithAccounts replaces the default roster.
func WithAccounts(accounts []identity.Identity, balances map[string]string) Option {
	return func(s *Simulated) {
		s.accounts = accounts
		s.balances = balances
	}
}

// NewSimulated creates a provider with the default development roster.
func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{
		accounts: DefaultAccounts(),
		balances: defaultBalances(),
		delays:   latency.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect returns the roster after the simulated connection delay.
func (s *Simulated) Connect(ctx context.Context) ([]identity.Identity, error) {
	if err := latency.Sleep(ctx, s.delays.Connect); err != nil {
		return nil, errors.Connection("wallet connect interrupted", err)
	}
	out := make([]identity.Identity, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

// Balance returns the tabled balance for the address, "0" for strangers.
func (s *Simulated) Balance(ctx context.Context, address string) (string, error) {
	if err := latency.Sleep(ctx, s.delays.Balance); err != nil {
		return "", errors.Connection("balance query interrupted", err)
	}
	if balance, ok := s.balances[address]; ok {
		return balance, nil
	}
	return "0", nil
}

// Well-known development addresses, matching the standard dev chain keyring.
const (
	AliceAddress   = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	BobAddress     = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
	CharlieAddress = "5FLSigC9HGRKVhB9FiEo4Y3koPsNmBmLJbpXg2mp1hXcS59Y"
	DaveAddress    = "5DAAnrj7VHTznn2AWBemMuyBwZWs6FNFjdyVXUeYum3PTXFy"
)

// DefaultAccounts returns the development roster.
func DefaultAccounts() []identity.Identity {
	return []identity.Identity{
		{Address: AliceAddress, Name: "Alice", Source: "polkadot-js"},
		{Address: BobAddress, Name: "Bob", Source: "polkadot-js"},
		{Address: CharlieAddress, Name: "Charlie", Source: "polkadot-js"},
		{Address: DaveAddress, Name: "Dave", Source: "polkadot-js"},
	}
}

func defaultBalances() map[string]string {
	return map[string]string{
		AliceAddress:   "1000000000000",
		BobAddress:     "500000000000",
		CharlieAddress: "250000000000",
		DaveAddress:    "100000000000",
	}
}

// Unavailable is a Provider whose wallet can never be reached. It exists so
// connection failure paths can be exercised deterministically.
type Unavailable struct{}

var _ Provider = Unavailable{}

// Connect always fails.
func (Unavailable) Connect(context.Context) ([]identity.Identity, error) {
	return nil, errors.Connection("wallet extension not available", nil)
}

// Balance always fails.
func (Unavailable) Balance(context.Context, string) (string, error) {
	return "", errors.Connection("wallet extension not available", nil)
}
