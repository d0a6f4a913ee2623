package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/identity"
)

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := Initial()
	after := Reduce(before, SetLoading{Loading: true})

	assert.False(t, before.Loading)
	assert.True(t, after.Loading)
}

func TestReduceErrorEndsLoading(t *testing.T) {
	s := Reduce(Initial(), SetLoading{Loading: true})
	s = Reduce(s, SetError{Message: "account not authorized"})

	assert.Equal(t, "account not authorized", s.Error)
	assert.False(t, s.Loading)
}

func TestReduceCopiesAccounts(t *testing.T) {
	roster := []identity.Identity{{Address: "addr-1", Name: "Alice"}}
	s := Reduce(Initial(), SetAccounts{Accounts: roster})

	roster[0].Address = "mutated"
	assert.Equal(t, "addr-1", s.Accounts[0].Address)
}

func TestReduceCopiesSelected(t *testing.T) {
	sel := identity.Identity{Address: "addr-1", Name: "Alice"}
	s := Reduce(Initial(), SetSelected{Selected: &sel})

	sel.Address = "mutated"
	assert.Equal(t, "addr-1", s.Selected.Address)

	s = Reduce(s, SetSelected{Selected: nil})
	assert.Nil(t, s.Selected)
}

func TestReduceReset(t *testing.T) {
	s := Initial()
	s = Reduce(s, SetInitialized{Initialized: true})
	s = Reduce(s, SetAdmin{Admin: "addr-admin"})
	s = Reduce(s, SetConnected{Connected: true})
	s = Reduce(s, SetBalance{Balance: "42"})
	s = Reduce(s, Reset{})

	assert.Equal(t, Initial(), s)
}

func TestReduceFieldActions(t *testing.T) {
	s := Initial()
	s = Reduce(s, SetAdmin{Admin: "addr-admin"})
	s = Reduce(s, SetBalance{Balance: "1000"})
	s = Reduce(s, SetAuthorized{Authorized: true})

	assert.Equal(t, "addr-admin", s.Admin)
	assert.Equal(t, "1000", s.Balance)
	assert.True(t, s.Authorized)
}
