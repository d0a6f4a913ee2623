// Package state holds the observable application state for the dashboard:
// an immutable snapshot, a pure reducer over a closed action set, and a
// controller that serializes mutating operations against the session and
// lifecycle services.
package state

import (
	"github.com/PolkaTrace/trace_layer/internal/app/domain/identity"
)

// Snapshot is an immutable view of the application state. Accounts is never
// shared with callers; Reduce copies it on every change.
type Snapshot struct {
	Initialized bool                `json:"initialized"`
	Connected   bool                `json:"connected"`
	Accounts    []identity.Identity `json:"accounts"`
	Selected    *identity.Identity  `json:"selected,omitempty"`
	Balance     string              `json:"balance"`
	Admin       string              `json:"admin"`
	Authorized  bool                `json:"authorized"`
	Loading     bool                `json:"loading"`
	Error       string              `json:"error,omitempty"`
}

// Initial returns the zero snapshot: nothing initialized, balance "0".
func Initial() Snapshot {
	return Snapshot{Balance: "0"}
}

// Action is a member of the closed set of state transitions. Only the types
// in this package implement it.
type Action interface {
	isAction()
}

// SetLoading toggles the in-flight flag.
type SetLoading struct{ Loading bool }

// SetError records a failure message. An empty message clears the error.
// Setting an error always ends the in-flight state.
type SetError struct{ Message string }

// SetInitialized marks the ledger connection as established.
type SetInitialized struct{ Initialized bool }

// SetConnected marks the wallet roster as available.
type SetConnected struct{ Connected bool }

// SetAccounts replaces the connected identity roster.
type SetAccounts struct{ Accounts []identity.Identity }

// SetSelected replaces the active identity. Nil deselects.
type SetSelected struct{ Selected *identity.Identity }

// SetBalance replaces the cached balance of the active identity.
type SetBalance struct{ Balance string }

// SetAdmin binds the distinguished admin address.
type SetAdmin struct{ Admin string }

// SetAuthorized records whether the active identity may log events.
type SetAuthorized struct{ Authorized bool }

// Reset restores the initial snapshot.
type Reset struct{}

func (SetLoading) isAction()     {}
func (SetError) isAction()       {}
func (SetInitialized) isAction() {}
func (SetConnected) isAction()   {}
func (SetAccounts) isAction()    {}
func (SetSelected) isAction()    {}
func (SetBalance) isAction()     {}
func (SetAdmin) isAction()       {}
func (SetAuthorized) isAction()  {}
func (Reset) isAction()          {}

// Reduce applies an action to a snapshot and returns the next snapshot. It
// never mutates its input and has no side effects.
func Reduce(s Snapshot, a Action) Snapshot {
	switch act := a.(type) {
	case SetLoading:
		s.Loading = act.Loading
	case SetError:
		s.Error = act.Message
		s.Loading = false
	case SetInitialized:
		s.Initialized = act.Initialized
	case SetConnected:
		s.Connected = act.Connected
	case SetAccounts:
		accounts := make([]identity.Identity, len(act.Accounts))
		copy(accounts, act.Accounts)
		s.Accounts = accounts
	case SetSelected:
		if act.Selected == nil {
			s.Selected = nil
		} else {
			selected := *act.Selected
			s.Selected = &selected
		}
	case SetBalance:
		s.Balance = act.Balance
	case SetAdmin:
		s.Admin = act.Admin
	case SetAuthorized:
		s.Authorized = act.Authorized
	case Reset:
		s = Initial()
	}
	return s
}
