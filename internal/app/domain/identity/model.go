// Package identity defines wallet identities acting against the ledger.
package identity

// Identity is a unique actor reference, a stand-in for a wallet account
// keyed by a cryptographic public key.
type Identity struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Source  string `json:"source"`
}
