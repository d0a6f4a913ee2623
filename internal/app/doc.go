// Package app provides the application composition layer for the trace
// layer.
//
// # Architecture Role
//
// The app package composes the domain packages into a running application.
// It is NOT a business logic layer: ledger and session rules live in
// internal/app/services/, state observation in internal/app/state/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── product/        # Product records and lifecycle events
//	│   └── identity/       # Wallet identities
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # LedgerStore, ProductStore, AuthorizationStore
//	│   └── memory/         # In-memory ledger implementation
//	├── services/           # Business logic
//	│   ├── wallet/         # Wallet provider (simulated accounts)
//	│   ├── session/        # Account session over the wallet
//	│   └── lifecycle/      # Ledger mutations and preconditions
//	├── state/              # Observable snapshot, reducer, controller
//	├── httpapi/            # REST handlers and the websocket state stream
//	├── simulator/          # Synthetic dashboard traffic
//	├── system/             # Service lifecycle management
//	├── latency/            # Simulated transaction delays
//	└── metrics/            # Prometheus instrumentation
//
// # Dependency Direction
//
//	cmd/traced/
//	      │
//	      ▼
//	internal/app/runtime/ (process wiring)
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/state/ (observable state)
//	      │           │
//	      │           └──► internal/app/services/ (business logic)
//	      │                       │
//	      │                       └──► internal/app/storage/ (persistence)
//	      │
//	      └──► internal/app/system/ (lifecycle)
package app
