// Package app composes the burn engine services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── burn/           # Tokens, burn records, flow steps
//	│   ├── reputation/     # Tiers, achievements, scoring snapshots
//	│   └── proof/          # Proofs and exportable certificates
//	├── ledger/             # Gateway contract to the external ledger
//	├── storage/            # Store interfaces and the in-memory implementation
//	├── services/           # Burn controller, reputation calculator, proofs
//	├── httpapi/            # HTTP handlers and middleware
//	├── system/             # Service lifecycle management
//	└── metrics/            # Prometheus metrics
//
// Business logic lives in internal/app/services; this package only wires
// services to their stores and the ledger gateway and manages start/stop
// ordering through internal/app/system.
package app
