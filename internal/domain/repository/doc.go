// Package repository defines the storage contracts the broker depends on.
//
// The interfaces are independent of the backing store. Implementations live in
// internal/store/pg (PostgreSQL via pgx) and internal/store/memory.
//
//	┌──────────────────────────────────────────────┐
//	│ approval / clientdetails / social / creds    │
//	└──────────────────────────────────────────────┘
//	                      │
//	                      ▼
//	┌──────────────────────────────────────────────┐
//	│ domain/repository (interfaces)               │
//	│ ApprovalRepository, ClientRegistry,          │
//	│ ForeignTokenRepository                       │
//	└──────────────────────────────────────────────┘
//	              │                  │
//	              ▼                  ▼
//	       store/pg            store/memory
//
// Conventions: context is always the first parameter; errors returned by the
// store are propagated unmodified by callers, except ErrNotFound which callers
// may translate into a domain error.
package repository
