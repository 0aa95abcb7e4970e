// Package integration contains the platform sync bounded context.
// It connects owner accounts to external e-commerce platforms and pulls their
// product catalogs into one canonical schema.
//
// Key concepts:
//   - PlatformAdapter: Port interface hiding per-platform API differences (Shopify today)
//   - Registry: Static mapping from platform tag to adapter constructor
//   - Store: Aggregate for one connected platform instance, owns the sync state machine
//   - CanonicalProduct: Platform-agnostic product record produced by every adapter
//   - ActivityLogEntry: Append-only audit record of connect and sync events
//   - CredentialVault: Port for sealing credentials at rest
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
