// Package integration contains the platform-integration bounded context.
// This context owns everything the sync engine knows about the two commerce
// platforms it bridges: the storefront the catalog originates from (the
// source) and the marketplace backend it is pushed into (the target).
//
// Key concepts:
//   - SourcePlatform / TargetPlatform: Port interfaces for the two GraphQL APIs
//   - AttributeMapping: Externally managed field-translation table
//   - ProductDraft / OrderDraft: Payloads shaped for the target's schema
//   - InventoryUpdate: Per-SKU quantity resolution between the two sides
//   - SyncResult: Outcome of one bulk pass or webhook event
//   - Monitor: Observability collaborator injected into every component
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
