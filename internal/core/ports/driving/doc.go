// Package driving defines interfaces that external actors (CLI, API handlers)
// use to interact with core services. These are the "driving" ports in
// hexagonal architecture terminology - they drive the application.
//
// Orchestrating services also consume each other through these interfaces,
// e.g. linking and ingestion drive the vector index service.
//
// Implementations of these interfaces live in internal/core/services.
package driving
