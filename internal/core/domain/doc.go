// Package domain defines the core business entities for ClaimLens.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Evidence: A stored, source-attributed snippet of text
//   - VectorMetadata: The fixed payload stored beside each vector
//   - LinkedEvidence: One ranked, relationship-tagged match for a premise
//   - DuplicateCluster: A representative with its near-duplicates
//   - IngestionResult: The report of one ingestion run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
