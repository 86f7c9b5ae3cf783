// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings. Without it, no evidence
//     can be indexed, linked, or deduplicated.
//   - VectorStore: Vector persistence and similarity search (Pinecone, Bolt, memory).
//   - EvidenceStore: Evidence metadata persistence (SQLite or memory).
//   - ConfigStore: Application configuration.
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Reranking and relationship classification. Without it,
//     linking falls back to vector-order candidates labelled as supporting.
//   - ClaimExtractor: ML claim extraction. Without it, ingestion treats each
//     chunk as a single claim at reduced confidence.
//   - ContentFetcher: URL retrieval. Without it, only text and file ingestion work.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
