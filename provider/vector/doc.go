// Package vector provides sink-only provider factories for vector
// databases: Qdrant, Pinecone, Milvus, and pgvector.
//
// Vector backends persist embedded chunks; they have no meaningful
// document stream to read back, so none of them implements
// provider.Source. Items written to a vector sink must already carry a
// vector, produced by an upstream embedding transform; the sink never
// re-embeds on write.
package vector
