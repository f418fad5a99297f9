// Package ingestion loads documents into the search backends.
//
// An Indexer fans each batch of documents out to every configured Sink
// (vector store, keyword index, knowledge graph, postgres) concurrently on
// a worker pool. Sink calls are retried with exponential backoff; the
// errors of sinks that still fail are joined and returned so a partially
// indexed batch is visible to the caller.
//
// IndexAll streams a JSONL corpus, one document per line, in batches.
package ingestion
