package badger

import (
	"encoding/binary"

	"github.com/poiesic/attest/core"
)

// Key prefixes for different data types
const (
	documentPrefix   = "doc:"
	entityPrefix     = "ent:"
	entityNamePrefix = "entn:"
	edgePrefix       = "edge:"
	mentionPrefix    = "men:"
	cachePrefix      = "cache:"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return append([]byte(documentPrefix), id...)
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return appendID([]byte(entityPrefix), id)
}

// makeEntityNameKey generates the name index key for an entity.
// Format: prefix:normalizedName
func makeEntityNameKey(normalizedName string) []byte {
	return append([]byte(entityNamePrefix), normalizedName...)
}

// makeEdgeKey generates an adjacency key. Each edge is written once per
// endpoint so neighbors can be found with a single prefix scan.
// Format: prefix:fromID:toID:predicate
func makeEdgeKey(from, to core.ID, predicate string) []byte {
	buf := appendID([]byte(edgePrefix), from)
	buf = appendID(buf, to)
	return append(buf, predicate...)
}

// makePartialEdgeKey generates the prefix for all edges touching id.
func makePartialEdgeKey(id core.ID) []byte {
	return appendID([]byte(edgePrefix), id)
}

// makeMentionKey generates a key for the entity to document index.
// Format: prefix:entityID:docID
func makeMentionKey(entityID core.ID, docID string) []byte {
	return append(makePartialMentionKey(entityID), docID...)
}

// makePartialMentionKey generates the prefix for all mentions of an entity.
func makePartialMentionKey(entityID core.ID) []byte {
	return appendID([]byte(mentionPrefix), entityID)
}

// makeCacheKey generates a key for a cached value.
func makeCacheKey(key string) []byte {
	return append([]byte(cachePrefix), key...)
}

// appendID writes id in BigEndian order so lexicographic sort works correctly.
func appendID(buf []byte, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}
