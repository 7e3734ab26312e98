package domain

import "fmt"

// Keyspace derives Redis key and index names for one document collection.
type Keyspace struct {
	Database   string
	Collection string
}

// DocPrefix is the key prefix shared by every stored Q/A document.
func (k Keyspace) DocPrefix() string {
	return fmt.Sprintf("%s:%s:doc:", k.Database, k.Collection)
}

// DocKey returns the hash key of a single document.
func (k Keyspace) DocKey(id string) string {
	return k.DocPrefix() + id
}

// IndexName returns the fully qualified FT index name for a logical index.
func (k Keyspace) IndexName(index string) string {
	return fmt.Sprintf("%s:%s:%s", k.Database, k.Collection, index)
}

// CacheKeyPrefix is the prefix for cached query embeddings.
func (k Keyspace) CacheKeyPrefix() string {
	return k.Database + ":emb_cache:"
}
