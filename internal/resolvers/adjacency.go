package resolvers

import "context"

// adjacencyStore is the store slice the StrictAdjacency/LooseAdjacency
// membership tests need.
type adjacencyStore interface {
	StrictAdjacencyExists(ctx context.Context, key1, key2, documentID int64) (bool, error)
	LooseAdjacencyExists(ctx context.Context, keywordID, documentID int64) (bool, error)
}

// StrictAdjacency reports whether document has a KeywordAdjacency row with
// exactly {k1, k2}. Unlike the other resolvers this is a membership
// test, not an iterable lookup, so it is a plain function rather than a
// Resolver[X,Y] implementation.
func StrictAdjacency(ctx context.Context, store adjacencyStore, k1, k2, document int64) (bool, error) {
	return store.StrictAdjacencyExists(ctx, k1, k2, document)
}

// LooseAdjacency reports whether document has any KeywordAdjacency row
// referencing k as either key.
func LooseAdjacency(ctx context.Context, store adjacencyStore, k, document int64) (bool, error) {
	return store.LooseAdjacencyExists(ctx, k, document)
}
