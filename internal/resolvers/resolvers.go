// Package resolvers is the resolution-services layer used by the query
// executor: a single generic Resolver[X,Y] interface with two combinators
// (MetaCombo, MetaStack) over small stateless leaf lookups.
package resolvers

import "context"

// Resolver maps one input to zero or more outputs. Every leaf resolver in
// this package (DomainByPattern, KeywordByPattern, DocumentsByDomain,
// DocumentsByKeyword) implements this.
type Resolver[X any, Y any] interface {
	Resolve(ctx context.Context, x X) ([]Y, error)
}

// ResolverFunc adapts a plain function to Resolver, the way http.HandlerFunc
// adapts a function to http.Handler.
type ResolverFunc[X any, Y any] func(ctx context.Context, x X) ([]Y, error)

func (f ResolverFunc[X, Y]) Resolve(ctx context.Context, x X) ([]Y, error) {
	return f(ctx, x)
}

// MetaCombo runs every resolver in Resolvers and unions their results
// (deduplicated, order of first appearance preserved).
type MetaCombo[X any, Y comparable] struct {
	Resolvers []Resolver[X, Y]
}

func (c MetaCombo[X, Y]) Resolve(ctx context.Context, x X) ([]Y, error) {
	seen := map[Y]bool{}
	var out []Y
	for _, r := range c.Resolvers {
		ys, err := r.Resolve(ctx, x)
		if err != nil {
			return nil, err
		}
		for _, y := range ys {
			if !seen[y] {
				seen[y] = true
				out = append(out, y)
			}
		}
	}
	return out, nil
}

// MetaStack runs each resolver in order and returns the first non-empty
// result. DatePicker is built this way.
type MetaStack[X any, Y any] struct {
	Resolvers []Resolver[X, Y]
}

func (s MetaStack[X, Y]) Resolve(ctx context.Context, x X) ([]Y, error) {
	for _, r := range s.Resolvers {
		ys, err := r.Resolve(ctx, x)
		if err != nil {
			return nil, err
		}
		if len(ys) > 0 {
			return ys, nil
		}
	}
	return nil, nil
}
