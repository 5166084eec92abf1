package resolvers

import (
	"context"
	"time"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/store"
)

// PickedDate is DatePicker's output: a date plus the method that produced
// it, feeding directly into the result presenter's method normalization.
type PickedDate struct {
	Date   time.Time
	Method sentropy.DateMethod
}

// dateSourceStore is the store slice DatePicker needs.
type dateSourceStore interface {
	LoadDateSources(ctx context.Context, documentID int64) (*store.DateSources, error)
}

type certainDateResolver struct{ store dateSourceStore }

func (r certainDateResolver) Resolve(ctx context.Context, documentID int64) ([]PickedDate, error) {
	sources, err := r.store.LoadDateSources(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(sources.CertainDates) == 0 {
		return nil, nil
	}
	best := closestByPosition(sources.CertainDates, sentropy.Config.Pipeline.CertainDatePosition)
	return []PickedDate{{Date: best.Date, Method: sentropy.MethodCertain}}, nil
}

type uncertainDateResolver struct{ store dateSourceStore }

func (r uncertainDateResolver) Resolve(ctx context.Context, documentID int64) ([]PickedDate, error) {
	sources, err := r.store.LoadDateSources(ctx, documentID)
	if err != nil {
		return nil, err
	}

	var candidates []store.AmbiguousDateWrite
	for _, ad := range sources.AmbiguousDates {
		year := ad.Date.Year()
		if year >= sentropy.Config.Pipeline.UncertainYearMin && year <= sentropy.Config.Pipeline.UncertainYearMax {
			candidates = append(candidates, ad)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	bestDist := abs(best.Position - sentropy.Config.Pipeline.UncertainDatePosition)
	for _, c := range candidates[1:] {
		if d := abs(c.Position - sentropy.Config.Pipeline.UncertainDatePosition); d < bestDist {
			best, bestDist = c, d
		}
	}
	return []PickedDate{{Date: best.Date, Method: sentropy.MethodUncertain}}, nil
}

type crawledDateResolver struct{ store dateSourceStore }

func (r crawledDateResolver) Resolve(ctx context.Context, documentID int64) ([]PickedDate, error) {
	sources, err := r.store.LoadDateSources(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return []PickedDate{{Date: sources.CrawledDate, Method: sentropy.MethodCrawled}}, nil
}

// NewDatePicker builds the DatePicker stack: MetaStack(CertainDate closest to
// Config.Pipeline.CertainDatePosition, UncertainDate closest to
// Config.Pipeline.UncertainDatePosition within the configured year range,
// CrawledDate).
func NewDatePicker(store dateSourceStore) Resolver[int64, PickedDate] {
	return MetaStack[int64, PickedDate]{Resolvers: []Resolver[int64, PickedDate]{
		certainDateResolver{store: store},
		uncertainDateResolver{store: store},
		crawledDateResolver{store: store},
	}}
}

func closestByPosition(dates []store.CertainDateWrite, target int) store.CertainDateWrite {
	best := dates[0]
	bestDist := abs(best.Position - target)
	for _, d := range dates[1:] {
		if dist := abs(d.Position - target); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
