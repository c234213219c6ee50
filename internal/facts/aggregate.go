// Package facts merges independent per-place lookups into one FactRecord.
// Every lookup runs concurrently under its own deadline; a failing lookup
// leaves its fields null and never fails the record.
package facts

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoassist/internal/model"
)

// DefaultLookupTimeout bounds a lookup that sets no timeout of its own.
const DefaultLookupTimeout = 10 * time.Second

// Patch writes one lookup's fields into the record. Patches of different
// lookups touch disjoint fields.
type Patch func(rec *model.FactRecord)

// Lookup is one independently fallible source of facts.
type Lookup struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context, place model.ResolvedPlace) (Patch, error)
}

// Aggregator fans out lookups for a place.
type Aggregator struct {
	lookups []Lookup
}

// New creates an Aggregator over lookups. Nil Run functions are skipped.
func New(lookups ...Lookup) *Aggregator {
	kept := make([]Lookup, 0, len(lookups))
	for _, l := range lookups {
		if l.Run != nil {
			kept = append(kept, l)
		}
	}
	return &Aggregator{lookups: kept}
}

// Lookups returns the configured lookup names.
func (a *Aggregator) Lookups() []string {
	names := make([]string, len(a.lookups))
	for i, l := range a.lookups {
		names[i] = l.Name
	}
	return names
}

// Aggregate always returns a record. Fields stay nil when their lookup
// failed, timed out or had nothing to report.
func (a *Aggregator) Aggregate(ctx context.Context, place model.ResolvedPlace) model.FactRecord {
	patches := make([]Patch, len(a.lookups))

	var g errgroup.Group
	for i, l := range a.lookups {
		g.Go(func() error {
			patches[i] = runLookup(ctx, l, place)
			return nil
		})
	}
	_ = g.Wait()

	rec := model.FactRecord{
		Name: placeName(place),
		Lat:  place.Candidate.Latitude,
		Lon:  place.Candidate.Longitude,
	}
	for _, p := range patches {
		if p != nil {
			p(&rec)
		}
	}
	finalize(&rec)
	return rec
}

func runLookup(ctx context.Context, l Lookup, place model.ResolvedPlace) (patch Patch) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("facts: lookup panicked", zap.String("lookup", l.Name), zap.Any("panic", r))
			patch = nil
		}
	}()

	p, err := l.Run(ctx, place)
	if err != nil {
		zap.L().Warn("facts: lookup failed",
			zap.String("lookup", l.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil
	}
	zap.L().Debug("facts: lookup done",
		zap.String("lookup", l.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return p
}

// finalize derives fields that depend on more than one lookup.
func finalize(rec *model.FactRecord) {
	rec.Density = Density(rec.Population, rec.AreaKm2)
	rec.AQILabel = ClassifyAQI(rec.AQI)
}

func placeName(p model.ResolvedPlace) string {
	switch {
	case p.Label != "":
		return p.Label
	case p.Candidate.DisplayLabel != "":
		return p.Candidate.DisplayLabel
	case p.Candidate.Name != "":
		return p.Candidate.Name
	case p.Query != "":
		return p.Query
	default:
		return p.Candidate.CoordinateLabel()
	}
}
