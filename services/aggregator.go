package services

import (
	"math"

	"potato-prices/models"
	"potato-prices/utils"
)

// DefaultPriceCeiling is the highest plausible ₹/quintal price for potato.
const DefaultPriceCeiling = 5500

// Aggregator turns one source's resolved observations into a per-state
// summary table covering the whole catalog.
type Aggregator struct {
	catalog []models.CanonicalState
	ceiling float64
	logger  *utils.Logger
}

// NewAggregator creates an Aggregator. A ceiling <= 0 selects
// DefaultPriceCeiling.
func NewAggregator(catalog []models.CanonicalState, ceiling float64, logger *utils.Logger) *Aggregator {
	if ceiling <= 0 {
		ceiling = DefaultPriceCeiling
	}
	return &Aggregator{catalog: catalog, ceiling: ceiling, logger: logger}
}

type fieldAcc struct {
	sum   float64
	count int
}

func (f *fieldAcc) add(v float64) {
	f.sum += v
	f.count++
}

// mean rounds half away from zero; 0 when nothing was added.
func (f fieldAcc) mean() int {
	if f.count == 0 {
		return 0
	}
	return int(math.Round(f.sum / float64(f.count)))
}

type stateAcc struct {
	min, max, current fieldAcc
}

// Aggregate returns exactly one summary per catalog state, in catalog
// order. Unresolved and out-of-catalog observations are dropped, as is any
// single price field that is not positive or exceeds the ceiling.
func (a *Aggregator) Aggregate(observations []models.ResolvedObservation) ([]models.PriceSummary, models.AggregateStats) {
	stats := models.AggregateStats{Observations: len(observations)}

	byState := make(map[models.CanonicalState]*stateAcc, len(a.catalog))
	for _, s := range a.catalog {
		byState[s] = &stateAcc{}
	}

	for _, obs := range observations {
		if !obs.Resolved {
			stats.Unresolved++
			a.logger.Debug("[aggregator] Unresolved location dropped: %q", obs.Location)
			continue
		}
		acc, ok := byState[obs.State]
		if !ok {
			stats.OutOfCatalog++
			a.logger.Debug("[aggregator] State %q is not in the catalog, dropped", obs.State)
			continue
		}

		used := false
		for _, f := range []struct {
			value float64
			acc   *fieldAcc
		}{
			{obs.MinPrice, &acc.min},
			{obs.MaxPrice, &acc.max},
			{obs.ModalPrice, &acc.current},
		} {
			switch {
			case f.value == 0:
			case f.value < 0 || f.value > a.ceiling || math.IsNaN(f.value):
				stats.Implausible++
			default:
				f.acc.add(f.value)
				used = true
			}
		}
		if used {
			stats.Usable++
		}
	}

	out := make([]models.PriceSummary, 0, len(a.catalog))
	seen := make(map[models.CanonicalState]struct{}, len(a.catalog))
	for _, s := range a.catalog {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		acc := byState[s]
		out = append(out, models.PriceSummary{
			State:        s,
			MinPrice:     acc.min.mean(),
			MaxPrice:     acc.max.mean(),
			CurrentPrice: acc.current.mean(),
		})
	}
	return out, stats
}
