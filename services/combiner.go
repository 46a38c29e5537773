package services

import (
	"sort"

	"potato-prices/models"
)

// Combine reconciles per-source tables into one report. Every state seen in
// any table appears once; each field is the rounded mean of the non-zero
// values reported for it, or 0 when no source had one. Output is sorted by
// state, and the result does not depend on the order of tables.
func Combine(tables ...[]models.PriceSummary) []models.PriceSummary {
	byState := make(map[models.CanonicalState]*stateAcc)
	for _, table := range tables {
		for _, row := range table {
			acc, ok := byState[row.State]
			if !ok {
				acc = &stateAcc{}
				byState[row.State] = acc
			}
			addPositive(&acc.min, row.MinPrice)
			addPositive(&acc.max, row.MaxPrice)
			addPositive(&acc.current, row.CurrentPrice)
		}
	}

	out := make([]models.PriceSummary, 0, len(byState))
	for state, acc := range byState {
		out = append(out, models.PriceSummary{
			State:        state,
			MinPrice:     acc.min.mean(),
			MaxPrice:     acc.max.mean(),
			CurrentPrice: acc.current.mean(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}

func addPositive(f *fieldAcc, v int) {
	if v > 0 {
		f.add(float64(v))
	}
}
