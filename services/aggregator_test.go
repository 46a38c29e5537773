package services

import (
	"math"
	"testing"

	"potato-prices/models"
)

var testCatalog = []models.CanonicalState{"bihar", "delhi", "west-bengal"}

func resolved(state models.CanonicalState, min, max, modal float64) models.ResolvedObservation {
	return models.ResolvedObservation{
		RawObservation: models.RawObservation{Location: string(state), MinPrice: min, MaxPrice: max, ModalPrice: modal},
		State:          state,
		Resolved:       state != "",
	}
}

func TestAggregateCeilingDropsOnlyThatField(t *testing.T) {
	a := NewAggregator(testCatalog, 5500, newTestLogger())
	got, stats := a.Aggregate([]models.ResolvedObservation{
		resolved("bihar", 1000, 1500, 1200),
		resolved("bihar", 6000, 1600, 1300),
	})

	if len(got) != 3 {
		t.Fatalf("len: got %d, want 3", len(got))
	}
	want := models.PriceSummary{State: "bihar", MinPrice: 1000, MaxPrice: 1550, CurrentPrice: 1250}
	if got[0] != want {
		t.Errorf("bihar: got %+v, want %+v", got[0], want)
	}
	if stats.Implausible != 1 {
		t.Errorf("Implausible: got %d, want 1", stats.Implausible)
	}
	if stats.Usable != 2 {
		t.Errorf("Usable: got %d, want 2", stats.Usable)
	}
}

func TestAggregateCatalogOrderAndZeros(t *testing.T) {
	a := NewAggregator(testCatalog, 0, newTestLogger())
	got, _ := a.Aggregate([]models.ResolvedObservation{
		resolved("west-bengal", 800, 900, 850),
	})

	for i, s := range testCatalog {
		if got[i].State != s {
			t.Errorf("row %d: got %q, want %q", i, got[i].State, s)
		}
	}
	if !got[0].IsEmpty() || !got[1].IsEmpty() {
		t.Errorf("states without data should be all zero: %+v %+v", got[0], got[1])
	}
	if got[2].CurrentPrice != 850 {
		t.Errorf("west-bengal current: got %d, want 850", got[2].CurrentPrice)
	}
}

func TestAggregateSkipsZeroFields(t *testing.T) {
	a := NewAggregator(testCatalog, 0, newTestLogger())
	got, stats := a.Aggregate([]models.ResolvedObservation{
		resolved("delhi", 0, 1000, 0),
		resolved("delhi", 900, 0, 950),
		resolved("delhi", 0, 0, 0),
	})

	want := models.PriceSummary{State: "delhi", MinPrice: 900, MaxPrice: 1000, CurrentPrice: 950}
	if got[1] != want {
		t.Errorf("delhi: got %+v, want %+v", got[1], want)
	}
	if stats.Implausible != 0 {
		t.Errorf("Implausible: got %d, want 0", stats.Implausible)
	}
	if stats.Usable != 2 {
		t.Errorf("Usable: got %d, want 2", stats.Usable)
	}
}

func TestAggregateDropsUnresolvedAndOutOfCatalog(t *testing.T) {
	a := NewAggregator(testCatalog, 0, newTestLogger())
	_, stats := a.Aggregate([]models.ResolvedObservation{
		resolved("", 1000, 1000, 1000),
		resolved("goa", 1000, 1000, 1000),
		resolved("bihar", -5, math.NaN(), 1000),
	})

	want := models.AggregateStats{Observations: 3, Unresolved: 1, OutOfCatalog: 1, Implausible: 2, Usable: 1}
	if stats != want {
		t.Errorf("stats: got %+v, want %+v", stats, want)
	}
}

func TestAggregateRoundsHalfAwayFromZero(t *testing.T) {
	a := NewAggregator(testCatalog, 0, newTestLogger())
	got, _ := a.Aggregate([]models.ResolvedObservation{
		resolved("bihar", 1000, 1000, 1000),
		resolved("bihar", 1001, 1002, 1000.5),
	})

	want := models.PriceSummary{State: "bihar", MinPrice: 1001, MaxPrice: 1001, CurrentPrice: 1000}
	if got[0] != want {
		t.Errorf("bihar: got %+v, want %+v", got[0], want)
	}
}

func TestAggregateEmpty(t *testing.T) {
	a := NewAggregator(testCatalog, 0, newTestLogger())
	got, stats := a.Aggregate(nil)
	if len(got) != len(testCatalog) {
		t.Fatalf("len: got %d, want %d", len(got), len(testCatalog))
	}
	if stats.Usable != 0 || stats.Observations != 0 {
		t.Errorf("stats: got %+v, want zero", stats)
	}
}
