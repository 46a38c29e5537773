package services

import (
	"bytes"
	"strings"
	"testing"

	"potato-prices/models"
)

func TestHighlights(t *testing.T) {
	svc := NewReportService(newTestLogger())
	h := svc.Highlights([]models.PriceSummary{
		{State: "assam", CurrentPrice: 1500},
		{State: "bihar", CurrentPrice: 900},
		{State: "delhi", CurrentPrice: 0},
		{State: "kerala", CurrentPrice: 1500},
		{State: "agra", CurrentPrice: 900},
	})

	if h.StatesWithPrices != 4 {
		t.Errorf("StatesWithPrices: got %d, want 4", h.StatesWithPrices)
	}
	if h.AverageCurrent != 1200 {
		t.Errorf("AverageCurrent: got %.2f, want 1200", h.AverageCurrent)
	}
	if h.Cheapest == nil || h.Cheapest.State != "agra" {
		t.Errorf("Cheapest: got %+v, want agra", h.Cheapest)
	}
	if h.Costliest == nil || h.Costliest.State != "assam" {
		t.Errorf("Costliest: got %+v, want assam", h.Costliest)
	}
}

func TestHighlightsEmpty(t *testing.T) {
	h := NewReportService(newTestLogger()).Highlights(nil)
	if h.Cheapest != nil || h.Costliest != nil || h.StatesWithPrices != 0 {
		t.Errorf("got %+v, want zero Highlights", h)
	}
}

func TestPrint(t *testing.T) {
	report := &models.RunReport{
		RunID:        "run-1",
		RunTimestamp: "2024-01-02T03:04:05Z",
		Results: []models.SourceResult{
			{Source: "agmarknet", Status: models.StatusOK, Stats: models.AggregateStats{Observations: 4, Usable: 3}},
			{Source: "mandiprices", Status: models.StatusSourceFailed},
		},
		Combined: []models.PriceSummary{
			{State: "bihar", MinPrice: 1050, MaxPrice: 1550, CurrentPrice: 1250},
			{State: "delhi"},
		},
		Failures: []string{"mandiprices"},
	}

	var buf bytes.Buffer
	NewReportService(newTestLogger()).Print(&buf, report)
	out := buf.String()

	for _, want := range []string{"run-1", "agmarknet", "source_failed", "bihar", "1250", "Failed sources     : mandiprices"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
