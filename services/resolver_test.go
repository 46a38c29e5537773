package services

import (
	"testing"

	"potato-prices/config"
	"potato-prices/models"
)

func newDefaultResolver(t *testing.T) *Resolver {
	t.Helper()
	districts, err := config.LoadDistricts("")
	if err != nil {
		t.Fatalf("LoadDistricts: %v", err)
	}
	return NewResolver(models.DefaultCatalog, config.DefaultAliases, districts, 0)
}

func TestResolve(t *testing.T) {
	r := newDefaultResolver(t)

	tests := []struct {
		text string
		want models.CanonicalState
	}{
		{"Bihar", "bihar"},
		{"andhra pradesh", "andhra-pradesh"},
		{"Patna", "bihar"},
		{"NCT of Delhi", "delhi"},
		{"New Delhi", "delhi"},
		{"Uttarakhand", "uttrakhand"},
		{"Chhattisgarh", "chattisgarh"},
		{"Orissa", "odisha"},
		{"Muzafarpur", "bihar"},
		{"24 Parganas North", "west-bengal"},
		{"Agra", "uttar-pradesh"},
		// First writer wins: Chhattisgarh precedes Himachal Pradesh in the
		// reference data.
		{"Bilaspur", "chattisgarh"},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(tt.text)
		if !ok {
			t.Errorf("Resolve(%q): not resolved, want %q", tt.text, tt.want)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q; want %q", tt.text, got, tt.want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	r := newDefaultResolver(t)
	for _, text := range []string{"", "   ", "Xyzzy Qwerty", "12345"} {
		if got, ok := r.Resolve(text); ok {
			t.Errorf("Resolve(%q) = %q; want no match", text, got)
		}
	}
}

func TestResolveOutOfCatalog(t *testing.T) {
	r := newDefaultResolver(t)
	got, ok := r.Resolve("Goa")
	if !ok || got != "goa" {
		t.Fatalf("Resolve(Goa) = %q, %v; want goa, true", got, ok)
	}
	if r.InCatalog(got) {
		t.Errorf("InCatalog(%q): got true, want false", got)
	}
	if !r.InCatalog("bihar") {
		t.Errorf("InCatalog(bihar): got false, want true")
	}
}

func TestResolveStateCanonicalIsIdentity(t *testing.T) {
	r := newDefaultResolver(t)
	for _, s := range models.DefaultCatalog {
		got, ok := r.ResolveState(string(s))
		if !ok || got != s {
			t.Errorf("ResolveState(%q) = %q, %v; want itself", s, got, ok)
		}
	}
}

func TestResolveTieKeepsEarliest(t *testing.T) {
	catalog := []models.CanonicalState{"ab-x", "ab-y"}
	r := NewResolver(catalog, nil, nil, 0.7)
	if got, ok := r.Resolve("ab-z"); !ok || got != "ab-x" {
		t.Errorf("Resolve(ab-z) = %q, %v; want ab-x", got, ok)
	}

	reversed := NewResolver([]models.CanonicalState{"ab-y", "ab-x"}, nil, nil, 0.7)
	if got, ok := reversed.Resolve("ab-z"); !ok || got != "ab-y" {
		t.Errorf("reversed Resolve(ab-z) = %q, %v; want ab-y", got, ok)
	}
}

func TestResolveThreshold(t *testing.T) {
	catalog := []models.CanonicalState{"ab-x"}
	strict := NewResolver(catalog, nil, nil, 0.8)
	if got, ok := strict.Resolve("ab-z"); ok {
		t.Errorf("Resolve(ab-z) at 0.8 = %q; want no match", got)
	}
	if strict.Threshold() != 0.8 {
		t.Errorf("Threshold: got %v, want 0.8", strict.Threshold())
	}
	if d := NewResolver(catalog, nil, nil, 0); d.Threshold() != DefaultSimilarityThreshold {
		t.Errorf("default Threshold: got %v, want %v", d.Threshold(), DefaultSimilarityThreshold)
	}
}

func TestResolveAll(t *testing.T) {
	r := newDefaultResolver(t)
	raw := []models.RawObservation{
		{Location: "Patna", ModalPrice: 1200},
		{Location: "Xyzzy Qwerty", ModalPrice: 900},
		{Location: "Patna", ModalPrice: 1300},
	}
	got := r.ResolveAll(raw)
	if len(got) != 3 {
		t.Fatalf("len: got %d, want 3", len(got))
	}
	if !got[0].Resolved || got[0].State != "bihar" {
		t.Errorf("got[0]: %+v", got[0])
	}
	if got[1].Resolved {
		t.Errorf("got[1]: want unresolved, got %+v", got[1])
	}
	if got[2].State != "bihar" || got[2].ModalPrice != 1300 {
		t.Errorf("got[2]: %+v", got[2])
	}
}

func TestNameCounts(t *testing.T) {
	r := newDefaultResolver(t)
	counts := NameCounts(r)
	if counts["bihar"] < 17 {
		t.Errorf("bihar names: got %d, want at least 17", counts["bihar"])
	}
	if counts["delhi"] < 2 {
		t.Errorf("delhi names: got %d, want aliases counted", counts["delhi"])
	}
}
