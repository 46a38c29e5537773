package services

import (
	"sort"

	"potato-prices/config"
	"potato-prices/models"
)

// DefaultSimilarityThreshold is the minimum Similarity for a fuzzy match.
const DefaultSimilarityThreshold = 0.8

// Resolver maps free-text district and state names to catalog states. It is
// read-only after construction and shared by every source pipeline.
type Resolver struct {
	catalog   []models.CanonicalState
	inCatalog map[models.CanonicalState]struct{}
	aliases   map[string]models.CanonicalState
	threshold float64

	// catalogKeys are the catalog slugs in catalog order.
	catalogKeys []string
	bySlug      map[string]models.CanonicalState

	// exact and known hold the same keys; known keeps build order so fuzzy
	// ties go to the earliest entry.
	exact map[string]models.CanonicalState
	known []string
}

// NewResolver builds the lookup tables from the catalog, the alias table and
// the district reference data. Keys are slugs. A threshold <= 0 selects
// DefaultSimilarityThreshold.
func NewResolver(catalog []models.CanonicalState, aliases map[string]string, districts []config.StateDistricts, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	r := &Resolver{
		catalog:   catalog,
		inCatalog: make(map[models.CanonicalState]struct{}, len(catalog)),
		aliases:   make(map[string]models.CanonicalState, len(aliases)),
		threshold: threshold,
		bySlug:    make(map[string]models.CanonicalState, len(catalog)),
		exact:     make(map[string]models.CanonicalState),
	}

	for _, s := range catalog {
		key := Slug(string(s))
		r.inCatalog[s] = struct{}{}
		if _, dup := r.bySlug[key]; !dup && key != "" {
			r.bySlug[key] = s
			r.catalogKeys = append(r.catalogKeys, key)
		}
		r.add(key, s)
	}

	aliasKeys := make([]string, 0, len(aliases))
	for k := range aliases {
		aliasKeys = append(aliasKeys, k)
	}
	sort.Strings(aliasKeys)
	for _, k := range aliasKeys {
		key := Slug(k)
		if _, isCatalog := r.bySlug[key]; isCatalog {
			continue
		}
		target := models.CanonicalState(Slug(aliases[k]))
		if s, ok := r.bySlug[string(target)]; ok {
			target = s
		}
		r.aliases[key] = target
		r.add(key, target)
	}

	for _, entry := range districts {
		state, ok := r.ResolveState(entry.Name)
		if !ok {
			state = models.CanonicalState(Slug(entry.Name))
		}
		r.add(Slug(entry.Name), state)
		for _, d := range entry.Districts {
			r.add(Slug(d), state)
		}
	}

	return r
}

// add records key unless it is empty or already taken; first writer wins.
func (r *Resolver) add(key string, state models.CanonicalState) {
	if key == "" || state == "" {
		return
	}
	if _, exists := r.exact[key]; exists {
		return
	}
	r.exact[key] = state
	r.known = append(r.known, key)
}

// Catalog returns the catalog in configured order.
func (r *Resolver) Catalog() []models.CanonicalState {
	return r.catalog
}

// Threshold returns the fuzzy-match acceptance threshold.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// InCatalog reports whether s is one of the catalog states.
func (r *Resolver) InCatalog(s models.CanonicalState) bool {
	_, ok := r.inCatalog[s]
	return ok
}

// Resolve maps a district or state name to a state. The state may lie
// outside the catalog when the reference data names it; callers check
// InCatalog. ok is false when nothing matched.
func (r *Resolver) Resolve(text string) (models.CanonicalState, bool) {
	key := Slug(text)
	if key == "" {
		return "", false
	}
	if s, ok := r.exact[key]; ok {
		return s, true
	}
	if best, ok := bestMatch(key, r.known, r.threshold); ok {
		return r.exact[best], true
	}
	return "", false
}

// ResolveState reconciles a state name against the catalog only: aliases
// first, then an exact catalog name, then the closest catalog name.
// Canonical names resolve to themselves.
func (r *Resolver) ResolveState(name string) (models.CanonicalState, bool) {
	key := Slug(name)
	if key == "" {
		return "", false
	}
	if s, ok := r.aliases[key]; ok {
		return s, true
	}
	if s, ok := r.bySlug[key]; ok {
		return s, true
	}
	if best, ok := bestMatch(key, r.catalogKeys, r.threshold); ok {
		return r.bySlug[best], true
	}
	return "", false
}

// ResolveAll annotates each observation with its state. Repeated location
// strings are only matched once.
func (r *Resolver) ResolveAll(raw []models.RawObservation) []models.ResolvedObservation {
	type hit struct {
		state models.CanonicalState
		ok    bool
	}
	memo := make(map[string]hit)

	out := make([]models.ResolvedObservation, 0, len(raw))
	for _, obs := range raw {
		h, seen := memo[obs.Location]
		if !seen {
			h.state, h.ok = r.Resolve(obs.Location)
			memo[obs.Location] = h
		}
		out = append(out, models.ResolvedObservation{RawObservation: obs, State: h.state, Resolved: h.ok})
	}
	return out
}

// bestMatch returns the candidate most similar to key. Ties keep the earlier
// candidate.
func bestMatch(key string, candidates []string, threshold float64) (string, bool) {
	var best string
	bestScore := -1.0
	for _, c := range candidates {
		if score := Similarity(key, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == "" || bestScore < threshold {
		return "", false
	}
	return best, true
}
