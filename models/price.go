package models

// CanonicalState is a catalog state identifier such as "andhra-pradesh".
type CanonicalState string

// DefaultCatalog is the state list shipped with the scrapers. Spellings
// follow the source sites ("chattisgarh", "uttrakhand").
var DefaultCatalog = []CanonicalState{
	"andhra-pradesh", "arunachal-pradesh", "assam", "bihar", "chattisgarh",
	"delhi", "gujarat", "haryana", "himachal-pradesh", "jharkhand",
	"karnataka", "kerala", "madhya-pradesh", "maharashtra", "manipur",
	"meghalaya", "mizoram", "nagaland", "odisha", "punjab",
	"rajasthan", "sikkim", "tamil-nadu", "telangana", "tripura",
	"uttar-pradesh", "uttrakhand", "west-bengal",
}

// RawObservation is one scraped row. Prices are in ₹/quintal; a zero price
// means the row carried no usable value for that field.
type RawObservation struct {
	Location   string
	MinPrice   float64
	MaxPrice   float64
	ModalPrice float64
}

// ResolvedObservation is a RawObservation annotated with its catalog state.
// Resolved is false when the location matched nothing.
type ResolvedObservation struct {
	RawObservation
	State    CanonicalState
	Resolved bool
}

// PriceSummary holds per-state statistics for one source, or the combined
// figures across sources. A zero field means no valid observation.
type PriceSummary struct {
	State        CanonicalState `json:"State" db:"state"`
	MinPrice     int            `json:"Minimum_Price" db:"min_price"`
	MaxPrice     int            `json:"Maximum_Price" db:"max_price"`
	CurrentPrice int            `json:"Current_Price" db:"current_price"`
}

// IsEmpty reports whether no field carries a value.
func (p PriceSummary) IsEmpty() bool {
	return p.MinPrice == 0 && p.MaxPrice == 0 && p.CurrentPrice == 0
}

// AggregateStats counts what the aggregator discarded, for diagnostics.
type AggregateStats struct {
	Observations int `json:"observations"`
	Unresolved   int `json:"unresolved"`
	OutOfCatalog int `json:"out_of_catalog"`
	Implausible  int `json:"implausible"`
	// Usable is the number of observations that contributed at least one field.
	Usable int `json:"usable"`
}
