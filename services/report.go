package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"potato-prices/models"
	"potato-prices/utils"
)

// Highlights are the headline figures of a combined table.
type Highlights struct {
	StatesWithPrices int
	AverageCurrent   float64
	Cheapest         *models.PriceSummary
	Costliest        *models.PriceSummary
}

// ReportService renders run reports for the console.
type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Highlights picks the cheapest and costliest states by current price.
// States without a current price are ignored; ties keep the state that
// sorts first.
func (s *ReportService) Highlights(rows []models.PriceSummary) Highlights {
	var h Highlights
	var total float64
	for i := range rows {
		row := &rows[i]
		if row.CurrentPrice <= 0 {
			continue
		}
		h.StatesWithPrices++
		total += float64(row.CurrentPrice)
		if h.Cheapest == nil || row.CurrentPrice < h.Cheapest.CurrentPrice ||
			(row.CurrentPrice == h.Cheapest.CurrentPrice && row.State < h.Cheapest.State) {
			h.Cheapest = row
		}
		if h.Costliest == nil || row.CurrentPrice > h.Costliest.CurrentPrice ||
			(row.CurrentPrice == h.Costliest.CurrentPrice && row.State < h.Costliest.State) {
			h.Costliest = row
		}
	}
	if h.StatesWithPrices > 0 {
		h.AverageCurrent = round2(total / float64(h.StatesWithPrices))
	}
	return h
}

// Print writes the source status table, the combined price table and the
// highlights to w.
func (s *ReportService) Print(w io.Writer, r *models.RunReport) {
	fmt.Fprintf(w, "\nRun %s at %s\n", r.RunID, r.RunTimestamp)

	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetTitle("Sources")
	st.AppendHeader(table.Row{"Source", "Status", "Rows", "Usable", "Unresolved", "Out of catalog", "Implausible", "Took"})
	for _, res := range r.Results {
		st.AppendRow(table.Row{
			res.Source,
			statusText(res.Status),
			res.Stats.Observations,
			res.Stats.Usable,
			res.Stats.Unresolved,
			res.Stats.OutOfCatalog,
			res.Stats.Implausible,
			res.Duration.Round(time.Millisecond),
		})
	}
	st.SetStyle(table.StyleRounded)
	st.Render()

	s.PrintTable(w, "Combined prices (₹/quintal)", r.Combined)

	h := s.Highlights(r.Combined)
	if h.StatesWithPrices == 0 {
		fmt.Fprintln(w, "  No price data available")
		return
	}
	fmt.Fprintf(w, "  States with prices : %d\n", h.StatesWithPrices)
	fmt.Fprintf(w, "  Average current    : ₹%.2f\n", h.AverageCurrent)
	fmt.Fprintf(w, "  Cheapest           : %s (₹%d)\n", h.Cheapest.State, h.Cheapest.CurrentPrice)
	fmt.Fprintf(w, "  Costliest          : %s (₹%d)\n", h.Costliest.State, h.Costliest.CurrentPrice)
	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "  Failed sources     : %s\n", strings.Join(r.Failures, ", "))
	}
}

// PrintTable renders one summary table. Zero prices print as "-".
func (s *ReportService) PrintTable(w io.Writer, title string, rows []models.PriceSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"State", "Min", "Max", "Current"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.State, priceCell(row.MinPrice), priceCell(row.MaxPrice), priceCell(row.CurrentPrice)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// PrintStates lists the catalog with the number of names known for each
// state.
func (s *ReportService) PrintStates(w io.Writer, catalog []models.CanonicalState, names map[models.CanonicalState]int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "State", "Known names"})
	for i, st := range catalog {
		t.AppendRow(table.Row{i + 1, st, names[st]})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// PrintAliases lists the alias table, sorted by alias.
func (s *ReportService) PrintAliases(w io.Writer, aliases map[string]string) {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Aliases")
	t.AppendHeader(table.Row{"Alias", "State"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, aliases[k]})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// NameCounts counts the exact-match names (aliases, districts) that resolve
// to each state, not counting the state's own name.
func NameCounts(r *Resolver) map[models.CanonicalState]int {
	counts := make(map[models.CanonicalState]int)
	for _, k := range r.known {
		st := r.exact[k]
		if Slug(string(st)) == k {
			continue
		}
		counts[st]++
	}
	return counts
}

func statusText(s models.SourceStatus) string {
	switch s {
	case models.StatusOK:
		return text.FgGreen.Sprint(string(s))
	case models.StatusNoData:
		return text.FgYellow.Sprint(string(s))
	default:
		return text.FgRed.Sprint(string(s))
	}
}

func priceCell(v int) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", v)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
