// Package commoditymarketlive scrapes the per-state potato summary pages of
// commoditymarketlive.com.
package commoditymarketlive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"potato-prices/config"
	"potato-prices/models"
	"potato-prices/scraper"
	"potato-prices/utils"
)

const (
	Name           = "commoditymarketlive"
	defaultBaseURL = "https://www.commoditymarketlive.com"

	labelAverage = "Average Market Price:"
	labelMinimum = "Minimum Market Price:"
	labelMaximum = "Maximum Market Price:"
)

// urlSlugs holds the states whose page slug differs from the catalog name.
var urlSlugs = map[models.CanonicalState]string{
	"delhi": "nct-of-delhi",
}

// Scraper fetches one summary page per catalog state.
type Scraper struct {
	cfg      *config.Config
	logger   *utils.Logger
	client   *resty.Client
	retry    *utils.RetryConfig
	states   []models.CanonicalState
	baseURL  string
	progress scraper.ProgressFunc
}

// New creates a Scraper for the given states.
func New(cfg *config.Config, logger *utils.Logger, states []models.CanonicalState) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		client: scraper.NewHTTPClient(cfg.PageTimeout, logger),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		states:  states,
		baseURL: defaultBaseURL,
	}
}

// WithBaseURL points the scraper at another host.
func (s *Scraper) WithBaseURL(u string) *Scraper {
	s.baseURL = strings.TrimRight(u, "/")
	return s
}

// WithProgress registers a callback invoked before each state page.
func (s *Scraper) WithProgress(fn scraper.ProgressFunc) *Scraper {
	s.progress = fn
	return s
}

func (s *Scraper) Name() string { return Name }

func (s *Scraper) Fetch(ctx context.Context) ([]models.RawObservation, error) {
	return scraper.PerState(ctx, Name, s.states, s.cfg.MaxConcurrency, s.cfg.RateLimitMs,
		s.logger, s.progress, s.fetchState)
}

// StateURL returns the summary page of state.
func (s *Scraper) StateURL(state models.CanonicalState) string {
	slug, ok := urlSlugs[state]
	if !ok {
		slug = string(state)
	}
	return fmt.Sprintf("%s/mandi-price-state/%s/potato", s.baseURL, slug)
}

func (s *Scraper) fetchState(ctx context.Context, state models.CanonicalState) (models.RawObservation, bool, error) {
	var doc *goquery.Document
	err := s.retry.Do(ctx, "commoditymarketlive-"+string(state), func() error {
		var err error
		doc, err = scraper.GetDocument(ctx, s.client, s.StateURL(state))
		return err
	})
	if err != nil {
		return models.RawObservation{}, false, err
	}

	obs, found := ParseSummary(doc)
	obs.Location = string(state)
	s.logger.Debug("[commoditymarketlive] %s: %.0f / %.0f / %.0f", state, obs.ModalPrice, obs.MinPrice, obs.MaxPrice)
	return obs, found, nil
}

// ParseSummary reads the price summary table. found is false when none of
// the three price rows is present.
func ParseSummary(doc *goquery.Document) (models.RawObservation, bool) {
	var obs models.RawObservation
	found := false
	doc.Find("table.pricesummarytable tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := scraper.NormaliseText(cells.Eq(0).Text())
		value := scraper.ParsePrice(cells.Eq(1).Text())
		switch label {
		case labelAverage:
			obs.ModalPrice, found = value, true
		case labelMinimum:
			obs.MinPrice, found = value, true
		case labelMaximum:
			obs.MaxPrice, found = value, true
		}
	})
	return obs, found
}
