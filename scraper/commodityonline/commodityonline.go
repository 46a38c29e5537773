// Package commodityonline scrapes the per-state potato pages of
// commodityonline.com.
package commodityonline

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
	Name           = "commodityonline"
	defaultBaseURL = "https://www.commodityonline.com"
)

// Scraper fetches one highlight block per catalog state.
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

// StateURL returns the potato page of state.
func (s *Scraper) StateURL(state models.CanonicalState) string {
	return fmt.Sprintf("%s/mandiprices/potato/%s", s.baseURL, state)
}

func (s *Scraper) fetchState(ctx context.Context, state models.CanonicalState) (models.RawObservation, bool, error) {
	var doc *goquery.Document
	err := s.retry.Do(ctx, "commodityonline-"+string(state), func() error {
		var err error
		doc, err = scraper.GetDocument(ctx, s.client, s.StateURL(state))
		return err
	})
	if err != nil {
		return models.RawObservation{}, false, err
	}

	obs, found := ParseHighlights(doc)
	obs.Location = string(state)
	s.logger.Debug("[commodityonline] %s: ₹%.0f / ₹%.0f / ₹%.0f", state, obs.ModalPrice, obs.MinPrice, obs.MaxPrice)
	return obs, found, nil
}

// ParseHighlights reads the labelled price cards of the mandi highlight
// block. found is false when the block is absent or has no known card.
func ParseHighlights(doc *goquery.Document) (models.RawObservation, bool) {
	var obs models.RawObservation
	found := false
	doc.Find("div.mandi_highlight div.row > div.col-md-4").Each(func(_ int, card *goquery.Selection) {
		label := card.Find("h4").First()
		price := card.Find("p").First()
		if label.Length() == 0 || price.Length() == 0 {
			return
		}
		text := scraper.NormaliseText(label.Text())
		value := scraper.ParsePrice(price.Text())
		switch {
		case strings.Contains(text, "Average Price"):
			obs.ModalPrice, found = value, true
		case strings.Contains(text, "Lowest Market Price"):
			obs.MinPrice, found = value, true
		case strings.Contains(text, "Costliest Market Price"):
			obs.MaxPrice, found = value, true
		}
	})
	return obs, found
}
