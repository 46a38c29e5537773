// Package agmarknet scrapes the government AGMARKNET daily price report,
// which lists potato arrivals by district.
package agmarknet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"potato-prices/config"
	"potato-prices/models"
	"potato-prices/scraper"
	"potato-prices/scraper/browser"
	"potato-prices/utils"
)

const (
	Name     = "agmarknet"
	startURL = "https://agmarknet.gov.in/"

	// Form values: report type "Price" and commodity "Potato".
	arrivalPriceValue = "0"
	potatoCommodity   = "24"

	tableSelector = "#cphBody_GridPriceData"
)

// ErrNoRows is returned when the price table held no parsable row.
var ErrNoRows = errors.New("agmarknet: no valid price rows")

// Scraper drives the AGMARKNET search form in a headless browser.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
	url    string
}

// New creates a ready-to-use AGMARKNET Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		url: startURL,
	}
}

func (s *Scraper) Name() string { return Name }

// Fetch submits the price form for potato and parses the resulting table.
func (s *Scraper) Fetch(ctx context.Context) ([]models.RawObservation, error) {
	s.logger.Info("[agmarknet] Opening %s", s.url)

	browserCtx, cancel := browser.NewContext(ctx, browser.Options{
		ChromeBin: s.cfg.ChromeBin,
		Headless:  s.cfg.Headless,
		UserAgent: scraper.UserAgent,
	})
	defer cancel()

	var html string
	err := s.retry.Do(ctx, "agmarknet-price-table", func() error {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 3*s.cfg.PageTimeout)
		defer cancelTimeout()

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(s.url),
			chromedp.WaitReady("#ddlArrivalPrice", chromedp.ByQuery),
			browser.SelectValue("#ddlArrivalPrice", arrivalPriceValue),
			chromedp.Sleep(2*time.Second),
			chromedp.WaitReady("#ddlCommodity", chromedp.ByQuery),
			browser.SelectValue("#ddlCommodity", potatoCommodity),
			chromedp.Sleep(2*time.Second),
			chromedp.Click("#btnGo", chromedp.ByQuery),
			chromedp.WaitVisible(tableSelector, chromedp.ByQuery),
			chromedp.Sleep(4*time.Second),
			chromedp.OuterHTML(tableSelector, &html, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("chromedp price table: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err := ParseTable(html)
	if err != nil {
		return nil, err
	}
	s.logger.Info("[agmarknet] Parsed %d district rows", len(rows))
	return rows, nil
}

// ParseTable reads the price grid. Columns are located by header text, rows
// whose cell count differs from the header are skipped, as are rows whose
// prices are not whole numbers.
func ParseTable(html string) ([]models.RawObservation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("agmarknet: parse table: %w", err)
	}

	var headers []string
	doc.Find("tr th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, scraper.NormaliseText(th.Text()))
	})

	col := func(names ...string) int {
		for _, n := range names {
			for i, h := range headers {
				if strings.EqualFold(h, n) {
					return i
				}
			}
		}
		return -1
	}
	district := col("District Name", "District")
	minCol := col("Min Price (Rs./Quintal)")
	maxCol := col("Max Price (Rs./Quintal)")
	modalCol := col("Modal Price (Rs./Quintal)")
	if district < 0 || minCol < 0 || maxCol < 0 || modalCol < 0 {
		return nil, fmt.Errorf("%w: unexpected headers %q", ErrNoRows, headers)
	}

	var out []models.RawObservation
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 || cells.Length() != len(headers) {
			return
		}
		text := func(i int) string { return scraper.NormaliseText(cells.Eq(i).Text()) }

		lo, err1 := strconv.Atoi(text(minCol))
		hi, err2 := strconv.Atoi(text(maxCol))
		modal, err3 := strconv.Atoi(text(modalCol))
		if err1 != nil || err2 != nil || err3 != nil {
			return
		}
		out = append(out, models.RawObservation{
			Location:   text(district),
			MinPrice:   float64(lo),
			MaxPrice:   float64(hi),
			ModalPrice: float64(modal),
		})
	})

	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}
