// Package mandiprices scrapes mandiprices.in, a single-page app whose price
// table is filtered through combobox widgets.
package mandiprices

import (
	"context"
	"fmt"
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
	Name     = "mandiprices"
	startURL = "https://www.mandiprices.in/"

	optionSelector = `div[role="option"][data-radix-collection-item]`
	popperSelector = `div[data-radix-popper-content-wrapper]`
	rowSelector    = "table tbody tr"

	// Column layout of the result table.
	minCells = 11
	stateCol = 1
	minCol   = 8
	maxCol   = 9
	modalCol = 10
)

// filter is one combobox choice: the label shown while unset and the
// option to pick.
type filter struct {
	label  string
	option string
}

var filters = []filter{
	{"All Commodities", "Potato"},
	{"All States", "All States"},
	{"Price in Kg", "Price in Quintal"},
	{"Paginated", "Scroll"},
}

// Scraper drives the mandiprices.in filters in a headless browser.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
	url    string
}

// New creates a ready-to-use mandiprices.in Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		url: startURL,
	}
}

func (s *Scraper) Name() string { return Name }

// Fetch applies the potato / quintal / scroll filters and parses every
// table row.
func (s *Scraper) Fetch(ctx context.Context) ([]models.RawObservation, error) {
	s.logger.Info("[mandiprices] Opening %s", s.url)

	browserCtx, cancel := browser.NewContext(ctx, browser.Options{
		ChromeBin: s.cfg.ChromeBin,
		Headless:  s.cfg.Headless,
		UserAgent: scraper.UserAgent,
	})
	defer cancel()

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	err := s.retry.Do(ctx, "mandiprices-navigate", func() error {
		navCtx, cancelNav := context.WithTimeout(tabCtx, 2*s.cfg.PageTimeout)
		defer cancelNav()
		return chromedp.Run(navCtx,
			chromedp.Navigate(s.url),
			chromedp.Sleep(3*time.Second),
		)
	})
	if err != nil {
		return nil, err
	}

	for _, f := range filters {
		if err := chromedp.Run(tabCtx, s.selectByLabel(ctx, f)); err != nil {
			// A filter that cannot be set leaves the site default in place.
			s.logger.Warn("[mandiprices] Filter %q -> %q failed: %v", f.label, f.option, err)
		}
	}

	var html string
	err = s.retry.Do(ctx, "mandiprices-table", func() error {
		waitCtx, cancelWait := context.WithTimeout(tabCtx, s.cfg.PageTimeout)
		defer cancelWait()
		return chromedp.Run(waitCtx,
			chromedp.WaitVisible(rowSelector, chromedp.ByQuery),
			chromedp.Sleep(3*time.Second),
			chromedp.OuterHTML("table", &html, chromedp.ByQuery),
		)
	})
	if err != nil {
		return nil, err
	}

	rows := ParseTable(html)
	s.logger.Info("[mandiprices] Parsed %d table rows", len(rows))
	return rows, nil
}

// selectByLabel opens the combobox whose text contains f.label and picks
// f.option. A combobox already showing the option is left alone.
func (s *Scraper) selectByLabel(ctx context.Context, f filter) chromedp.Action {
	openJS := fmt.Sprintf(`(function() {
		var label = %q.toLowerCase(), want = %q.toLowerCase();
		var boxes = Array.from(document.querySelectorAll('button[role="combobox"]'));
		var target = null;
		for (var i = 0; i < boxes.length; i++) {
			var span = boxes[i].querySelector("span");
			var text = (span ? span.innerText : "").toLowerCase();
			if (text.indexOf(label) >= 0) { target = boxes[i]; break; }
		}
		if (!target) {
			for (var j = 0; j < boxes.length; j++) {
				if ((boxes[j].textContent || "").toLowerCase().indexOf(want) >= 0) { return "selected"; }
			}
			return "missing";
		}
		if ((target.textContent || "").toLowerCase().indexOf(want) >= 0) { return "selected"; }
		target.click();
		return "opened";
	})()`, f.label, f.option)

	clickJS := fmt.Sprintf(`(function() {
		var want = %q.toLowerCase();
		var opts = document.querySelectorAll(%q);
		for (var i = 0; i < opts.length; i++) {
			if ((opts[i].textContent || "").toLowerCase().indexOf(want) >= 0) {
				opts[i].scrollIntoView({ block: "center" });
				opts[i].click();
				return true;
			}
		}
		return false;
	})()`, f.option, optionSelector)

	return chromedp.ActionFunc(func(tabCtx context.Context) error {
		var state string
		if err := chromedp.Evaluate(openJS, &state).Do(tabCtx); err != nil {
			return err
		}
		switch state {
		case "selected":
			s.logger.Debug("[mandiprices] Already selected: %q", f.option)
			return nil
		case "missing":
			s.logger.Warn("[mandiprices] Skipping: no combobox labelled %q", f.label)
			return nil
		}

		s.logger.Debug("[mandiprices] Selecting %q from %q", f.option, f.label)
		return s.retry.Do(ctx, "mandiprices-option-"+f.option, func() error {
			waitCtx, cancel := context.WithTimeout(tabCtx, 8*time.Second)
			defer cancel()

			var clicked bool
			err := chromedp.Run(waitCtx,
				chromedp.WaitVisible(popperSelector, chromedp.ByQuery),
				chromedp.Evaluate(clickJS, &clicked),
				chromedp.Sleep(time.Second),
			)
			if err != nil {
				return err
			}
			if !clicked {
				return fmt.Errorf("option %q not found", f.option)
			}
			return nil
		})
	})
}

// ParseTable reads the result rows: state name in the second cell and
// min/max/modal ₹/quintal in cells 9-11. Short rows are skipped.
func ParseTable(html string) []models.RawObservation {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []models.RawObservation
	doc.Find(rowSelector).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < minCells {
			return
		}
		text := func(i int) string { return scraper.NormaliseText(cells.Eq(i).Text()) }
		out = append(out, models.RawObservation{
			Location:   text(stateCol),
			MinPrice:   scraper.ParsePrice(text(minCol)),
			MaxPrice:   scraper.ParsePrice(text(maxCol)),
			ModalPrice: scraper.ParsePrice(text(modalCol)),
		})
	})
	return out
}
