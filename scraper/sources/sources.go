// Package sources builds the configured source adapters by name.
package sources

import (
	"fmt"

	"potato-prices/config"
	"potato-prices/models"
	"potato-prices/scraper"
	"potato-prices/scraper/agmarknet"
	"potato-prices/scraper/commoditymarketlive"
	"potato-prices/scraper/commodityonline"
	"potato-prices/scraper/mandiprices"
	"potato-prices/utils"
)

// Build returns one Source per name, in the given order. When
// cfg.FixtureDir is set every source replays <dir>/<name>.json instead of
// going to the network.
func Build(cfg *config.Config, logger *utils.Logger, states []models.CanonicalState, names []string) ([]scraper.Source, error) {
	progress := func(source, step string) {
		logger.Debug("[%s] Scraping %s", source, step)
	}

	out := make([]scraper.Source, 0, len(names))
	seen := utils.NewStringSet()
	for _, name := range names {
		if !seen.Add(name) {
			continue
		}
		if !Known(name) {
			return nil, fmt.Errorf("unknown source %q (known: %v)", name, config.AllSources)
		}
		if cfg.FixtureDir != "" {
			out = append(out, scraper.NewFileSource(name, cfg.FixtureDir))
			continue
		}

		switch name {
		case agmarknet.Name:
			out = append(out, agmarknet.New(cfg, logger))
		case mandiprices.Name:
			out = append(out, mandiprices.New(cfg, logger))
		case commoditymarketlive.Name:
			out = append(out, commoditymarketlive.New(cfg, logger, states).WithProgress(progress))
		case commodityonline.Name:
			out = append(out, commodityonline.New(cfg, logger, states).WithProgress(progress))
		}
	}
	return out, nil
}

// Known reports whether name is a supported source.
func Known(name string) bool {
	for _, s := range config.AllSources {
		if s == name {
			return true
		}
	}
	return false
}
