package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"potato-prices/models"
	"potato-prices/utils"
)

// UserAgent is sent by both the HTTP client and the headless browser.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// ErrNoStates is returned by PerState when no state page yielded a row.
var ErrNoStates = errors.New("no state page could be scraped")

// NewHTTPClient returns a resty client with the shared user agent and a
// per-request timeout. Responses are logged at debug level.
func NewHTTPClient(timeout time.Duration, logger *utils.Logger) *resty.Client {
	client := resty.New()
	client.SetHeader("user-agent", UserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml")
	client.SetTimeout(timeout)
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		logger.Debug("[http] %s %s -> %d (%v)", res.Request.Method, res.Request.URL, res.StatusCode(), res.Time())
		return nil
	})
	return client
}

// GetDocument fetches url and parses the body as HTML. Non-2xx statuses
// are errors.
func GetDocument(ctx context.Context, client *resty.Client, url string) (*goquery.Document, error) {
	res, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("get %s: unexpected status %d", url, res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// StateFetcher scrapes the page of one catalog state. found is false when
// the page exists but carries no price block.
type StateFetcher func(ctx context.Context, state models.CanonicalState) (obs models.RawObservation, found bool, err error)

// PerState runs fetch for every state through a rate-limited worker pool
// and returns the rows in catalog order. A failing state is logged and
// skipped; the call fails only when every state failed.
func PerState(ctx context.Context, source string, states []models.CanonicalState, workers, rateLimitMs int,
	logger *utils.Logger, progress ProgressFunc, fetch StateFetcher) ([]models.RawObservation, error) {
	pool := utils.NewWorkerPool(workers, rateLimitMs)
	seen := utils.NewStringSet()

	type slot struct {
		obs   models.RawObservation
		found bool
		err   error
	}
	slots := make([]slot, len(states))

	var mu sync.Mutex
	failed := 0
	for i, st := range states {
		if !seen.Add(string(st)) {
			continue
		}
		err := pool.Submit(ctx, func() {
			if err := ctx.Err(); err != nil {
				slots[i].err = err
			} else {
				if progress != nil {
					progress(source, string(st))
				}
				slots[i].obs, slots[i].found, slots[i].err = fetch(ctx, st)
			}
			if slots[i].err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				logger.Warn("[%s] %s: %v", source, st, slots[i].err)
			}
		})
		if err != nil {
			break
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.RawObservation, 0, seen.Size())
	for _, s := range slots {
		if s.err == nil && s.found {
			out = append(out, s.obs)
		}
	}
	if failed == seen.Size() && seen.Size() > 0 {
		return nil, fmt.Errorf("%s: %w (%d states tried)", source, ErrNoStates, failed)
	}
	logger.Info("[%s] %d/%d state pages carried prices, %d failed", source, len(out), seen.Size(), failed)
	return out, nil
}
