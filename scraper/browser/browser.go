// Package browser starts the headless Chrome instance shared by the
// JavaScript-driven sources.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"
)

// Options configure the browser process.
type Options struct {
	// ChromeBin overrides binary discovery when set.
	ChromeBin string
	Headless  bool
	UserAgent string
}

// NewContext starts a browser and returns a context bound to it. Cancelling
// the returned func shuts the browser down. Tabs are opened with
// chromedp.NewContext on the returned context.
func NewContext(parent context.Context, opts Options) (context.Context, context.CancelFunc) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 800),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if bin := FindChromeBinary(opts.ChromeBin); bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return browserCtx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}

// FindChromeBinary locates a Chrome/Chromium binary. configured wins, then
// CHROME_BIN, then PATH, then well-known install locations. An empty result
// lets chromedp use its own lookup.
func FindChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// SelectValue sets a <select> element's value and fires its change event,
// as a user selection would. It is a no-op when the value is already set.
func SelectValue(selector, value string) chromedp.Action {
	js := fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		if (!el) { return "missing"; }
		if (el.value === %q) { return "unchanged"; }
		el.value = %q;
		el.dispatchEvent(new Event("change", { bubbles: true }));
		return "changed";
	})()`, selector, value, value)

	return chromedp.ActionFunc(func(ctx context.Context) error {
		var result string
		if err := chromedp.Evaluate(js, &result).Do(ctx); err != nil {
			return fmt.Errorf("select %s=%s: %w", selector, value, err)
		}
		if result == "missing" {
			return fmt.Errorf("select %s: element not found", selector)
		}
		return nil
	})
}
