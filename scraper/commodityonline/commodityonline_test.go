package commodityonline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"potato-prices/config"
	"potato-prices/models"
	"potato-prices/utils"
)

const highlightPage = `<html><body>
<div class="mandi_highlight"><div class="row">
  <div class="col-md-4"><h4>Average Price</h4><p>₹1,180/Quintal</p></div>
  <div class="col-md-4"><h4>Lowest Market Price</h4><p>₹ 900/Quintal</p></div>
  <div class="col-md-4"><h4>Costliest Market Price</h4><p>Rs 6,200/Quintal</p></div>
</div></div>
</body></html>`

func TestParseHighlights(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(highlightPage))
	if err != nil {
		t.Fatal(err)
	}
	obs, found := ParseHighlights(doc)
	if !found {
		t.Fatal("found: got false, want true")
	}
	// Values above the ceiling are kept here; aggregation drops them.
	want := models.RawObservation{MinPrice: 900, MaxPrice: 6200, ModalPrice: 1180}
	if obs != want {
		t.Errorf("got %+v, want %+v", obs, want)
	}
}

func TestParseHighlightsMissingBlock(t *testing.T) {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><body><h4>Average Price</h4></body></html>"))
	if _, found := ParseHighlights(doc); found {
		t.Error("found: got true, want false")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mandiprices/potato/punjab":
			w.Write([]byte(highlightPage))
		case "/mandiprices/potato/sikkim":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{MaxConcurrency: 3, MaxRetries: 2, PageTimeout: 5 * time.Second}
	s := New(cfg, utils.NewLoggerWithLevel(utils.LevelError), []models.CanonicalState{"sikkim", "punjab"}).WithBaseURL(srv.URL)

	rows, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 1 || rows[0].Location != "punjab" || rows[0].ModalPrice != 1180 {
		t.Errorf("rows: got %+v", rows)
	}
}
