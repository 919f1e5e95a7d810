package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"fiyat-bot/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Result is the outcome of one extraction attempt. A nil Price means every
// tier failed. Promo, when set, is never greater than Price.
type Result struct {
	Price *decimal.Decimal
	Promo *decimal.Decimal
	Stock models.StockState
}

// Found reports whether a usable price was extracted.
func (r Result) Found() bool {
	return r.Price != nil
}

// Renderer produces the fully rendered HTML of a page, for prices injected
// by client-side scripts.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Extractor extracts (price, promo price, stock state) from a product page,
// trying strategies in order of cost: the embedded ld+json offer block, a
// class-pattern scan of the static markup, and finally the same scan over a
// headless-rendered copy of the page.
type Extractor struct {
	client    *http.Client
	userAgent string
	renderer  Renderer
}

// New creates an Extractor. renderer may be nil to disable the rendered-page
// fallback.
func New(fetchTimeout time.Duration, userAgent string, renderer Renderer) *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: userAgent,
		renderer:  renderer,
	}
}

// Matches the class names Trendyol uses for price elements ("prc-dsc",
// "prc-org", "product-price", ...).
var classPattern = regexp.MustCompile(`(?i)prc|price`)

var outOfStockPattern = regexp.MustCompile(`(?i)Tükendi|Stokta yok|Stok tükendi`)

// Extract never returns an error: an unreachable page, malformed markup or a
// timeout in any tier degrades to the next tier, and finally to an empty
// Result.
func (e *Extractor) Extract(ctx context.Context, url string) Result {
	doc, err := e.fetch(ctx, url)
	if err != nil {
		log.WithError(err).Debugf("Direct fetch failed for %s", url)
	} else {
		if res, ok := extractStructured(doc); ok {
			return res
		}
		if res, ok := extractMarkup(doc); ok {
			return res
		}
	}

	return e.extractRendered(ctx, url)
}

func (e *Extractor) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse HTML")
	}
	return doc, nil
}

// extractStructured reads the first ld+json script block and, when it carries
// a single offer object, uses its author-supplied price and availability.
// This is the highest-confidence source on the page.
func extractStructured(doc *goquery.Document) (Result, bool) {
	block := doc.Find(`script[type="application/ld+json"]`).First()
	if block.Length() == 0 {
		return Result{}, false
	}

	var payload struct {
		Offers json.RawMessage `json:"offers"`
	}
	if err := json.Unmarshal([]byte(block.Text()), &payload); err != nil || len(payload.Offers) == 0 {
		return Result{}, false
	}

	// Offers may also be a list; only the single-offer object form is used.
	var offer struct {
		Price        interface{} `json:"price"`
		Availability string      `json:"availability"`
	}
	dec := json.NewDecoder(bytes.NewReader(payload.Offers))
	dec.UseNumber()
	if err := dec.Decode(&offer); err != nil || offer.Price == nil {
		return Result{}, false
	}

	price, err := ParsePrice(fmt.Sprint(offer.Price))
	if err != nil {
		return Result{}, false
	}

	stock := models.StockOut
	if strings.Contains(strings.ToLower(offer.Availability), "instock") {
		stock = models.StockIn
	}
	return Result{Price: &price, Stock: stock}, true
}

// extractMarkup scans the static markup for price-classed elements. No
// negative stock signal is checked here, so stock defaults to in-stock.
func extractMarkup(doc *goquery.Document) (Result, bool) {
	prices := scanPrices(doc)
	if len(prices) == 0 {
		return Result{}, false
	}
	return markupResult(prices, models.StockIn), true
}

func (e *Extractor) extractRendered(ctx context.Context, url string) Result {
	if e.renderer == nil {
		return Result{}
	}

	html, err := e.renderer.Render(ctx, url)
	if err != nil {
		log.WithError(err).Debugf("Rendered fetch failed for %s", url)
		return Result{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}
	}

	prices := scanPrices(doc)
	if len(prices) == 0 {
		return Result{}
	}

	stock := models.StockIn
	if outOfStockPattern.MatchString(doc.Text()) {
		stock = models.StockOut
	}
	return markupResult(prices, stock)
}

// scanPrices collects the distinct normalized values of all span/div elements
// whose class matches the price pattern, sorted ascending. Zero values are
// dropped along with unparseable ones.
func scanPrices(doc *goquery.Document) []decimal.Decimal {
	seen := make(map[string]bool)
	var prices []decimal.Decimal

	doc.Find("span, div").Each(func(_ int, s *goquery.Selection) {
		class, ok := s.Attr("class")
		if !ok || !classPattern.MatchString(class) {
			return
		}
		price, err := ParsePrice(strings.TrimSpace(s.Text()))
		if err != nil || price.IsZero() {
			return
		}
		if key := price.String(); !seen[key] {
			seen[key] = true
			prices = append(prices, price)
		}
	})

	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	return prices
}

// markupResult maps a sorted candidate list to a Result. The largest value is
// taken as the list price and, when more than one distinct value is present,
// the smallest as the promotional price. This is a heuristic tied to how the
// site renders strikethrough list prices next to smaller sale prices; atypical
// layouts (multi-price widgets) can misclassify.
func markupResult(prices []decimal.Decimal, stock models.StockState) Result {
	res := Result{Price: &prices[len(prices)-1], Stock: stock}
	if len(prices) > 1 {
		res.Promo = &prices[0]
	}
	return res
}
