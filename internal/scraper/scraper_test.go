package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fiyat-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	html  string
	err   error
	calls int
}

func (r *stubRenderer) Render(ctx context.Context, url string) (string, error) {
	r.calls++
	return r.html, r.err
}

func newTestServer(pages map[string]string) *httptest.Server {
	mux := http.NewServeMux()
	for path, page := range pages {
		page := page
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(page))
		})
	}
	return httptest.NewServer(mux)
}

func TestExtractStructuredDataWinsOverMarkup(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{"@type":"Product","offers":{"price":"1999,90","availability":"https://schema.org/InStock"}}
</script>
</head><body>
<span class="prc-dsc">149,90 TL</span>
<span class="prc-org">199,90 TL</span>
</body></html>`

	ts := newTestServer(map[string]string{"/product": page})
	defer ts.Close()

	renderer := &stubRenderer{}
	e := New(2*time.Second, "test-agent", renderer)

	res := e.Extract(context.Background(), ts.URL+"/product")
	require.True(t, res.Found())
	assert.Equal(t, "1999.9", res.Price.String())
	assert.Nil(t, res.Promo)
	assert.Equal(t, models.StockIn, res.Stock)
	assert.Zero(t, renderer.calls, "rendered tier must not run when static tiers succeed")
}

func TestExtractStructuredDataOutOfStock(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
{"offers":{"price":"899,00","availability":"https://schema.org/OutOfStock"}}
</script></head><body></body></html>`

	ts := newTestServer(map[string]string{"/product": page})
	defer ts.Close()

	e := New(2*time.Second, "test-agent", nil)
	res := e.Extract(context.Background(), ts.URL+"/product")
	require.True(t, res.Found())
	assert.Equal(t, models.StockOut, res.Stock)
}

func TestExtractMarkupMaxMinSelection(t *testing.T) {
	// Duplicates collapse; the largest distinct value is the list price and
	// the smallest the promo.
	page := `<html><body>
<div class="product-price-container">
	<span class="prc-org">199,90 TL</span>
	<span class="prc-dsc">149,90 TL</span>
	<div class="prc-dsc-box">149,90 TL</div>
</div>
</body></html>`

	ts := newTestServer(map[string]string{"/product": page})
	defer ts.Close()

	e := New(2*time.Second, "test-agent", nil)
	res := e.Extract(context.Background(), ts.URL+"/product")
	require.True(t, res.Found())
	assert.Equal(t, "199.9", res.Price.String())
	require.NotNil(t, res.Promo)
	assert.Equal(t, "149.9", res.Promo.String())
	assert.Equal(t, models.StockIn, res.Stock)
}

func TestExtractMarkupSinglePriceHasNoPromo(t *testing.T) {
	page := `<html><body><span class="prc-dsc">89,99 TL</span></body></html>`

	ts := newTestServer(map[string]string{"/product": page})
	defer ts.Close()

	e := New(2*time.Second, "test-agent", nil)
	res := e.Extract(context.Background(), ts.URL+"/product")
	require.True(t, res.Found())
	assert.Equal(t, "89.99", res.Price.String())
	assert.Nil(t, res.Promo)
}

func TestExtractMalformedStructuredDataFallsThrough(t *testing.T) {
	page := `<html><head><script type="application/ld+json">{not json</script></head>
<body><span class="prc-dsc">59,90</span></body></html>`

	ts := newTestServer(map[string]string{"/product": page})
	defer ts.Close()

	e := New(2*time.Second, "test-agent", nil)
	res := e.Extract(context.Background(), ts.URL+"/product")
	require.True(t, res.Found())
	assert.Equal(t, "59.9", res.Price.String())
}

func TestExtractRenderedFallback(t *testing.T) {
	// The static page carries no price; only the rendered DOM does, and it
	// mentions an out-of-stock phrase.
	static := `<html><body><div id="app"></div></body></html>`
	rendered := `<html><body>
<span class="prc-org">299,90 TL</span>
<span class="prc-dsc">249,90 TL</span>
<div class="stock-warning">Stokta yok</div>
</body></html>`

	ts := newTestServer(map[string]string{"/product": static})
	defer ts.Close()

	renderer := &stubRenderer{html: rendered}
	e := New(2*time.Second, "test-agent", renderer)

	res := e.Extract(context.Background(), ts.URL+"/product")
	require.True(t, res.Found())
	assert.Equal(t, "299.9", res.Price.String())
	require.NotNil(t, res.Promo)
	assert.Equal(t, "249.9", res.Promo.String())
	assert.Equal(t, models.StockOut, res.Stock)
	assert.Equal(t, 1, renderer.calls)
}

func TestExtractTotalFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	renderer := &stubRenderer{err: context.DeadlineExceeded}
	e := New(2*time.Second, "test-agent", renderer)

	res := e.Extract(context.Background(), ts.URL+"/product")
	assert.False(t, res.Found())
	assert.Nil(t, res.Price)
	assert.Nil(t, res.Promo)
	assert.Equal(t, 1, renderer.calls, "rendered tier is still attempted after a fetch failure")
}

func TestExtractUnreachableHostDegrades(t *testing.T) {
	e := New(500*time.Millisecond, "test-agent", nil)
	res := e.Extract(context.Background(), "http://127.0.0.1:1/product")
	assert.False(t, res.Found())
}
