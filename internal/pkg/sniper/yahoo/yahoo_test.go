package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

const searchPage = `<html><body><ul>
<li class="Product">
  <a href="https://auctions.yahoo.co.jp/jp/auction/x123456789?ref=search"><img src="//auctions.c.yimg.jp/images/x1.jpg"></a>
  <h3 class="Product__title"><a href="https://auctions.yahoo.co.jp/jp/auction/x123456789" title="Raf Simons 2002 bomber jacket">Raf Simons…</a></h3>
  <span class="Product__price"><span class="Product__priceValue">15,000円</span></span>
</li>
<li class="Product">
  <a href="https://auctions.yahoo.co.jp/jp/auction/dummy123">ad</a>
  <a href="https://page.auctions.yahoo.co.jp/jp/auction/1098765432#bids"><img data-src="https://img.example/2.jpg"></a>
  <h3><a>  Rick Owens ジャケット  </a></h3>
  <div class="Price">現在 8,800 円</div>
</li>
<li class="Product">
  <a href="https://example.com/auction/x1">no yahoo link</a>
  <h3>Orphan item</h3>
  <div class="Price">1,000円</div>
</li>
<div class="Product">
  <a href="https://auctions.yahoo.co.jp/jp/auction/k555555555">Priceless</a>
  <h3>No price here</h3>
</div>
</ul></body></html>`

func TestParse(t *testing.T) {
	items, err := Parse([]byte(searchPage))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, Item{
		AuctionID: "x123456789",
		Title:     "Raf Simons 2002 bomber jacket",
		PriceJPY:  15000,
		ImageURL:  "https://auctions.c.yimg.jp/images/x1.jpg",
		YahooURL:  "https://auctions.yahoo.co.jp/jp/auction/x123456789",
	}, items[0])

	assert.Equal(t, "1098765432", items[1].AuctionID)
	assert.Equal(t, "Rick Owens ジャケット", items[1].Title)
	assert.Equal(t, int64(8800), items[1].PriceJPY)
	assert.Equal(t, "https://img.example/2.jpg", items[1].ImageURL)
}

func TestParseCapsAtPageSize(t *testing.T) {
	var page string
	for i := 0; i < PageSize+10; i++ {
		page += fmt.Sprintf(`<div class="Product"><a href="https://auctions.yahoo.co.jp/jp/auction/x%09d">t</a>`+
			`<h3>Item %d title</h3><span class="price">1,000</span></div>`, i, i)
	}

	items, err := Parse([]byte(page))
	require.NoError(t, err)
	assert.Len(t, items, PageSize)
}

func newTestFetcher(srvURL string) *Fetcher {
	return NewFetcher(FetcherConfig{SearchURL: srvURL, MinPriceUSD: 2, MaxPriceUSD: 1500}, nil, logger.NewNop())
}

func TestSearchURL(t *testing.T) {
	f := newTestFetcher("https://auctions.yahoo.co.jp/search/search")

	u, err := url.Parse(f.SearchURL("rick owens fw", 2, 150))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "rick owens fw", q.Get("p"))
	assert.Equal(t, "51", q.Get("b"))
	assert.Equal(t, "50", q.Get("n"))
	assert.Equal(t, "300", q.Get("aucminprice"))
	assert.Equal(t, "225000", q.Get("aucmaxprice"))
	assert.Equal(t, "end", q.Get("sort"))
	assert.Equal(t, "a", q.Get("order"))
	assert.Equal(t, "commerce", q.Get("tab_ex"))
}

func TestSearchStopsOnEmptyPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("b") == "1" {
			_, _ = w.Write([]byte(searchPage))
			return
		}
		_, _ = w.Write([]byte(`<html><body>no results</body></html>`))
	}))
	defer srv.Close()

	items, err := newTestFetcher(srv.URL).Search(context.Background(), "raf simons", 5, 150)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchGivesUpAfterConsecutiveErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Search(context.Background(), "raf simons", 10, 150)
	assert.Error(t, err)
	assert.Equal(t, int32(maxConsecutiveErrors), calls.Load())
}

func TestSearchKeepsPartialResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("b") == "1" {
			_, _ = w.Write([]byte(searchPage))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	items, err := newTestFetcher(srv.URL).Search(context.Background(), "raf simons", 2, 150)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
