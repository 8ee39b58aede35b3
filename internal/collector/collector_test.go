package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"MarketDash/internal/model"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestCoinGecko_FetchQuotes(t *testing.T) {
	var gotQuery string
	var gotKey string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("vs_currency")
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000,"market_cap":1.2e12,"market_cap_rank":1,"total_volume":3e10,"price_change_percentage_24h":2.5},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3500,"market_cap":4.2e11,"market_cap_rank":2,"total_volume":1.5e10,"price_change_percentage_24h":null},
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin dup"}
		]`))
	})

	g := NewCoinGecko("demo", "")
	g.BaseURL = srv.URL
	quotes, err := g.FetchQuotes(context.Background(), model.USD)
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if gotQuery != "usd" {
		t.Errorf("vs_currency = %q, want usd", gotQuery)
	}
	if gotKey != "demo" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2 (duplicate ids dropped)", len(quotes))
	}
	btc := quotes[0]
	if btc.ID != "bitcoin" || btc.Symbol != "BTC" || btc.Price != 65000 || btc.Rank != 1 {
		t.Errorf("unexpected bitcoin quote: %+v", btc)
	}
	if btc.Kind != model.KindCrypto || btc.Currency != model.USD {
		t.Errorf("kind/currency = %s/%s", btc.Kind, btc.Currency)
	}
	if quotes[1].Change24h != 0 {
		t.Errorf("null change should decode as 0, got %v", quotes[1].Change24h)
	}
}

func TestCoinGecko_FetchHistorySorted(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/bitcoin/market_chart" || r.URL.Query().Get("days") != "7" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"prices":[[1700000200000,101.5],[1700000000000,100.0],[1700000100000,100.7]]}`))
	})

	g := NewCoinGecko("", "")
	g.BaseURL = srv.URL
	points, err := g.FetchHistory(context.Background(), "bitcoin", model.INR, 7)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points", len(points))
	}
	for i := 1; i < len(points); i++ {
		if !points[i-1].Time.Before(points[i].Time) {
			t.Errorf("points not ascending at %d", i)
		}
	}
	if points[0].Price != 100.0 || points[2].Price != 101.5 {
		t.Errorf("unexpected prices: %v", points)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
		malformed   bool
	}{
		{"server error", http.StatusInternalServerError, "boom", false, false},
		{"rate limited", http.StatusTooManyRequests, `{"status":{"error_code":429}}`, true, false},
		{"malformed", http.StatusOK, `{"not":"a list"`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			g := NewCoinGecko("", "")
			g.BaseURL = srv.URL
			_, err := g.FetchQuotes(context.Background(), model.INR)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsRateLimited(err); got != tt.rateLimited {
				t.Errorf("IsRateLimited = %v, want %v (%v)", got, tt.rateLimited, err)
			}
			if got := errors.Is(err, ErrMalformed); got != tt.malformed {
				t.Errorf("errors.Is(ErrMalformed) = %v, want %v (%v)", got, tt.malformed, err)
			}
			var se *StatusError
			if wantStatus := tt.status != http.StatusOK; errors.As(err, &se) != wantStatus {
				t.Errorf("StatusError presence mismatch: %v", err)
			}
		})
	}
}

const yahooRelianceChart = `{"chart":{"result":[{
	"meta":{"currency":"INR","symbol":"RELIANCE.NS","longName":"Reliance Industries Limited","regularMarketPrice":2500,"previousClose":2470,"regularMarketVolume":5000000},
	"timestamp":[1700086400,1700000000,1700172800],
	"indicators":{"quote":[{"close":[2480,2470,null]}]}
}],"error":null}}`

const yahooFXChart = `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"INRUSD=X","regularMarketPrice":0.012}}],"error":null}}`

func yahooServer(t *testing.T, fxHits *atomic.Int32) *httptest.Server {
	return newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/RELIANCE.NS"):
			w.Write([]byte(yahooRelianceChart))
		case strings.HasSuffix(r.URL.Path, "/INRUSD=X"):
			if fxHits != nil {
				fxHits.Add(1)
			}
			w.Write([]byte(yahooFXChart))
		case strings.HasSuffix(r.URL.Path, "/BROKEN.NS"):
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
}

func TestYahoo_FetchQuotesInListingCurrency(t *testing.T) {
	srv := yahooServer(t, nil)
	y := NewYahoo([]string{"reliance.ns", "BROKEN.NS"}, "")
	y.BaseURL = srv.URL

	quotes, err := y.FetchQuotes(context.Background(), model.INR)
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1 (broken ticker skipped)", len(quotes))
	}
	q := quotes[0]
	if q.ID != "RELIANCE" || q.Name != "Reliance Industries Limited" || q.Price != 2500 {
		t.Errorf("unexpected quote: %+v", q)
	}
	if q.Change24h < 1.21 || q.Change24h > 1.22 {
		t.Errorf("change = %v, want ~1.2146", q.Change24h)
	}
}

func TestYahoo_ConvertsAndCachesFX(t *testing.T) {
	var fxHits atomic.Int32
	srv := yahooServer(t, &fxHits)
	y := NewYahoo([]string{"RELIANCE.NS"}, "")
	y.BaseURL = srv.URL

	for i := 0; i < 2; i++ {
		quotes, err := y.FetchQuotes(context.Background(), model.USD)
		if err != nil {
			t.Fatalf("FetchQuotes: %v", err)
		}
		if got := quotes[0].Price; got < 29.99 || got > 30.01 {
			t.Errorf("USD price = %v, want 30", got)
		}
		if quotes[0].Currency != model.USD {
			t.Errorf("currency = %s", quotes[0].Currency)
		}
	}
	if n := fxHits.Load(); n != 1 {
		t.Errorf("fx fetched %d times, want 1 (cached)", n)
	}
}

func TestYahoo_FetchHistorySkipsNullsAndSorts(t *testing.T) {
	srv := yahooServer(t, nil)
	y := NewYahoo([]string{"RELIANCE.NS"}, "")
	y.BaseURL = srv.URL

	points, err := y.FetchHistory(context.Background(), "RELIANCE", model.INR, 7)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Price != 2470 || points[1].Price != 2480 {
		t.Errorf("unexpected order: %v", points)
	}
}

func TestYahoo_AllTickersFailing(t *testing.T) {
	srv := yahooServer(t, nil)
	y := NewYahoo([]string{"BROKEN.NS"}, "")
	y.BaseURL = srv.URL

	if _, err := y.FetchQuotes(context.Background(), model.INR); err == nil {
		t.Fatal("expected error when every ticker fails")
	}
}

func TestChartRange(t *testing.T) {
	tests := []struct {
		days     int
		interval string
		rng      string
	}{
		{1, "5m", "1d"},
		{7, "1d", "1mo"},
		{14, "1d", "1mo"},
		{30, "1d", "1mo"},
		{365, "1d", "1y"},
		{1000, "1wk", "2y"},
	}
	for _, tt := range tests {
		interval, rng := chartRange(tt.days)
		if interval != tt.interval || rng != tt.rng {
			t.Errorf("chartRange(%d) = %s/%s, want %s/%s", tt.days, interval, rng, tt.interval, tt.rng)
		}
	}
}

func TestCryptoCompare_FetchNews(t *testing.T) {
	var auth string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"Type":100,"Message":"News list successfully returned","Data":[
			{"id":"1","published_on":1700000000,"imageurl":"https://img/1.png","title":"Old","url":"https://a/1","body":"old body","categories":"BTC|Trading|BTC","source":"coindesk","source_info":{"name":"CoinDesk"}},
			{"id":2,"published_on":1700003600,"title":"New","url":"https://a/2","body":"new body","categories":"","source":"decrypt","source_info":{}}
		]}`))
	})

	n := NewCryptoCompare("secret", "")
	n.BaseURL = srv.URL
	items, err := n.FetchNews(context.Background())
	if err != nil {
		t.Fatalf("FetchNews: %v", err)
	}
	if auth != "Apikey secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Title != "New" || items[0].ID != "2" || items[0].Source != "decrypt" {
		t.Errorf("newest first expected, got %+v", items[0])
	}
	old := items[1]
	if old.Source != "CoinDesk" || old.Thumbnail != "https://img/1.png" {
		t.Errorf("unexpected item: %+v", old)
	}
	if len(old.Categories) != 2 || !old.HasCategory("BTC") || !old.HasCategory("Trading") {
		t.Errorf("categories = %v", old.Categories)
	}
	if len(items[0].Categories) != 0 {
		t.Errorf("empty categories should yield empty set, got %v", items[0].Categories)
	}
}

func TestCryptoCompare_APIError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response":"Error","Message":"You are over your rate limit","Type":99,"Data":[]}`))
	})
	n := NewCryptoCompare("", "")
	n.BaseURL = srv.URL
	if _, err := n.FetchNews(context.Background()); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestMock_DefaultTables(t *testing.T) {
	m := NewMock(model.KindCrypto)
	quotes, err := m.FetchQuotes(context.Background(), model.USD)
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if len(quotes) != 2 || quotes[0].ID != "bitcoin" || quotes[1].ID != "ethereum" {
		t.Fatalf("unexpected quotes: %+v", quotes)
	}
	if quotes[0].Currency != model.USD || quotes[0].Price != 65000 {
		t.Errorf("unexpected bitcoin: %+v", quotes[0])
	}
	if DefaultMockCrypto[0].Currency != "" {
		t.Error("FetchQuotes must not mutate the default table")
	}

	s := NewMock(model.KindStock)
	stocks, _ := s.FetchQuotes(context.Background(), model.INR)
	if len(stocks) != 2 || stocks[0].ID != "RELIANCE" || stocks[1].Change24h != -0.5 {
		t.Errorf("unexpected stocks: %+v", stocks)
	}
}

func TestMock_HistoryEndsAtPrice(t *testing.T) {
	m := NewMock(model.KindCrypto)
	for _, days := range []int{1, 7, 30} {
		points, err := m.FetchHistory(context.Background(), "bitcoin", model.INR, days)
		if err != nil {
			t.Fatalf("FetchHistory(%d): %v", days, err)
		}
		want := days
		if days == 1 {
			want = 24
		}
		if len(points) != want {
			t.Errorf("days=%d: got %d points, want %d", days, len(points), want)
		}
		if last := points[len(points)-1].Price; last != 65000 {
			t.Errorf("days=%d: last price %v, want 65000", days, last)
		}
		for i := 1; i < len(points); i++ {
			if !points[i-1].Time.Before(points[i].Time) {
				t.Fatalf("days=%d: not ascending at %d", days, i)
			}
		}
	}
}

func TestMock_FailAndCancel(t *testing.T) {
	m := NewMock(model.KindCrypto)
	boom := errors.New("boom")
	m.Fail(boom)
	if _, err := m.FetchQuotes(context.Background(), model.INR); !errors.Is(err, boom) {
		t.Errorf("expected forced error, got %v", err)
	}
	m.Fail(nil)

	m.Delay = 1 << 40
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.FetchNews(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
