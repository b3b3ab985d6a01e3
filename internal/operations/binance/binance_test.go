package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const klineBody = `[
	[1704067200000,"42000.10","42100.00","41900.50","42050.00","123.45",1704070799999,"5190000.00",812,"60.00","2520000.00","0"],
	[1704070800000,"42050.00","42200.00","42000.00","42150.25","98.70",1704074399999,"4160000.00",640,"50.00","2107000.00","0"]
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *BinanceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewBinanceClient("", "")
	c.futures.BaseURL = srv.URL
	c.spot.BaseURL = srv.URL
	c.backoff = time.Millisecond
	return c
}

func TestGetKlinesConvertsRows(t *testing.T) {
	var path atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		if r.URL.Query().Get("symbol") != "BTCUSDT" || r.URL.Query().Get("interval") != "1h" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(klineBody))
	})

	prices, err := c.GetKlines(context.Background(), MarketFutures, "BTCUSDT", "1h", 1704067200000, 1704074399999, 0)
	if err != nil {
		t.Fatalf("GetKlines: %v", err)
	}
	if got := path.Load(); got != "/fapi/v1/klines" {
		t.Errorf("futures path = %v", got)
	}
	if len(prices) != 2 {
		t.Fatalf("got %d prices, want 2", len(prices))
	}

	p := prices[0]
	if p.Symbol != "BTCUSDT" || p.TimeFrame != "1h" {
		t.Errorf("price = %+v", p)
	}
	if p.Open != 42000.10 || p.High != 42100 || p.Low != 41900.50 || p.Close != 42050 || p.Volume != 123.45 {
		t.Errorf("ohlcv = %v %v %v %v %v", p.Open, p.High, p.Low, p.Close, p.Volume)
	}
	if p.TradeCount != 812 {
		t.Errorf("trade count = %d", p.TradeCount)
	}
	if !p.OpenTime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("open time = %s", p.OpenTime)
	}

	if _, err := c.GetKlines(context.Background(), MarketSpot, "BTCUSDT", "1h", 1704067200000, 1704074399999, 2); err != nil {
		t.Fatalf("spot GetKlines: %v", err)
	}
	if got := path.Load(); got != "/api/v3/klines" {
		t.Errorf("spot path = %v", got)
	}
}

func TestGetKlinesRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"code":-1000,"msg":"unknown error"}`))
			return
		}
		w.Write([]byte(klineBody))
	})

	prices, err := c.GetKlines(context.Background(), MarketFutures, "ETHUSDT", "1h", 0, 0, 500)
	if err != nil {
		t.Fatalf("GetKlines: %v", err)
	}
	if len(prices) != 2 || calls.Load() != 3 {
		t.Errorf("got %d prices after %d calls", len(prices), calls.Load())
	}
}

func TestGetKlinesGivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := c.GetKlines(context.Background(), MarketFutures, "ETHUSDT", "1h", 0, 0, 10); err == nil {
		t.Fatal("expected an error")
	}
	if got := calls.Load(); got != int32(c.maxRetries+1) {
		t.Errorf("calls = %d, want %d", got, c.maxRetries+1)
	}

	if _, err := c.GetKlines(context.Background(), "options", "ETHUSDT", "1h", 0, 0, 10); err == nil {
		t.Error("expected error for unknown market")
	}
}

func TestParseFloat(t *testing.T) {
	if got := parseFloat("1.25"); got != 1.25 {
		t.Errorf("parseFloat = %v", got)
	}
	if got := parseFloat("n/a"); got != 0 {
		t.Errorf("parseFloat of junk = %v", got)
	}
}
