package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"MarketDash/internal/analysis"
	"MarketDash/internal/model"
)

func newTestTelegram(t *testing.T, h http.Handler) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.BaseURL = srv.URL
	tn.RetryBase = time.Millisecond
	return tn
}

func TestTelegram_SendPayload(t *testing.T) {
	got := make(chan map[string]string, 1)
	tn := newTestTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		got <- payload
		w.Write([]byte(`{"ok":true}`))
	}))

	if err := tn.Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	p := <-got
	if p["chat_id"] != "42" || p["text"] != "<b>hi</b>" || p["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload: %v", p)
	}
}

func TestTruncateMessage(t *testing.T) {
	if got := truncateMessage("<b>short</b>", 100); got != "<b>short</b>" {
		t.Errorf("short message changed: %q", got)
	}

	long := "<b>" + strings.Repeat("📈", 5000) + "</b>"
	got := truncateMessage(long, maxMessageLen)
	if !utf8.ValidString(got) {
		t.Fatal("truncated message is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n > maxMessageLen {
		t.Errorf("truncated to %d runes, limit %d", n, maxMessageLen)
	}
	if !strings.HasPrefix(got, "<b>📈") || !strings.HasSuffix(got, "📈...</b>") {
		t.Errorf("unexpected ends: %q ... %q", got[:8], got[len(got)-12:])
	}

	entities := strings.Repeat("&lt;x&gt;", 1000)
	got = truncateMessage(entities, 100)
	body := strings.TrimSuffix(got, "...")
	if strings.Count(body, "&") != strings.Count(body, ";") {
		t.Errorf("entity split: %q", got)
	}

	nested := `<i><a href="https://example.com">` + strings.Repeat("a", 200) + "</a></i>"
	if got := truncateMessage(nested, 80); !strings.HasSuffix(got, "...</a></i>") {
		t.Errorf("open tags not closed: %q", got)
	}
}

func TestTelegram_SendWithRetry(t *testing.T) {
	var calls atomic.Int32
	tn := newTestTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))

	if err := tn.SendWithRetry(context.Background(), "hello", 3); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestTelegram_SendWithRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	tn := newTestTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	err := tn.SendWithRetry(context.Background(), "hello", 2)
	if err == nil || !strings.Contains(err.Error(), "all 3 retries exhausted") {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestTelegram_PollingDispatchesCommands(t *testing.T) {
	var polls, handled atomic.Int32
	replies := make(chan string, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/botTOKEN/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":10,"message":{"text":" /favorites ","chat":{"id":42}}},
				{"update_id":11,"message":{"text":"/favorites","chat":{"id":99}}}
			]}`))
			return
		}
		if r.URL.Query().Get("offset") != "12" {
			t.Errorf("offset = %s, want 12", r.URL.Query().Get("offset"))
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Write([]byte(`{"ok":true,"result":[]}`))
	})
	mux.HandleFunc("/botTOKEN/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		replies <- payload["text"]
		w.Write([]byte(`{"ok":true}`))
	})
	tn := newTestTelegram(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tn.StartPolling(ctx, func(cmd string) string {
			handled.Add(1)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case r := <-replies:
		if r != "reply to /favorites" {
			t.Errorf("reply = %q", r)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reply sent")
	}

	deadline := time.Now().Add(3 * time.Second)
	for polls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := handled.Load(); n != 1 {
		t.Errorf("handled %d commands, want 1 (foreign chat ignored)", n)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("polling did not stop after cancel")
	}
}

func TestLogNotifier(t *testing.T) {
	var n Notifier = NewLogNotifier()
	if err := n.SendWithRetry(context.Background(), "<b>x</b>", 3); err != nil {
		t.Errorf("SendWithRetry: %v", err)
	}
	if got := stripTags("<b>BTC</b> up <i>2%</i>"); got != "BTC up 2%" {
		t.Errorf("stripTags = %q", got)
	}
}

func TestFormatQuotes(t *testing.T) {
	quotes := []model.Quote{
		{ID: "bitcoin", Symbol: "BTC", Price: 65000, Change24h: 2.5, Currency: model.INR},
		{ID: "ethereum", Symbol: "ETH", Price: 3500, Change24h: -1.8, Currency: model.INR},
	}
	out := FormatQuotes("Crypto", quotes, 1)
	if !strings.Contains(out, "🟢 <b>BTC</b> ₹65,000.00  +2.50%") {
		t.Errorf("missing BTC line: %s", out)
	}
	if strings.Contains(out, "ETH") || !strings.Contains(out, "and 1 more") {
		t.Errorf("limit not applied: %s", out)
	}
	if empty := FormatQuotes("Stocks", nil, 0); !strings.Contains(empty, "No data yet.") {
		t.Errorf("unexpected empty table: %s", empty)
	}
}

func TestFormatFavoritesAndNews(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	fav := FormatFavorites([]model.Quote{{Symbol: "BTC", Price: 3500, Change24h: -0.5, MarketCap: 1.2e12, Currency: model.USD}}, now)
	if !strings.Contains(fav, "2024-05-01 09:30") || !strings.Contains(fav, "🔴 <b>BTC</b> $3,500.00  -0.50%") || !strings.Contains(fav, "cap $1.20T") {
		t.Errorf("unexpected digest: %s", fav)
	}
	if empty := FormatFavorites(nil, now); !strings.Contains(empty, "No favorites yet") {
		t.Errorf("unexpected empty digest: %s", empty)
	}

	news := FormatNews([]model.NewsItem{{Title: "A & B", URL: "https://x/1", Source: "CoinDesk", PublishedAt: now}}, 5)
	if !strings.Contains(news, `<a href="https://x/1">A &amp; B</a>`) {
		t.Errorf("unexpected news: %s", news)
	}
}

func TestFormatAnalysisAndAlert(t *testing.T) {
	res := &analysis.Result{Title: "Technical Analysis", Symbol: "BTC", Source: "synthetic",
		Rows: []analysis.Row{{Label: "RSI", Value: "65 (Neutral)"}}}
	out := FormatAnalysis(res)
	if !strings.Contains(out, "Technical Analysis for BTC") || !strings.Contains(out, "RSI: <b>65 (Neutral)</b>") {
		t.Errorf("unexpected analysis: %s", out)
	}
	alert := FormatAlert("crypto market", errors.New("status 500 <html>").Error())
	if !strings.Contains(alert, "crypto market failed to load") || strings.Contains(alert, "<html>") {
		t.Errorf("unexpected alert: %s", alert)
	}
}
