package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/collector"
	"MarketDash/internal/dashboard"
	"MarketDash/internal/fetch"
	"MarketDash/internal/model"
	"MarketDash/internal/prefs"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *prefs.Store, *captureNotifier) {
	t.Helper()
	store, err := prefs.NewStore("", model.USD, []string{"bitcoin"})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	crypto := collector.NewMock(model.KindCrypto)
	history := map[model.AssetKind]collector.HistorySource{model.KindCrypto: crypto}
	dash := dashboard.New(context.Background(), dashboard.Options{
		Prefs: store,
		Sources: dashboard.Sources{
			Prices:  map[model.AssetKind]collector.PriceSource{model.KindCrypto: crypto},
			History: history,
			News:    crypto,
		},
		Analyst: analysis.NewSynthetic(history),
	})
	t.Cleanup(dash.Close)

	deadline := time.Now().Add(2 * time.Second)
	for {
		v, _ := dash.Market(model.KindCrypto)
		n, _ := dash.News("")
		if v.State.Status == fetch.StatusSuccess && n.State.Status == fetch.StatusSuccess {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("markets did not load")
		}
		time.Sleep(5 * time.Millisecond)
	}

	n := &captureNotifier{}
	s := NewScheduler(context.Background(), NewCron(), dash, n)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return s, store, n
}

func TestHandleCommand(t *testing.T) {
	s, store, _ := newTestScheduler(t)

	tests := []struct {
		command string
		want    string
	}{
		{"/favorites", "<b>BTC</b> $65,000.00"},
		{"/markets", "Top crypto (USD)"},
		{"/markets stocks", "No stock market configured."},
		{"/markets bonds", "Usage: /markets"},
		{"/news", "Bitcoin holds above key support"},
		{"/analyze technical BTC", "Technical Analysis for BTC"},
		{"/analyze astrology BTC", "❌"},
		{"/analyze BTC", "Usage: /analyze"},
		{"/currency EUR", "❌"},
		{"/fav", "Usage: /fav"},
		{"hello", "Available commands"},
		{"", "Available commands"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			if got := s.HandleCommand(tt.command); !strings.Contains(got, tt.want) {
				t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tt.command, got, tt.want)
			}
		})
	}

	if reply := s.HandleCommand("/fav@MarketDashBot ethereum"); !strings.Contains(reply, "ethereum added") {
		t.Errorf("fav reply = %q", reply)
	}
	if !store.IsFavorite("ethereum") {
		t.Error("ethereum should be a favorite")
	}
	if reply := s.HandleCommand("/fav <b>x"); reply != "⭐ &lt;b&gt;x added to favorites" {
		t.Errorf("unescaped reply = %q", reply)
	}
	if reply := s.HandleCommand("/currency <i>"); strings.Contains(reply, "<i>") {
		t.Errorf("error reply echoes raw markup: %q", reply)
	}
	s.HandleCommand("/unfav ethereum")
	if store.IsFavorite("ethereum") {
		t.Error("ethereum should have been removed")
	}
}

func TestHandleCommand_Currency(t *testing.T) {
	s, store, _ := newTestScheduler(t)

	if reply := s.HandleCommand("/currency inr"); reply != "Currency set to INR" {
		t.Errorf("reply = %q", reply)
	}
	if store.Currency() != model.INR {
		t.Errorf("currency = %s", store.Currency())
	}
	if reply := s.HandleCommand("/currency"); reply != "Currency set to USD" {
		t.Errorf("toggle reply = %q", reply)
	}
}

func TestDigest(t *testing.T) {
	s, _, n := newTestScheduler(t)
	s.RunDigestNow()

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(n.sent))
	}
	if !strings.Contains(n.sent[0], "2024-05-01 09:00") || !strings.Contains(n.sent[0], "BTC") || strings.Contains(n.sent[0], "ETH") {
		t.Errorf("digest = %q", n.sent[0])
	}
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	if err := s.RegisterAll("0 0 9 * * *"); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("entries = %d, want 1", len(s.Cron.Entries()))
	}
	if err := s.RegisterAll("not a cron"); err == nil {
		t.Error("expected error for bad cron spec")
	}
}
