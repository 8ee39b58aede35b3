package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"MarketDash/internal/collector"
	"MarketDash/internal/model"
)

func TestParseTypeAndTitle(t *testing.T) {
	tests := []struct {
		in    string
		title string
	}{
		{"technical", "Technical Analysis"},
		{"Sentiment", "Sentiment Analysis"},
		{" PREDICTION ", "Price Predictions"},
		{"crypto", "Crypto Analysis"},
		{"stock", "Stock Analysis"},
	}
	for _, tt := range tests {
		typ, err := ParseType(tt.in)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", tt.in, err)
		}
		if got := typ.Title(); got != tt.title {
			t.Errorf("Title(%q) = %q, want %q", tt.in, got, tt.title)
		}
	}
	if _, err := ParseType("astrology"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestSynthetic_CannedWithoutHistory(t *testing.T) {
	a := NewSynthetic(nil)
	res, err := a.Analyze(context.Background(), Request{Type: TypeSentiment, Symbol: "BTC"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Title != "Sentiment Analysis" || res.Source != "synthetic" {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Rows) != 5 || res.Rows[4].Value != "65 (Greed)" {
		t.Errorf("unexpected rows: %+v", res.Rows)
	}
	if !strings.HasPrefix(res.Text, "## Sentiment Analysis for BTC") {
		t.Errorf("unexpected text: %q", res.Text)
	}

	tech, _ := a.Analyze(context.Background(), Request{Type: TypeTechnical, Symbol: "BTC"})
	if tech.Rows[0] != (Row{"Trend", "Bullish"}) || tech.Rows[1].Value != "$45,000" {
		t.Errorf("unexpected technical rows: %+v", tech.Rows)
	}
	tech.Rows[0].Value = "changed"
	again, _ := a.Analyze(context.Background(), Request{Type: TypeTechnical, Symbol: "BTC"})
	if again.Rows[0].Value != "Bullish" {
		t.Error("canned rows must not be shared between results")
	}
}

func TestSynthetic_ComputedFromHistory(t *testing.T) {
	history := map[model.AssetKind]collector.HistorySource{
		model.KindCrypto: collector.NewMock(model.KindCrypto),
	}
	a := NewSynthetic(history)

	res, err := a.Analyze(context.Background(), Request{Type: TypeTechnical, Symbol: "BTC", ID: "bitcoin", Currency: model.INR})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	labels := map[string]string{}
	for _, r := range res.Rows {
		labels[r.Label] = r.Value
	}
	for _, want := range []string{"Trend", "Support", "Resistance", "RSI", "SMA7", "SMA25", "Score"} {
		if _, ok := labels[want]; !ok {
			t.Errorf("missing row %q in %+v", want, res.Rows)
		}
	}
	if !strings.HasPrefix(labels["Support"], "₹") {
		t.Errorf("support should be formatted in INR, got %q", labels["Support"])
	}
	if labels["MACD"] != "" {
		t.Error("computed analysis should not carry canned MACD")
	}
	if !strings.Contains(res.Text, "- Trend:") {
		t.Errorf("summary should list factors: %q", res.Text)
	}

	pred, err := a.Analyze(context.Background(), Request{Type: TypePrediction, Symbol: "BTC", ID: "bitcoin", Currency: model.USD})
	if err != nil {
		t.Fatalf("Analyze prediction: %v", err)
	}
	if len(pred.Rows) != 5 || pred.Rows[0].Label != "24h Forecast" || !strings.HasPrefix(pred.Rows[0].Value, "$") {
		t.Errorf("unexpected prediction rows: %+v", pred.Rows)
	}
}

func TestSynthetic_KindFromType(t *testing.T) {
	stocks := collector.NewMock(model.KindStock)
	a := NewSynthetic(map[model.AssetKind]collector.HistorySource{model.KindStock: stocks})

	res, err := a.Analyze(context.Background(), Request{Type: TypeStock, Symbol: "TCS"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Rows[0].Label != "Trend" || res.Rows[len(res.Rows)-1].Label != "Volatility Risk" {
		t.Errorf("unexpected overview rows: %+v", res.Rows)
	}

	// crypto requests have no crypto history source here, so they stay canned
	canned, _ := a.Analyze(context.Background(), Request{Type: TypeCrypto, Symbol: "BTC"})
	if canned.Rows[1].Value != "$45,000" {
		t.Errorf("expected canned rows, got %+v", canned.Rows)
	}
}

func TestSynthetic_GlobalAndErrors(t *testing.T) {
	src := collector.NewMock(model.KindCrypto)
	a := NewSynthetic(map[model.AssetKind]collector.HistorySource{model.KindCrypto: src})

	global, err := a.Analyze(context.Background(), Request{Type: TypeTechnical, Symbol: GlobalSymbol})
	if err != nil || global.Rows[1].Value != "$45,000" {
		t.Errorf("global analysis should be canned: %+v, %v", global, err)
	}

	boom := errors.New("boom")
	src.Fail(boom)
	if _, err := a.Analyze(context.Background(), Request{Type: TypeTechnical, Symbol: "BTC", ID: "bitcoin"}); !errors.Is(err, boom) {
		t.Errorf("expected history error, got %v", err)
	}
	if _, err := a.Analyze(context.Background(), Request{Type: TypeTechnical, Symbol: " "}); err == nil {
		t.Error("expected error for empty symbol")
	}
	if _, err := a.Analyze(context.Background(), Request{Type: "astrology", Symbol: "BTC"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

type fakeGenerator struct {
	model  string
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGemini_Analyze(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse("## Technical Analysis for ETH\n", "| Trend | Bullish |")}
	g := newGemini(fake, "")

	res, err := g.Analyze(context.Background(), Request{Type: TypeTechnical, Symbol: "ETH", Currency: model.USD})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fake.model != DefaultGeminiModel {
		t.Errorf("model = %q", fake.model)
	}
	if !strings.Contains(fake.prompt, "ETH") || !strings.Contains(fake.prompt, "USD") {
		t.Errorf("prompt missing symbol or currency: %q", fake.prompt)
	}
	if res.Source != "gemini" || !strings.Contains(res.Text, "| Trend | Bullish |") {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestGemini_Failures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"no candidates", &fakeGenerator{resp: &genai.GenerateContentResponse{}}},
		{"blank text", &fakeGenerator{resp: textResponse("   ")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGemini(tt.gen, "gemini-test")
			if _, err := g.Analyze(context.Background(), Request{Type: TypeSentiment, Symbol: "BTC"}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPrompt_Global(t *testing.T) {
	p := Prompt(Request{Type: TypeSentiment, Symbol: "global"})
	if !strings.Contains(p, "overall crypto and equity market") {
		t.Errorf("unexpected prompt: %q", p)
	}
}
