package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

const systemPrompt = `You are a market analyst for a crypto and equity dashboard.
Answer in concise markdown: a short heading, a two-column table of key metrics,
then at most three bullet points. Never give personalised financial advice.`

// generator is the part of *genai.Models the analyst uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini forwards analysis prompts to a Gemini model.
type Gemini struct {
	Model  string
	models generator
	config *genai.GenerateContentConfig
}

// NewGemini creates a Gemini analyst using the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models generator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		Model:  model,
		models: models,
		config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.4),
		},
	}
}

func (g *Gemini) Name() string { return "gemini" }

// Prompt is the free-text prompt sent for req.
func Prompt(req Request) string {
	req = normalize(req)
	asset := fmt.Sprintf("the %s asset %s", req.Kind, req.Symbol)
	if strings.EqualFold(req.Symbol, GlobalSymbol) {
		asset = "the overall crypto and equity market"
	}
	switch req.Type {
	case TypeSentiment:
		return fmt.Sprintf("Give a sentiment analysis of %s: overall sentiment, social media score, news sentiment, community outlook and a fear & greed reading.", asset)
	case TypePrediction:
		return fmt.Sprintf("Give price predictions for %s in %s: 24h, 7d and 30d forecasts, a confidence level and the volatility risk.", asset, req.Currency)
	case TypeCrypto, TypeStock:
		return fmt.Sprintf("Give a short overview of %s in %s: trend, support, resistance, RSI and the near-term outlook.", asset, req.Currency)
	}
	return fmt.Sprintf("Give a technical analysis of %s in %s: trend, support, resistance, RSI and MACD.", asset, req.Currency)
}

func (g *Gemini) Analyze(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("analysis: empty symbol")
	}
	req = normalize(req)
	if _, err := ParseType(string(req.Type)); err != nil {
		return nil, err
	}

	resp, err := g.models.GenerateContent(ctx, g.Model, genai.Text(Prompt(req)), g.config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini for %s", req.Symbol)
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("empty response from gemini for %s", req.Symbol)
	}

	return &Result{
		Type:        req.Type,
		Symbol:      req.Symbol,
		Title:       req.Type.Title(),
		Text:        text,
		Source:      g.Name(),
		GeneratedAt: time.Now(),
	}, nil
}
