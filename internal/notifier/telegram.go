package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"MarketDash/internal/fetch"
)

const telegramBaseURL = "https://api.telegram.org"

// maxMessageLen is Telegram's limit for one message.
const maxMessageLen = 4096

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken  string
	ChatID    string
	BaseURL   string
	Client    *http.Client
	RetryBase time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  telegramBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		RetryBase: time.Second,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) apiURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.BaseURL, "/"), t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	text = truncateMessage(text, maxMessageLen)
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := fetch.Backoff(t.RetryBase, time.Minute, i)
		log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// truncateMessage shortens an HTML message to at most limit runes. It never
// splits a rune, tag or entity, and closes any tags the cut leaves open.
func truncateMessage(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	const ellipsis = "..."
	const closeReserve = 32
	budget := limit - len(ellipsis) - closeReserve

	var open []string
	cut, n := 0, 0
scan:
	for i := 0; i < len(text); {
		size, runes := 0, 0
		switch text[i] {
		case '<':
			end := strings.IndexByte(text[i:], '>')
			if end < 0 {
				break scan
			}
			size = end + 1
			runes = utf8.RuneCountInString(text[i : i+size])
		case '&':
			// entities are short; a lone '&' counts as one rune
			end := strings.IndexByte(text[i:], ';')
			if end < 0 || end > 10 {
				end = 0
			}
			size, runes = end+1, end+1
		default:
			_, size = utf8.DecodeRuneInString(text[i:])
			runes = 1
		}
		if n+runes > budget {
			break
		}
		if text[i] == '<' {
			tag := strings.Trim(text[i+1:i+size-1], " ")
			if name, ok := strings.CutPrefix(tag, "/"); ok {
				if len(open) > 0 && open[len(open)-1] == name {
					open = open[:len(open)-1]
				}
			} else if name, _, _ := strings.Cut(tag, " "); name != "" {
				open = append(open, name)
			}
		}
		i += size
		n += runes
		cut = i
	}

	var b strings.Builder
	b.WriteString(text[:cut])
	b.WriteString(ellipsis)
	for j := len(open) - 1; j >= 0; j-- {
		b.WriteString("</" + open[j] + ">")
	}
	return b.String()
}
