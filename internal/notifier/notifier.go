package notifier

import (
	"context"
	"log"
	"strings"
)

// Notifier delivers alerts and digests to the user.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
	Name() string
}

// LogNotifier writes messages to the log, used when Telegram is not configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	log.Printf("[INFO] notify: %s", strings.ReplaceAll(stripTags(text), "\n", " | "))
	return nil
}

// stripTags drops the HTML markup used for Telegram.
func stripTags(s string) string {
	var b strings.Builder
	in := false
	for _, r := range s {
		switch {
		case r == '<':
			in = true
		case r == '>':
			in = false
		case !in:
			b.WriteRune(r)
		}
	}
	return b.String()
}
