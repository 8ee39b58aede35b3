package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/dashboard"
	"MarketDash/internal/model"
	"MarketDash/internal/notifier"

	"github.com/robfig/cron/v3"
)

// marketRows is how many quotes a /markets reply lists.
const marketRows = 10

// NewCron returns the shared cron used for digests and fetch refresh schedules.
func NewCron() *cron.Cron {
	return cron.New(cron.WithSeconds())
}

// Scheduler runs the periodic jobs and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Dashboard *dashboard.Dashboard
	Notifier  notifier.Notifier
	Ctx       context.Context
	now       func() time.Time
}

// NewScheduler creates a new Scheduler on c.
func NewScheduler(ctx context.Context, c *cron.Cron, dash *dashboard.Dashboard, n notifier.Notifier) *Scheduler {
	return &Scheduler{
		Cron:      c,
		Dashboard: dash,
		Notifier:  n,
		Ctx:       ctx,
		now:       time.Now,
	}
}

// RegisterAll registers the favorites digest.
func (s *Scheduler) RegisterAll(digestCron string) error {
	if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunDigestNow sends the favorites digest immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) digestTask() {
	log.Println("[INFO] running favorites digest")
	favs := s.Dashboard.Favorites()
	s.trySend(notifier.FormatFavorites(favs, s.now()))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// "/fav@MarketDashBot bitcoin" in group chats
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/favorites", "/digest":
		return notifier.FormatFavorites(s.Dashboard.Favorites(), s.now())
	case "/fav", "/unfav":
		if len(args) != 1 {
			return "Usage: " + name + " &lt;id&gt;"
		}
		on := name == "/fav"
		s.Dashboard.SetFavorite(args[0], on)
		id := html.EscapeString(args[0])
		if on {
			return fmt.Sprintf("⭐ %s added to favorites", id)
		}
		return fmt.Sprintf("%s removed from favorites", id)
	case "/currency":
		if len(args) == 0 {
			return "Currency set to " + string(s.Dashboard.ToggleCurrency())
		}
		c, err := model.ParseCurrency(args[0])
		if err != nil {
			return "❌ " + html.EscapeString(err.Error())
		}
		s.Dashboard.SetCurrency(c)
		return "Currency set to " + string(c)
	case "/markets":
		kind := model.KindCrypto
		if len(args) > 0 {
			k, ok := model.ParseAssetKind(strings.ToLower(args[0]))
			if !ok {
				return "Usage: /markets [crypto|stocks]"
			}
			kind = k
		}
		return s.marketReply(kind)
	case "/news":
		v, ok := s.Dashboard.News("")
		if !ok {
			return "No news source configured."
		}
		if !v.State.HasData && v.Error != "" {
			return notifier.FormatAlert("news", v.Error)
		}
		return notifier.FormatNews(v.State.Data, 5)
	case "/analyze":
		if len(args) != 2 {
			return "Usage: /analyze &lt;type&gt; &lt;symbol&gt;"
		}
		typ, err := analysis.ParseType(args[0])
		if err != nil {
			return "❌ " + html.EscapeString(err.Error())
		}
		res, err := s.Dashboard.Analyze(s.Ctx, typ, args[1])
		if err != nil {
			log.Printf("[ERROR] analyze command: %v", err)
			return notifier.FormatAlert("analysis", err.Error())
		}
		return notifier.FormatAnalysis(res)
	case "/refresh":
		for _, k := range s.Dashboard.Kinds() {
			s.Dashboard.RefetchMarket(k)
		}
		s.Dashboard.RefetchNews()
		return "🔄 Refreshing market data"
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) marketReply(kind model.AssetKind) string {
	v, ok := s.Dashboard.Market(kind)
	if !ok {
		return fmt.Sprintf("No %s market configured.", kind)
	}
	if !v.State.HasData && v.Error != "" {
		return notifier.FormatAlert(string(kind)+" market", v.Error)
	}
	title := fmt.Sprintf("Top %s (%s)", kind, v.Key.Currency)
	return notifier.FormatQuotes(title, v.State.Data, marketRows)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
