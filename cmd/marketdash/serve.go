package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"MarketDash/internal/config"
	"MarketDash/internal/dashboard"
	"MarketDash/internal/model"
	"MarketDash/internal/notifier"
	"MarketDash/internal/prefs"
	"MarketDash/internal/recorder"
	"MarketDash/internal/scheduler"
	"MarketDash/internal/server"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the dashboard API, stream and bot" }
func (*serveCmd) Usage() string {
	return `marketdash serve [-addr :8080]

  Polls the configured market and news sources, serves the dashboard API
  and WebSocket stream, and answers Telegram commands when a bot is configured.
  Set RUN_ON_START=true to send the favorites digest immediately.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address, overrides server.addr")
}

func (c *serveCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] MarketDash starting...")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.addr != "" {
		cfg.Server.Addr = c.addr
	}
	if err := run(cfg); err != nil {
		log.Printf("[FATAL] %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func run(cfg *config.Config) error {
	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := buildSources(cfg)
	analyst, err := buildAnalyst(ctx, cfg, src.History)
	if err != nil {
		return err
	}
	log.Printf("[INFO] analyst: %s", analyst.Name())

	currency, _ := model.ParseCurrency(cfg.Prefs.Currency)
	store, err := prefs.NewStore(cfg.Prefs.StateFile, currency, cfg.Prefs.Favorites)
	if err != nil {
		return fmt.Errorf("init prefs: %w", err)
	}

	var rec recorder.Recorder
	if cfg.Database.Path != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.Path)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var n notifier.Notifier
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	} else {
		n = notifier.NewLogNotifier()
	}
	log.Printf("[INFO] notifier: %s", n.Name())

	cr := scheduler.NewCron()
	dash := dashboard.New(ctx, dashboard.Options{
		Prefs:    store,
		Sources:  src,
		Analyst:  analyst,
		Notifier: n,
		Recorder: rec,
		Cron:     cr,
		Market:   fetchOptions(cfg.Polling, cfg.Polling.MarketInterval),
		History:  fetchOptions(cfg.Polling, cfg.Polling.HistoryInterval),
		News:     fetchOptions(cfg.Polling, cfg.Polling.NewsInterval),

		AnalysisTimeout: cfg.Sources.AnalysisTimeout,
	})
	defer dash.Close()

	sched := scheduler.NewScheduler(ctx, cr, dash, n)
	if err := sched.RegisterAll(cfg.Schedule.DigestCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, sending digest now")
		go sched.RunDigestNow()
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			log.Println("[INFO] shutdown signal received, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Println("[INFO] MarketDash is running. Press Ctrl+C to stop.")
	srv := server.New(dash, rec, cfg.Server.CORSOrigins)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	log.Println("[INFO] MarketDash stopped")
	return nil
}
