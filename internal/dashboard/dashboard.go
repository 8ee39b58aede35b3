// Package dashboard is the view-model of the market dashboard. It owns the
// mounted fetch observers, follows the preference store and turns fetch
// transitions into views, notices, alerts and stream events.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/fetch"
	"MarketDash/internal/model"
	"MarketDash/internal/notifier"
	"MarketDash/internal/prefs"
	"MarketDash/internal/recorder"
)

// ErrNoSelection is returned by detail operations when nothing is selected.
var ErrNoSelection = errors.New("no asset selected")

// Dashboard is one session's view state.
type Dashboard struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	prefs    *prefs.Store
	sources  Sources
	analyst  analysis.Analyst
	notifier notifier.Notifier
	recorder recorder.Recorder

	analysisTimeout time.Duration

	markets *fetch.Client[MarketKey, []model.Quote]
	history *fetch.Client[HistoryKey, []model.Point]
	news    *fetch.Client[NewsKey, []model.NewsItem]

	marketObs map[model.AssetKind]*fetch.Observer[MarketKey, []model.Quote]
	newsObs   *fetch.Observer[NewsKey, []model.NewsItem]
	detailObs *fetch.Observer[HistoryKey, []model.Point]

	unsubPrefs func()

	// detailMu orders selection changes with detail observer mounts.
	detailMu sync.Mutex

	mu         sync.Mutex
	selection  *Selection
	status     map[string]fetch.Status
	recorded   map[string]time.Time
	notices    []Notice
	nextNotice int
	listeners  map[int]func(Event)
	nextListen int
	closed     bool
}

// New builds the dashboard and mounts the market and news views.
func New(ctx context.Context, opts Options) *Dashboard {
	ctx, cancel := context.WithCancel(ctx)
	d := &Dashboard{
		ctx:       ctx,
		cancel:    cancel,
		prefs:     opts.Prefs,
		sources:   opts.Sources,
		analyst:   opts.Analyst,
		notifier:  opts.Notifier,
		recorder:  opts.Recorder,
		marketObs: make(map[model.AssetKind]*fetch.Observer[MarketKey, []model.Quote]),
		status:    make(map[string]fetch.Status),
		recorded:  make(map[string]time.Time),
		listeners: make(map[int]func(Event)),
	}
	if d.recorder == nil {
		d.recorder = recorder.NewNoopRecorder()
	}
	d.analysisTimeout = opts.AnalysisTimeout
	if d.analysisTimeout <= 0 {
		d.analysisTimeout = DefaultAnalysisTimeout
	}

	d.markets = fetch.NewClient("market", marketFunc(opts.Sources), opts.Market, opts.Cron)
	d.history = fetch.NewClient("history", historyFunc(opts.Sources), opts.History, opts.Cron)
	d.news = fetch.NewClient("news", newsFunc(opts.Sources), opts.News, opts.Cron)

	for _, kind := range []model.AssetKind{model.KindCrypto, model.KindStock} {
		if _, ok := opts.Sources.Prices[kind]; ok {
			d.marketObs[kind] = fetch.NewObserver(d.markets, d.onMarket)
		}
	}
	if opts.Sources.News != nil {
		d.newsObs = fetch.NewObserver(d.news, d.onNews)
	}
	d.detailObs = fetch.NewObserver(d.history, d.onDetail)

	cur := d.prefs.Currency()
	for kind, obs := range d.marketObs {
		obs.SetKey(MarketKey{Kind: kind, Currency: cur})
	}
	if d.newsObs != nil {
		d.newsObs.SetKey(NewsKey{})
	}
	d.unsubPrefs = d.prefs.Subscribe(d.onPrefs)

	log.Printf("[INFO] dashboard mounted: %d market views, currency %s", len(d.marketObs), cur)
	return d
}

// Close unmounts every view, cancels all requests and waits for pending alerts.
func (d *Dashboard) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.unsubPrefs()
	for _, obs := range d.marketObs {
		obs.Close()
	}
	if d.newsObs != nil {
		d.newsObs.Close()
	}
	d.detailMu.Lock()
	d.detailObs.Close()
	d.detailMu.Unlock()
	d.markets.Close()
	d.history.Close()
	d.news.Close()
	d.cancel()
	d.wg.Wait()
	log.Println("[INFO] dashboard closed")
}

// Prefs returns the current preferences.
func (d *Dashboard) Prefs() model.Prefs { return d.prefs.Snapshot() }

// SetCurrency switches the display currency; market and detail views re-key.
func (d *Dashboard) SetCurrency(c model.Currency) { d.prefs.SetCurrency(c) }

// ToggleCurrency switches INR <-> USD.
func (d *Dashboard) ToggleCurrency() model.Currency { return d.prefs.ToggleCurrency() }

// MarketView is what a market table shows.
type MarketView struct {
	Key   MarketKey                  `json:"key"`
	State fetch.State[[]model.Quote] `json:"state"`
	Error string                     `json:"error,omitempty"`
}

// Market returns the view of kind's table. ok is false when kind has no source.
func (d *Dashboard) Market(kind model.AssetKind) (MarketView, bool) {
	obs, ok := d.marketObs[kind]
	if !ok {
		return MarketView{}, false
	}
	key, _ := obs.Key()
	s := obs.State()
	return MarketView{Key: key, State: s, Error: s.ErrorText()}, true
}

// RefetchMarket retries kind's table.
func (d *Dashboard) RefetchMarket(kind model.AssetKind) bool {
	obs, ok := d.marketObs[kind]
	if ok {
		obs.Refetch()
	}
	return ok
}

// Kinds lists the kinds that have a market table.
func (d *Dashboard) Kinds() []model.AssetKind {
	kinds := make([]model.AssetKind, 0, len(d.marketObs))
	for k := range d.marketObs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Favorites returns the loaded quotes of every kind whose id is favorited,
// crypto first, in table order.
func (d *Dashboard) Favorites() []model.Quote {
	fav := make(map[string]struct{})
	for _, id := range d.prefs.Favorites() {
		fav[id] = struct{}{}
	}
	out := []model.Quote{}
	for _, kind := range d.Kinds() {
		for _, q := range d.marketObs[kind].State().Data {
			if _, ok := fav[q.ID]; ok {
				out = append(out, q)
			}
		}
	}
	return out
}

// ToggleFavorite flips id in the favorites set and reports whether it is now a favorite.
func (d *Dashboard) ToggleFavorite(id string) bool {
	on := !d.prefs.IsFavorite(id)
	d.SetFavorite(id, on)
	return on
}

// SetFavorite adds or removes id. A change posts a notice.
func (d *Dashboard) SetFavorite(id string, on bool) {
	if d.prefs.IsFavorite(id) == on {
		return
	}
	if on {
		d.prefs.AddFavorite(id)
		d.notify(LevelInfo, "", "Added to favorites")
	} else {
		d.prefs.RemoveFavorite(id)
		d.notify(LevelInfo, "", "Removed from favorites")
	}
}

// NewsView is what the news page shows.
type NewsView struct {
	State fetch.State[[]model.NewsItem] `json:"state"`
	Error string                        `json:"error,omitempty"`
}

// News returns the feed, optionally restricted to one category.
func (d *Dashboard) News(category string) (NewsView, bool) {
	if d.newsObs == nil {
		return NewsView{}, false
	}
	s := d.newsObs.State()
	if category != "" && s.HasData {
		filtered := []model.NewsItem{}
		for _, n := range s.Data {
			if n.HasCategory(category) {
				filtered = append(filtered, n)
			}
		}
		s.Data = filtered
	}
	return NewsView{State: s, Error: s.ErrorText()}, true
}

// RefetchNews retries the news feed.
func (d *Dashboard) RefetchNews() bool {
	if d.newsObs == nil {
		return false
	}
	d.newsObs.Refetch()
	return true
}

// Chart describes the embedded chart for symbol.
func (d *Dashboard) Chart(symbol string, equity bool) model.ChartWidget {
	return ChartFor(symbol, equity)
}

// ChartFor maps a symbol to its exchange-qualified chart symbol.
func ChartFor(symbol string, equity bool) model.ChartWidget {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	qualified := "BINANCE:" + sym + "USDT"
	if equity {
		qualified = "BSE:" + sym
	}
	return model.ChartWidget{
		Symbol:      qualified,
		ContainerID: "tradingview_" + sym,
		Interval:    "1",
		Timezone:    "Asia/Kolkata",
		Theme:       "dark",
		IsStock:     equity,
	}
}

// Analyze runs an analysis of symbol. The symbol is matched against the loaded
// tables so the analyst can use its history.
func (d *Dashboard) Analyze(ctx context.Context, typ analysis.Type, symbol string) (*analysis.Result, error) {
	if d.analyst == nil {
		return nil, fmt.Errorf("no analyst configured")
	}
	req := analysis.Request{Type: typ, Symbol: symbol, Currency: d.prefs.Currency()}
	if q, ok := d.lookup(symbol); ok {
		req.Kind, req.ID, req.Symbol = q.Kind, q.ID, q.Symbol
	}
	d.notify(LevelInfo, "AI Analysis Started", fmt.Sprintf("Running %s analysis for %s...", typ, req.Symbol))

	res, err := d.runAnalyst(ctx, req)
	if err != nil {
		d.notify(LevelError, "Error", "Analysis failed. Please try again later.")
		return nil, fmt.Errorf("%s analysis of %s: %w", typ, symbol, err)
	}
	if err := d.recorder.RecordAnalysis(res); err != nil {
		log.Printf("[ERROR] record analysis: %v", err)
	}
	return res, nil
}

// runAnalyst bounds the analyst call by analysisTimeout, even if the analyst
// ignores its context.
func (d *Dashboard) runAnalyst(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.analysisTimeout)
	defer cancel()

	type result struct {
		res *analysis.Result
		err error
	}
	ch := make(chan result, 1)
	go func() {
		res, err := d.analyst.Analyze(ctx, req)
		ch <- result{res, err}
	}()
	select {
	case r := <-ch:
		return r.res, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("analyst %s: %w", d.analyst.Name(), ctx.Err())
	}
}

// lookup finds a loaded quote by id or symbol, case-insensitively.
func (d *Dashboard) lookup(symbol string) (model.Quote, bool) {
	for _, kind := range d.Kinds() {
		for _, q := range d.marketObs[kind].State().Data {
			if strings.EqualFold(q.ID, symbol) || strings.EqualFold(q.Symbol, symbol) {
				return q, true
			}
		}
	}
	return model.Quote{}, false
}

func (d *Dashboard) onPrefs(p model.Prefs) {
	for kind, obs := range d.marketObs {
		obs.SetKey(MarketKey{Kind: kind, Currency: p.Currency})
	}
	d.detailMu.Lock()
	d.mu.Lock()
	sel := d.selection
	d.mu.Unlock()
	if sel != nil {
		d.detailObs.SetKey(HistoryKey{Kind: sel.Kind, ID: sel.ID, Currency: p.Currency, Days: sel.Days})
	}
	d.detailMu.Unlock()
	d.emit(Event{Type: EventPrefs, Data: p})
}

func (d *Dashboard) onMarket(key MarketKey, s fetch.State[[]model.Quote]) {
	d.track(string(key.Kind)+" market", s.Status, s.Err, "Failed to fetch market data. Please try again later.")
	if d.firstSuccess("market/"+key.String(), s.Status, s.Refreshing, s.UpdatedAt) {
		if err := d.recorder.RecordQuotes(&recorder.QuoteSnapshot{
			Kind: key.Kind, Currency: key.Currency, Quotes: s.Data, TakenAt: s.UpdatedAt,
		}); err != nil {
			log.Printf("[ERROR] record %s quotes: %v", key, err)
		}
	}
	d.emit(Event{Type: EventMarket, Kind: key.Kind, Data: MarketView{Key: key, State: s, Error: s.ErrorText()}})
}

func (d *Dashboard) onNews(_ NewsKey, s fetch.State[[]model.NewsItem]) {
	d.track("news", s.Status, s.Err, "Failed to fetch news. Please try again later.")
	if d.firstSuccess("news", s.Status, s.Refreshing, s.UpdatedAt) {
		if err := d.recorder.RecordNews(s.Data); err != nil {
			log.Printf("[ERROR] record news: %v", err)
		}
	}
	d.emit(Event{Type: EventNews, Data: NewsView{State: s, Error: s.ErrorText()}})
}

// firstSuccess reports whether s is a completed fetch not seen before under name.
func (d *Dashboard) firstSuccess(name string, status fetch.Status, refreshing bool, at time.Time) bool {
	if status != fetch.StatusSuccess || refreshing {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recorded[name].Equal(at) {
		return false
	}
	d.recorded[name] = at
	return true
}

// track raises a notice and an external alert when name enters the error state.
// Only completed fetches count, so a failed retry of a failed key stays quiet.
func (d *Dashboard) track(name string, status fetch.Status, err error, notice string) {
	if status != fetch.StatusSuccess && status != fetch.StatusError {
		return
	}
	d.mu.Lock()
	prev := d.status[name]
	d.status[name] = status
	d.mu.Unlock()

	if status != fetch.StatusError || prev == fetch.StatusError {
		return
	}
	log.Printf("[WARN] %s failed to load: %v", name, err)
	d.notify(LevelError, "Error", notice)
	d.alert(name, err)
}

func (d *Dashboard) alert(what string, err error) {
	if d.notifier == nil || err == nil {
		return
	}
	text := notifier.FormatAlert(what, err.Error())
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(d.ctx, alertTimeout)
		defer cancel()
		if err := d.notifier.SendWithRetry(ctx, text, 3); err != nil {
			log.Printf("[ERROR] send alert via %s: %v", d.notifier.Name(), err)
		}
	}()
}
