package dashboard

import (
	"fmt"

	"MarketDash/internal/calculator"
	"MarketDash/internal/fetch"
	"MarketDash/internal/model"
)

// Selection is the asset shown in the detail view.
type Selection struct {
	Kind model.AssetKind `json:"kind"`
	ID   string          `json:"id"`
	Days int             `json:"days"`
}

// DetailView is the history of the selected asset with its window statistics.
type DetailView struct {
	Selection Selection                  `json:"selection"`
	Key       HistoryKey                 `json:"key"`
	State     fetch.State[[]model.Point] `json:"state"`
	Error     string                     `json:"error,omitempty"`
	Stats     *model.SeriesStats         `json:"stats,omitempty"`
	Chart     model.ChartWidget          `json:"chart"`
}

// Select mounts the detail view on id with the default window.
func (d *Dashboard) Select(kind model.AssetKind, id string) error {
	return d.SelectWindow(kind, id, DefaultWindow)
}

// SelectWindow mounts the detail view on id with a days window in one step.
func (d *Dashboard) SelectWindow(kind model.AssetKind, id string, days int) error {
	if id == "" {
		return fmt.Errorf("empty asset id")
	}
	if days <= 0 {
		return fmt.Errorf("window must be positive, got %d", days)
	}
	if _, ok := d.sources.History[kind]; !ok {
		return fmt.Errorf("no history source for %s", kind)
	}
	d.detailMu.Lock()
	defer d.detailMu.Unlock()
	d.mountLocked(Selection{Kind: kind, ID: id, Days: days})
	return nil
}

// SetWindow changes the history window of the current selection.
func (d *Dashboard) SetWindow(days int) error {
	if days <= 0 {
		return fmt.Errorf("window must be positive, got %d", days)
	}
	d.detailMu.Lock()
	defer d.detailMu.Unlock()
	d.mu.Lock()
	sel := d.selection
	d.mu.Unlock()
	if sel == nil {
		return ErrNoSelection
	}
	next := *sel
	next.Days = days
	d.mountLocked(next)
	return nil
}

// mountLocked requires detailMu.
func (d *Dashboard) mountLocked(sel Selection) {
	d.mu.Lock()
	d.selection = &sel
	d.mu.Unlock()
	d.detailObs.SetKey(d.historyKey(sel))
}

func (d *Dashboard) historyKey(sel Selection) HistoryKey {
	return HistoryKey{Kind: sel.Kind, ID: sel.ID, Currency: d.prefs.Currency(), Days: sel.Days}
}

// Clear unmounts the detail view: its request is cancelled and its refresh stops.
func (d *Dashboard) Clear() {
	d.detailMu.Lock()
	d.mu.Lock()
	d.selection = nil
	d.mu.Unlock()
	d.detailObs.Close()
	d.detailMu.Unlock()
	d.emit(Event{Type: EventDetail, Data: nil})
}

// Detail returns the detail view. ok is false when nothing is selected.
func (d *Dashboard) Detail() (DetailView, bool) {
	d.mu.Lock()
	sel := d.selection
	d.mu.Unlock()
	if sel == nil {
		return DetailView{}, false
	}
	key, _ := d.detailObs.Key()
	return d.detailView(*sel, key, d.detailObs.State()), true
}

// RefetchDetail retries the selected history.
func (d *Dashboard) RefetchDetail() error {
	if _, ok := d.Detail(); !ok {
		return ErrNoSelection
	}
	d.detailObs.Refetch()
	return nil
}

func (d *Dashboard) detailView(sel Selection, key HistoryKey, s fetch.State[[]model.Point]) DetailView {
	v := DetailView{
		Selection: sel,
		Key:       key,
		State:     s,
		Error:     s.ErrorText(),
		Chart:     ChartFor(d.chartSymbol(sel), sel.Kind == model.KindStock),
	}
	if len(s.Data) > 0 {
		stats := calculator.CalculateStats(s.Data)
		v.Stats = &stats
	}
	return v
}

// chartSymbol prefers the ticker symbol of the loaded quote over the id.
func (d *Dashboard) chartSymbol(sel Selection) string {
	if obs, ok := d.marketObs[sel.Kind]; ok {
		for _, q := range obs.State().Data {
			if q.ID == sel.ID {
				return q.Symbol
			}
		}
	}
	return sel.ID
}

func (d *Dashboard) onDetail(key HistoryKey, s fetch.State[[]model.Point]) {
	d.track("history", s.Status, s.Err, "Failed to fetch price history. Please try again later.")
	d.mu.Lock()
	sel := d.selection
	d.mu.Unlock()
	if sel == nil {
		return
	}
	d.emit(Event{Type: EventDetail, Kind: key.Kind, Data: d.detailView(*sel, key, s)})
}
