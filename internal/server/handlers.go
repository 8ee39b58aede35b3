package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"MarketDash/internal/analysis"
	"MarketDash/internal/dashboard"
	"MarketDash/internal/model"
)

func parseKind(w http.ResponseWriter, r *http.Request) (model.AssetKind, bool) {
	kind, ok := model.ParseAssetKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown market %q", r.PathValue("kind")))
	}
	return kind, ok
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	v, ok := s.dash.Market(kind)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %s market configured", kind))
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleMarketRefresh(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(w, r)
	if !ok {
		return
	}
	if !s.dash.RefetchMarket(kind) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %s market configured", kind))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ids":    s.dash.Prefs().Favorites,
		"quotes": s.dash.Favorites(),
	})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	s.dash.SetFavorite(r.PathValue("id"), true)
	writeJSON(w, s.dash.Prefs())
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s.dash.SetFavorite(r.PathValue("id"), false)
	writeJSON(w, s.dash.Prefs())
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	on := s.dash.ToggleFavorite(r.PathValue("id"))
	writeJSON(w, map[string]bool{"favorite": on})
}

func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dash.Prefs())
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Currency string `json:"currency"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	c, err := model.ParseCurrency(body.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.dash.SetCurrency(c)
	writeJSON(w, s.dash.Prefs())
}

func (s *Server) handleToggleCurrency(w http.ResponseWriter, r *http.Request) {
	s.dash.ToggleCurrency()
	writeJSON(w, s.dash.Prefs())
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	v, ok := s.dash.Detail()
	if !ok {
		writeError(w, http.StatusNotFound, dashboard.ErrNoSelection.Error())
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind string `json:"kind"`
		ID   string `json:"id"`
		Days int    `json:"days"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	kind, ok := model.ParseAssetKind(body.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown market %q", body.Kind))
		return
	}
	if body.Days < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("window must be positive, got %d", body.Days))
		return
	}
	days := body.Days
	if days == 0 {
		days = dashboard.DefaultWindow
	}
	if err := s.dash.SelectWindow(kind, body.ID, days); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.handleDetail(w, r)
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Days int `json:"days"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := s.dash.SetWindow(body.Days); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, dashboard.ErrNoSelection) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	s.handleDetail(w, r)
}

func (s *Server) handleDetailRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.RefetchDetail(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleClearDetail(w http.ResponseWriter, r *http.Request) {
	s.dash.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	equity, _ := strconv.ParseBool(r.URL.Query().Get("equity"))
	writeJSON(w, s.dash.Chart(r.PathValue("symbol"), equity))
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	v, ok := s.dash.News(r.URL.Query().Get("category"))
	if !ok {
		writeError(w, http.StatusNotFound, "no news source configured")
		return
	}
	writeJSON(w, v)
}

func (s *Server) handleNewsRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.dash.RefetchNews() {
		writeError(w, http.StatusNotFound, "no news source configured")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type   string `json:"type"`
		Symbol string `json:"symbol"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	typ, err := analysis.ParseType(body.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	res, err := s.dash.Analyze(r.Context(), typ, body.Symbol)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dash.Notices())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notice id")
		return
	}
	if !s.dash.Dismiss(id) {
		writeError(w, http.StatusNotFound, "notice not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecordedHistory serves prices recorded from past market snapshots.
// ?since= takes a duration such as 24h; the default is one day.
func (s *Server) handleRecordedHistory(w http.ResponseWriter, r *http.Request) {
	since := 24 * time.Hour
	if q := r.URL.Query().Get("since"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid since duration")
			return
		}
		since = d
	}
	currency := s.dash.Prefs().Currency
	if q := r.URL.Query().Get("currency"); q != "" {
		c, err := model.ParseCurrency(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		currency = c
	}
	points, err := s.rec.PriceHistory(r.PathValue("id"), currency, time.Now().Add(-since))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if points == nil {
		points = []model.Point{}
	}
	writeJSON(w, points)
}
