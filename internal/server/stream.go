package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"MarketDash/internal/dashboard"
)

const (
	streamBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// handleStream upgrades to a WebSocket and pushes dashboard events. The first
// messages are a snapshot of the current views.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Listen before taking the snapshot: an event queued ahead of the snapshot is
	// never newer than it, and nothing after it is missed.
	events := make(chan dashboard.Event, streamBuffer)
	push := func(ev dashboard.Event) {
		select {
		case events <- ev:
		default:
			log.Printf("[WARN] stream %s too slow, dropping %s event", r.RemoteAddr, ev.Type)
		}
	}
	cancel := s.dash.Listen(push)
	defer cancel()
	for _, ev := range s.snapshot() {
		push(ev)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] stream upgrade: %v", err)
		return
	}
	s.streams.Add(1)
	defer s.streams.Done()
	defer conn.Close()

	// The reader only handles control frames and notices the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(4096)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("[INFO] stream opened: %s", conn.RemoteAddr())
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("[WARN] stream write: %v", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			log.Printf("[INFO] stream closed: %s", conn.RemoteAddr())
			return
		case <-s.quit:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) snapshot() []dashboard.Event {
	events := []dashboard.Event{{Type: dashboard.EventPrefs, Data: s.dash.Prefs()}}
	for _, kind := range s.dash.Kinds() {
		if v, ok := s.dash.Market(kind); ok {
			events = append(events, dashboard.Event{Type: dashboard.EventMarket, Kind: kind, Data: v})
		}
	}
	if v, ok := s.dash.News(""); ok {
		events = append(events, dashboard.Event{Type: dashboard.EventNews, Data: v})
	}
	if v, ok := s.dash.Detail(); ok {
		events = append(events, dashboard.Event{Type: dashboard.EventDetail, Kind: v.Selection.Kind, Data: v})
	}
	for _, n := range s.dash.Notices() {
		events = append(events, dashboard.Event{Type: dashboard.EventNotice, Data: n})
	}
	return events
}
