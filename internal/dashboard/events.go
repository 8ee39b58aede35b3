package dashboard

import (
	"time"

	"MarketDash/internal/model"
)

// EventType names what changed.
type EventType string

const (
	EventMarket EventType = "market"
	EventNews   EventType = "news"
	EventDetail EventType = "detail"
	EventPrefs  EventType = "prefs"
	EventNotice EventType = "notice"
)

// Event is pushed to listeners whenever a view changes.
type Event struct {
	Type EventType       `json:"type"`
	Kind model.AssetKind `json:"kind,omitempty"`
	Data any             `json:"data"`
}

// Listen registers fn for every event. fn runs on the goroutine that caused
// the change and must not block.
func (d *Dashboard) Listen(fn func(Event)) (cancel func()) {
	d.mu.Lock()
	id := d.nextListen
	d.nextListen++
	d.listeners[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

func (d *Dashboard) emit(ev Event) {
	d.mu.Lock()
	fns := make([]func(Event), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Notice levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// maxNotices caps the notice list; the oldest are dropped first.
const maxNotices = 20

// Notice is a dismissible toast.
type Notice struct {
	ID          int       `json:"id"`
	Level       string    `json:"level"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *Dashboard) notify(level, title, description string) {
	d.mu.Lock()
	d.nextNotice++
	n := Notice{ID: d.nextNotice, Level: level, Title: title, Description: description, CreatedAt: time.Now()}
	d.notices = append(d.notices, n)
	if len(d.notices) > maxNotices {
		d.notices = append([]Notice(nil), d.notices[len(d.notices)-maxNotices:]...)
	}
	d.mu.Unlock()
	d.emit(Event{Type: EventNotice, Data: n})
}

// Notices returns the undismissed notices, oldest first.
func (d *Dashboard) Notices() []Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notice{}, d.notices...)
}

// Dismiss removes a notice and reports whether it existed.
func (d *Dashboard) Dismiss(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, n := range d.notices {
		if n.ID == id {
			d.notices = append(d.notices[:i], d.notices[i+1:]...)
			return true
		}
	}
	return false
}
