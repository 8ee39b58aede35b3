package fetch

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle phase of one cache key.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// State is an immutable snapshot of one key's query.
//
// Loading means there is no data yet. Once data exists it stays in Data across
// later refreshes and failures; Refreshing marks a request in flight behind it.
type State[T any] struct {
	Status     Status    `json:"status"`
	Data       T         `json:"data"`
	HasData    bool      `json:"has_data"`
	Err        error     `json:"-"`
	Refreshing bool      `json:"refreshing"`
	UpdatedAt  time.Time `json:"updated_at"`
	Attempts   int       `json:"attempts"`
	Version    uint64    `json:"version"`
}

// ErrorText is Err as a string, empty when there is none.
func (s State[T]) ErrorText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Stale reports whether the shown data is older than maxAge.
func (s State[T]) Stale(maxAge time.Duration) bool {
	return !s.HasData || time.Since(s.UpdatedAt) > maxAge
}
