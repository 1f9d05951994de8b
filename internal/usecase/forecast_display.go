package usecase

import (
	"sync"

	"github.com/sglre6355/tenisplay/internal/domain"
)

// ForecastState describes what the forecast panel currently shows.
type ForecastState string

const (
	ForecastStateIdle        ForecastState = "idle"
	ForecastStateLoading     ForecastState = "loading"
	ForecastStateReady       ForecastState = "ready"
	ForecastStateUnavailable ForecastState = "unavailable"
)

// ForecastKey identifies the selection a forecast was requested for.
type ForecastKey struct {
	City string
	Date domain.Date
}

// ForecastToken is captured when a lookup starts and presented when its result arrives.
type ForecastToken struct {
	epoch uint64
	Key   ForecastKey
}

// ForecastSnapshot is the displayed forecast state.
type ForecastSnapshot struct {
	Key      ForecastKey
	State    ForecastState
	Forecast domain.Forecast
}

// ForecastDisplay holds the latest forecast for a selection. Every Begin supersedes the
// previous request and results carrying an older token are dropped.
type ForecastDisplay struct {
	mu      sync.Mutex
	epoch   uint64
	current ForecastSnapshot
}

// NewForecastDisplay returns an idle display.
func NewForecastDisplay() *ForecastDisplay {
	return &ForecastDisplay{current: ForecastSnapshot{State: ForecastStateIdle}}
}

// Begin records a new request for key and switches the display to loading.
func (d *ForecastDisplay) Begin(key ForecastKey) ForecastToken {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.epoch++
	d.current = ForecastSnapshot{Key: key, State: ForecastStateLoading}
	return ForecastToken{epoch: d.epoch, Key: key}
}

// Apply stores the result of the request identified by token. It returns false, leaving the
// display untouched, when a newer request has started since.
func (d *ForecastDisplay) Apply(token ForecastToken, forecast domain.Forecast, ok bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if token.epoch != d.epoch || token.Key != d.current.Key {
		return false
	}

	if !ok {
		d.current = ForecastSnapshot{Key: token.Key, State: ForecastStateUnavailable}
		return true
	}

	d.current = ForecastSnapshot{Key: token.Key, State: ForecastStateReady, Forecast: forecast}
	return true
}

// Snapshot returns what the display currently shows.
func (d *ForecastDisplay) Snapshot() ForecastSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}
