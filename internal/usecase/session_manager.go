package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/sglre6355/tenisplay/internal/domain"
)

// BookingSession is the booking screen of one channel: an active city, its reservations,
// the selected day and that day's forecast.
type BookingSession struct {
	mu      sync.Mutex
	date    domain.Date
	store   *ReservationStore
	display *ForecastDisplay
	lookup  *ForecastLookup
}

// City returns the session's active city.
func (s *BookingSession) City() string {
	return s.store.City()
}

// SelectedDate returns the day currently picked on the calendar.
func (s *BookingSession) SelectedDate() domain.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// SelectDate picks date and starts a new forecast request for it.
func (s *BookingSession) SelectDate(date domain.Date) ForecastToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.date = date
	return s.display.Begin(ForecastKey{City: s.store.City(), Date: date})
}

// RefreshForecast performs the lookup for token and applies it unless a newer selection
// was made meanwhile. It returns the displayed snapshot and whether this result was applied.
func (s *BookingSession) RefreshForecast(ctx context.Context, token ForecastToken) (ForecastSnapshot, bool) {
	forecast, ok := s.lookup.Lookup(ctx, token.Key.City, token.Key.Date)
	applied := s.display.Apply(token, forecast, ok)
	return s.display.Snapshot(), applied
}

// Forecast returns what the forecast panel currently shows.
func (s *BookingSession) Forecast() ForecastSnapshot {
	return s.display.Snapshot()
}

// Book creates a reservation in the session's city.
func (s *BookingSession) Book(
	ctx context.Context,
	customerName string,
	date domain.Date,
	slot domain.TimeSlot,
) (domain.Reservation, error) {
	return s.store.Create(ctx, customerName, date, slot)
}

// Cancel deletes the reservation with id and reports whether it was found. Unknown ids are ignored.
func (s *BookingSession) Cancel(ctx context.Context, id int64) (bool, error) {
	return s.store.Delete(ctx, id)
}

// View returns the derived view of date.
func (s *BookingSession) View(date domain.Date) DayView {
	return s.store.DerivedView(date)
}

// Today returns the current day in the session's time zone.
func (s *BookingSession) Today() domain.Date {
	return s.lookup.Today()
}

// SessionManagerOption configures a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithSessionStoreOptions applies opts to every reservation store the manager creates.
func WithSessionStoreOptions(opts ...ReservationStoreOption) SessionManagerOption {
	return func(m *SessionManager) {
		m.storeOpts = append(m.storeOpts, opts...)
	}
}

// SessionManager tracks booking sessions per channel. All sessions share one persisted
// collection and one id generator.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*BookingSession

	kv        KeyValueStore
	lookup    *ForecastLookup
	ids       *IDGenerator
	storeOpts []ReservationStoreOption
}

// NewSessionManager builds a manager persisting through kv and looking up weather via lookup.
func NewSessionManager(kv KeyValueStore, lookup *ForecastLookup, opts ...SessionManagerOption) *SessionManager {
	manager := &SessionManager{
		sessions: make(map[string]*BookingSession),
		kv:       kv,
		lookup:   lookup,
		ids:      NewIDGenerator(nil),
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// SelectCity makes city active for channelID, loads its reservations, selects today and
// starts the forecast request for it.
func (m *SessionManager) SelectCity(
	ctx context.Context,
	channelID string,
	city string,
) (*BookingSession, ForecastToken, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ForecastToken{}, &domain.ValidationError{Field: "city", Message: "a city is required"}
	}

	m.mu.Lock()
	session, ok := m.sessions[channelID]
	if !ok {
		opts := append([]ReservationStoreOption{WithIDGenerator(m.ids)}, m.storeOpts...)
		session = &BookingSession{
			store:   NewReservationStore(m.kv, opts...),
			display: NewForecastDisplay(),
			lookup:  m.lookup,
		}
		m.sessions[channelID] = session
	}
	m.mu.Unlock()

	session.store.Load(ctx, city)
	token := session.SelectDate(m.lookup.Today())

	return session, token, nil
}

// Session returns the session of channelID, or domain.ErrCityRequired when no city was selected there.
func (m *SessionManager) Session(channelID string) (*BookingSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[channelID]
	if !ok {
		return nil, domain.ErrCityRequired
	}
	return session, nil
}

// Remove forgets the session of channelID and reports whether one existed.
func (m *SessionManager) Remove(channelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[channelID]; !ok {
		return false
	}
	delete(m.sessions, channelID)
	return true
}

// Shutdown forgets every session. Returns the number dropped.
func (m *SessionManager) Shutdown() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := len(m.sessions)
	m.sessions = make(map[string]*BookingSession)
	return total
}
