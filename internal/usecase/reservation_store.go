package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sglre6355/tenisplay/internal/domain"
)

// DefaultStorageKey names the persisted entry holding every city's reservations.
const DefaultStorageKey = "@tenisplay_agendamentos"

// KeyValueStore persists opaque values under a name.
type KeyValueStore interface {
	// Load returns the stored value and whether one exists.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// CorruptionHandler is invoked when the persisted value cannot be decoded and is treated as empty.
type CorruptionHandler func(key string, err error)

// IDGenerator hands out reservation ids derived from the creation time in milliseconds.
// Ids are strictly increasing for the lifetime of the generator.
type IDGenerator struct {
	mu    sync.Mutex
	last  int64
	nowFn func() time.Time
}

// NewIDGenerator returns a generator reading the clock from nowFn, or time.Now when nil.
func NewIDGenerator(nowFn func() time.Time) *IDGenerator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &IDGenerator{nowFn: nowFn}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nowFn().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// ReservationStore keeps the working set of reservations for one active city and mirrors it to a KeyValueStore.
type ReservationStore struct {
	mu      sync.RWMutex
	city    string
	working []domain.Reservation

	kv        KeyValueStore
	key       string
	ids       *IDGenerator
	onCorrupt CorruptionHandler
}

// ReservationStoreOption configures a ReservationStore.
type ReservationStoreOption func(*ReservationStore)

// WithStorageKey overrides the name of the persisted entry.
func WithStorageKey(key string) ReservationStoreOption {
	return func(s *ReservationStore) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

// WithIDGenerator shares an id generator between stores.
func WithIDGenerator(ids *IDGenerator) ReservationStoreOption {
	return func(s *ReservationStore) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithCorruptionHandler registers the callback used when persisted data cannot be decoded.
func WithCorruptionHandler(handler CorruptionHandler) ReservationStoreOption {
	return func(s *ReservationStore) {
		if handler != nil {
			s.onCorrupt = handler
		}
	}
}

// NewReservationStore builds an empty store persisting through kv.
func NewReservationStore(kv KeyValueStore, opts ...ReservationStoreOption) *ReservationStore {
	store := &ReservationStore{
		kv:  kv,
		key: DefaultStorageKey,
		ids: NewIDGenerator(nil),
		onCorrupt: func(key string, err error) {
			slog.Warn("persisted reservations are unreadable, starting empty",
				slog.String("key", key),
				slog.Any("error", err),
			)
		},
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// City returns the active city, or an empty string before the first Load.
func (s *ReservationStore) City() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.city
}

// Reservations returns a copy of the working set.
func (s *ReservationStore) Reservations() []domain.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.working)
}

// Load makes city active and fills the working set with its persisted reservations.
// Missing, unreadable or corrupt data all yield an empty working set.
func (s *ReservationStore) Load(ctx context.Context, city string) {
	all, err := s.readAll(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptData):
		s.onCorrupt(s.key, err)
		all = nil
	case err != nil:
		slog.Warn("failed to read persisted reservations",
			slog.String("city", city),
			slog.Any("error", err),
		)
		all = nil
	}

	working := make([]domain.Reservation, 0, len(all))
	for _, r := range all {
		if r.City == city {
			working = append(working, r)
		}
	}

	s.mu.Lock()
	s.city = city
	s.working = working
	s.mu.Unlock()
}

// Save replaces every persisted reservation of city with working, leaving other cities untouched.
// A collection that cannot be decoded is never overwritten; Save fails with domain.ErrCorruptData.
// The read-modify-write is not atomic: concurrent writers race and the last one wins.
func (s *ReservationStore) Save(ctx context.Context, city string, working []domain.Reservation) error {
	all, err := s.readAll(ctx)
	if err != nil {
		return fmt.Errorf("read persisted reservations: %w", err)
	}

	merged := make([]domain.Reservation, 0, len(all)+len(working))
	for _, r := range all {
		if r.City != city {
			merged = append(merged, r)
		}
	}
	merged = append(merged, working...)

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode reservations: %w", err)
	}

	if err := s.kv.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("write persisted reservations: %w", err)
	}
	return nil
}

// Create books slot on date for customerName in the active city.
// On any error the working set is left unchanged.
func (s *ReservationStore) Create(
	ctx context.Context,
	customerName string,
	date domain.Date,
	slot domain.TimeSlot,
) (domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.city == "" {
		return domain.Reservation{}, domain.ErrCityRequired
	}

	name := strings.TrimSpace(customerName)
	if name == "" {
		return domain.Reservation{}, &domain.ValidationError{Field: "customerName", Message: "customer name is required"}
	}
	if slot == "" {
		return domain.Reservation{}, &domain.ValidationError{Field: "timeSlot", Message: "a time slot must be selected"}
	}
	if !slot.Valid() {
		return domain.Reservation{}, &domain.ValidationError{Field: "timeSlot", Message: fmt.Sprintf("%q is not a bookable slot", slot)}
	}

	for _, r := range s.working {
		if r.Date == date && r.TimeSlot == slot {
			return domain.Reservation{}, &domain.ConflictError{Date: date, TimeSlot: slot}
		}
	}

	reservation := domain.Reservation{
		ID:           s.nextIDLocked(),
		Date:         date,
		TimeSlot:     slot,
		CustomerName: name,
		City:         s.city,
	}

	next := append(slices.Clone(s.working), reservation)
	if err := s.Save(ctx, s.city, next); err != nil {
		return domain.Reservation{}, err
	}
	s.working = next

	return reservation, nil
}

// Delete removes the reservation with id from the active city and reports whether it existed.
// Unknown ids are ignored without writing.
func (s *ReservationStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.working, func(r domain.Reservation) bool { return r.ID == id })
	if idx < 0 {
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.working), idx, idx+1)
	if err := s.Save(ctx, s.city, next); err != nil {
		return false, err
	}
	s.working = next

	return true, nil
}

// DerivedView summarises the working set for date without mutating it.
func (s *ReservationStore) DerivedView(date domain.Date) DayView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := DayView{
		Date:          date,
		Reservations:  []domain.Reservation{},
		Occupied:      make(map[domain.TimeSlot]struct{}),
		ReservedDates: make(map[domain.Date]struct{}),
	}

	for _, r := range s.working {
		view.ReservedDates[r.Date] = struct{}{}
		if r.Date == date {
			view.Reservations = append(view.Reservations, r)
			view.Occupied[r.TimeSlot] = struct{}{}
		}
	}

	return view
}

func (s *ReservationStore) nextIDLocked() int64 {
	for {
		id := s.ids.Next()
		if !slices.ContainsFunc(s.working, func(r domain.Reservation) bool { return r.ID == id }) {
			return id
		}
	}
}

func (s *ReservationStore) readAll(ctx context.Context) ([]domain.Reservation, error) {
	if s.kv == nil {
		return nil, errors.New("reservation store missing key-value dependency")
	}

	data, ok, err := s.kv.Load(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	var all []domain.Reservation
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptData, err)
	}

	return all, nil
}

// DayView is the per-day projection of a working set.
type DayView struct {
	Date          domain.Date
	Reservations  []domain.Reservation
	Occupied      map[domain.TimeSlot]struct{}
	ReservedDates map[domain.Date]struct{}
}

// IsOccupied reports whether slot is taken on the view's date.
func (v DayView) IsOccupied(slot domain.TimeSlot) bool {
	_, ok := v.Occupied[slot]
	return ok
}

// FreeSlots lists the bookable slots still open on the view's date.
func (v DayView) FreeSlots() []domain.TimeSlot {
	free := make([]domain.TimeSlot, 0, len(domain.TimeSlots))
	for _, slot := range domain.TimeSlots {
		if !v.IsOccupied(slot) {
			free = append(free, slot)
		}
	}
	return free
}

// DayStatus classifies day for calendar highlighting.
func (v DayView) DayStatus(day, today domain.Date) domain.DayStatus {
	return domain.StatusOf(day, today, v.ReservedDates)
}
