package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/sglre6355/tenisplay/internal/domain"
)

const bento = "Bento Gonçalves"

var march10 = domain.Date{Year: 2026, Month: time.March, Day: 10}

func newLoadedStore(t *testing.T, kv KeyValueStore, city string, opts ...ReservationStoreOption) *ReservationStore {
	t.Helper()
	store := NewReservationStore(kv, opts...)
	store.Load(context.Background(), city)
	return store
}

func persisted(t *testing.T, kv *memoryKV) []domain.Reservation {
	t.Helper()
	var all []domain.Reservation
	if err := json.Unmarshal(kv.values[DefaultStorageKey], &all); err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	return all
}

func TestReservationStore_CreateAndDerivedView(t *testing.T) {
	kv := newMemoryKV()
	store := newLoadedStore(t, kv, bento)

	created, err := store.Create(context.Background(), "Ana", march10, "09:00")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.City != bento || created.ID == 0 {
		t.Fatalf("unexpected reservation %+v", created)
	}

	view := store.DerivedView(march10)
	if len(view.Reservations) != 1 || view.Reservations[0].TimeSlot != "09:00" {
		t.Fatalf("expected one 09:00 reservation, got %+v", view.Reservations)
	}
	if !view.IsOccupied("09:00") || view.IsOccupied("10:00") {
		t.Fatalf("unexpected occupied slots %v", view.Occupied)
	}
	if len(view.FreeSlots()) != len(domain.TimeSlots)-1 {
		t.Fatalf("expected %d free slots, got %d", len(domain.TimeSlots)-1, len(view.FreeSlots()))
	}
	if _, ok := view.ReservedDates[march10]; !ok {
		t.Fatalf("expected %s among reserved dates", march10)
	}

	if got := persisted(t, kv); len(got) != 1 || got[0] != created {
		t.Fatalf("expected persisted reservation, got %+v", got)
	}
}

func TestReservationStore_CreateConflict(t *testing.T) {
	kv := newMemoryKV()
	store := newLoadedStore(t, kv, bento)

	if _, err := store.Create(context.Background(), "Ana", march10, "09:00"); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := store.Create(context.Background(), "Bruno", march10, "09:00")
	var conflictErr *domain.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflictErr.TimeSlot != "09:00" || conflictErr.Date != march10 {
		t.Fatalf("unexpected conflict details %+v", conflictErr)
	}
	if n := len(store.Reservations()); n != 1 {
		t.Fatalf("expected one reservation, got %d", n)
	}

	// Same slot on another day is free.
	if _, err := store.Create(context.Background(), "Bruno", march10.AddDays(1), "09:00"); err != nil {
		t.Fatalf("create on next day: %v", err)
	}
}

func TestReservationStore_CreateValidation(t *testing.T) {
	cases := []struct {
		name  string
		slot  domain.TimeSlot
		field string
	}{
		{"", "10:00", "customerName"},
		{"   \t", "10:00", "customerName"},
		{"Ana", "", "timeSlot"},
		{"Ana", "12:00", "timeSlot"},
	}

	for _, tc := range cases {
		kv := newMemoryKV()
		store := newLoadedStore(t, kv, bento)

		_, err := store.Create(context.Background(), tc.name, march10, tc.slot)
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("%q/%q: expected ValidationError, got %v", tc.name, tc.slot, err)
		}
		if validationErr.Field != tc.field {
			t.Fatalf("%q/%q: expected field %s, got %s", tc.name, tc.slot, tc.field, validationErr.Field)
		}
		if len(store.Reservations()) != 0 || kv.saves != 0 {
			t.Fatalf("%q/%q: working set or storage mutated", tc.name, tc.slot)
		}
	}
}

func TestReservationStore_CreateTrimsName(t *testing.T) {
	store := newLoadedStore(t, newMemoryKV(), bento)

	created, err := store.Create(context.Background(), "  Ana  ", march10, "07:00")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CustomerName != "Ana" {
		t.Fatalf("expected trimmed name, got %q", created.CustomerName)
	}
}

func TestReservationStore_CreateRequiresCity(t *testing.T) {
	store := NewReservationStore(newMemoryKV())

	_, err := store.Create(context.Background(), "Ana", march10, "09:00")
	if !errors.Is(err, domain.ErrCityRequired) {
		t.Fatalf("expected ErrCityRequired, got %v", err)
	}
}

func TestReservationStore_CreateWriteFailureLeavesStateUnchanged(t *testing.T) {
	kv := newMemoryKV()
	store := newLoadedStore(t, kv, bento)
	kv.saveErr = errBoom

	if _, err := store.Create(context.Background(), "Ana", march10, "09:00"); !errors.Is(err, errBoom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if len(store.Reservations()) != 0 {
		t.Fatalf("working set must not change on failed write")
	}
}

func TestReservationStore_DeleteUnknownIsNoop(t *testing.T) {
	kv := newMemoryKV()
	store := newLoadedStore(t, kv, bento)

	if _, err := store.Create(context.Background(), "Ana", march10, "09:00"); err != nil {
		t.Fatalf("create: %v", err)
	}
	before := store.Reservations()
	saves := kv.saves

	removed, err := store.Delete(context.Background(), 42)
	if err != nil || removed {
		t.Fatalf("expected silent no-op, got removed=%v err=%v", removed, err)
	}
	if !slices.Equal(before, store.Reservations()) {
		t.Fatalf("working set changed on unknown delete")
	}
	if kv.saves != saves {
		t.Fatalf("unknown delete must not write")
	}
}

func TestReservationStore_Delete(t *testing.T) {
	kv := newMemoryKV()
	store := newLoadedStore(t, kv, bento)

	first, err := store.Create(context.Background(), "Ana", march10, "09:00")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := store.Create(context.Background(), "Bruno", march10, "10:00")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if removed, err := store.Delete(context.Background(), first.ID); err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}

	if got := store.Reservations(); len(got) != 1 || got[0] != second {
		t.Fatalf("expected only second reservation, got %+v", got)
	}
	if got := persisted(t, kv); len(got) != 1 || got[0].ID != second.ID {
		t.Fatalf("expected deletion persisted, got %+v", got)
	}

	// The freed slot can be booked again.
	if _, err := store.Create(context.Background(), "Carla", march10, "09:00"); err != nil {
		t.Fatalf("rebook freed slot: %v", err)
	}
}

func TestReservationStore_SaveRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	store := newLoadedStore(t, kv, bento)

	x := []domain.Reservation{
		{ID: 1, Date: march10, TimeSlot: "08:00", CustomerName: "Ana", City: bento},
		{ID: 2, Date: march10.AddDays(2), TimeSlot: "20:00", CustomerName: "Bruno", City: bento},
	}
	if err := store.Save(context.Background(), bento, x); err != nil {
		t.Fatalf("save: %v", err)
	}

	store.Load(context.Background(), bento)
	if got := store.Reservations(); !slices.Equal(got, x) {
		t.Fatalf("round trip mismatch: want %+v, got %+v", x, got)
	}
}

func TestReservationStore_SaveKeepsOtherCities(t *testing.T) {
	kv := newMemoryKV()
	other := domain.Reservation{ID: 7, Date: march10, TimeSlot: "09:00", CustomerName: "Zeca", City: "Caxias do Sul"}
	seed, _ := json.Marshal([]domain.Reservation{
		other,
		{ID: 8, Date: march10, TimeSlot: "09:00", CustomerName: "Old", City: bento},
	})
	kv.values[DefaultStorageKey] = seed

	store := newLoadedStore(t, kv, bento)
	if n := len(store.Reservations()); n != 1 {
		t.Fatalf("expected one reservation for %s, got %d", bento, n)
	}

	if err := store.Save(context.Background(), bento, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := persisted(t, kv)
	if len(got) != 1 || got[0] != other {
		t.Fatalf("expected only the other city's reservation, got %+v", got)
	}
}

func TestReservationStore_LoadMissingIsEmpty(t *testing.T) {
	store := newLoadedStore(t, newMemoryKV(), bento)

	if store.City() != bento {
		t.Fatalf("expected active city %s, got %s", bento, store.City())
	}
	if n := len(store.Reservations()); n != 0 {
		t.Fatalf("expected empty working set, got %d", n)
	}
}

func TestReservationStore_LoadCorruptResetsAndReports(t *testing.T) {
	kv := newMemoryKV()
	kv.values[DefaultStorageKey] = []byte("{not json")

	var reported error
	store := newLoadedStore(t, kv, bento, WithCorruptionHandler(func(key string, err error) {
		reported = err
	}))

	if n := len(store.Reservations()); n != 0 {
		t.Fatalf("expected empty working set, got %d", n)
	}
	if !errors.Is(reported, domain.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData to be reported, got %v", reported)
	}

	if _, err := store.Create(context.Background(), "Ana", march10, "09:00"); !errors.Is(err, domain.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData from create, got %v", err)
	}
	if string(kv.values[DefaultStorageKey]) != "{not json" {
		t.Fatalf("corrupt collection must not be overwritten, got %s", kv.values[DefaultStorageKey])
	}
}

func TestReservationStore_CorruptCollectionIsNeverOverwritten(t *testing.T) {
	kv := newMemoryKV()
	blob := []byte(`[` +
		`{"id":1,"date":"2026-03-11","timeSlot":"09:00","customerName":"Rui","city":"Porto Alegre"},` +
		`{"id":2,"date":"2026-3-11","timeSlot":"10:00","customerName":"Lia","city":"Caxias do Sul"}` +
		`]`)
	kv.values[DefaultStorageKey] = blob

	store := newLoadedStore(t, kv, bento, WithCorruptionHandler(func(string, error) {}))

	if _, err := store.Create(context.Background(), "Bia", march10, "08:00"); !errors.Is(err, domain.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
	if len(store.Reservations()) != 0 {
		t.Fatalf("working set must not change when the collection is corrupt")
	}
	if kv.saves != 0 || string(kv.values[DefaultStorageKey]) != string(blob) {
		t.Fatalf("persisted collection changed: saves=%d value=%s", kv.saves, kv.values[DefaultStorageKey])
	}

	if err := store.Save(context.Background(), bento, nil); !errors.Is(err, domain.ErrCorruptData) {
		t.Fatalf("expected Save to refuse a corrupt collection, got %v", err)
	}
	if kv.saves != 0 {
		t.Fatalf("expected no writes, got %d", kv.saves)
	}
}

func TestReservationStore_LoadReadFailureIsEmpty(t *testing.T) {
	kv := newMemoryKV()
	kv.loadErr = errBoom

	store := newLoadedStore(t, kv, bento)
	if n := len(store.Reservations()); n != 0 {
		t.Fatalf("expected empty working set, got %d", n)
	}
}

func TestReservationStore_CustomStorageKey(t *testing.T) {
	kv := newMemoryKV()
	store := newLoadedStore(t, kv, bento, WithStorageKey("custom"))

	if _, err := store.Create(context.Background(), "Ana", march10, "09:00"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := kv.values["custom"]; !ok {
		t.Fatalf("expected value under custom key")
	}
	if _, ok := kv.values[DefaultStorageKey]; ok {
		t.Fatalf("default key must stay unused")
	}
}

func TestIDGenerator_StrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	ids := NewIDGenerator(func() time.Time { return fixed })

	first := ids.Next()
	second := ids.Next()
	if first != fixed.UnixMilli() {
		t.Fatalf("expected timestamp-derived id, got %d", first)
	}
	if second != first+1 {
		t.Fatalf("expected %d, got %d", first+1, second)
	}
}

func TestReservationStore_NoDuplicateSlotsUnderRepeatedBookings(t *testing.T) {
	store := newLoadedStore(t, newMemoryKV(), bento)

	for i := 0; i < 3; i++ {
		for _, slot := range domain.TimeSlots {
			_, _ = store.Create(context.Background(), "Ana", march10, slot)
		}
	}

	seen := map[domain.TimeSlot]bool{}
	for _, r := range store.Reservations() {
		if seen[r.TimeSlot] {
			t.Fatalf("slot %s booked twice", r.TimeSlot)
		}
		seen[r.TimeSlot] = true
	}
	if len(seen) != len(domain.TimeSlots) {
		t.Fatalf("expected every slot booked once, got %d", len(seen))
	}
}

func TestReservationStore_SaveWithoutBackend(t *testing.T) {
	store := NewReservationStore(nil)

	if err := store.Save(context.Background(), bento, nil); err == nil {
		t.Fatalf("expected error without a key-value store")
	}
}
