package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/sglre6355/tenisplay/internal/domain"
)

type memoryKV struct {
	mu      sync.Mutex
	values  map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string][]byte)}
}

func (m *memoryKV) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, false, m.loadErr
	}
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memoryKV) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.values[key] = append([]byte(nil), value...)
	m.saves++
	return nil
}

type fakeProvider struct {
	current    domain.WeatherSample
	currentErr error
	series     []domain.WeatherSample
	seriesErr  error

	currentCalls int
	seriesCalls  int
}

func (p *fakeProvider) CurrentConditions(context.Context, string) (domain.WeatherSample, error) {
	p.currentCalls++
	return p.current, p.currentErr
}

func (p *fakeProvider) ForecastSeries(context.Context, string) ([]domain.WeatherSample, error) {
	p.seriesCalls++
	return p.series, p.seriesErr
}

var errBoom = errors.New("boom")
