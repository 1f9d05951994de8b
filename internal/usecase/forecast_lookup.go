package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/sglre6355/tenisplay/internal/domain"
)

// WeatherProvider fetches raw readings from a remote weather service.
type WeatherProvider interface {
	CurrentConditions(ctx context.Context, city string) (domain.WeatherSample, error)
	ForecastSeries(ctx context.Context, city string) ([]domain.WeatherSample, error)
}

// ForecastErrorStage indicates which endpoint failed.
type ForecastErrorStage string

const (
	// ForecastErrorStageCurrent marks failures of the current-conditions endpoint.
	ForecastErrorStageCurrent ForecastErrorStage = "current"
	// ForecastErrorStageForecast marks failures of the multi-point forecast endpoint.
	ForecastErrorStageForecast ForecastErrorStage = "forecast"
)

// ForecastErrorHandler is invoked when a lookup degrades to unavailable because of an error.
type ForecastErrorHandler func(city string, date domain.Date, stage ForecastErrorStage, err error)

// ForecastLookup turns provider readings into the forecast for one day.
type ForecastLookup struct {
	provider WeatherProvider
	location *time.Location
	nowFn    func() time.Time
	onError  ForecastErrorHandler
}

// ForecastLookupOption configures a ForecastLookup.
type ForecastLookupOption func(*ForecastLookup)

// WithForecastClock overrides the clock deciding which day is today.
func WithForecastClock(nowFn func() time.Time) ForecastLookupOption {
	return func(l *ForecastLookup) {
		if nowFn != nil {
			l.nowFn = nowFn
		}
	}
}

// WithForecastLocation sets the time zone used to compare calendar days.
func WithForecastLocation(loc *time.Location) ForecastLookupOption {
	return func(l *ForecastLookup) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithForecastErrorHandler registers the callback used when a lookup fails.
func WithForecastErrorHandler(handler ForecastErrorHandler) ForecastLookupOption {
	return func(l *ForecastLookup) {
		if handler != nil {
			l.onError = handler
		}
	}
}

// NewForecastLookup wraps provider.
func NewForecastLookup(provider WeatherProvider, opts ...ForecastLookupOption) *ForecastLookup {
	lookup := &ForecastLookup{
		provider: provider,
		location: time.Local,
		nowFn:    time.Now,
		onError: func(city string, date domain.Date, stage ForecastErrorStage, err error) {
			slog.Warn("weather lookup failed",
				slog.String("city", city),
				slog.String("date", date.String()),
				slog.Any("stage", stage),
				slog.Any("error", err),
			)
		},
	}

	for _, opt := range opts {
		opt(lookup)
	}

	return lookup
}

// Today returns the current calendar day in the lookup's location.
func (l *ForecastLookup) Today() domain.Date {
	return domain.DateOf(l.nowFn().In(l.location))
}

// Location returns the time zone used for day comparisons.
func (l *ForecastLookup) Location() *time.Location {
	return l.location
}

// Lookup returns the forecast for city on date. The boolean is false when no forecast is available,
// which covers dates past the provider's horizon as well as every kind of failure.
func (l *ForecastLookup) Lookup(ctx context.Context, city string, date domain.Date) (domain.Forecast, bool) {
	if l.provider == nil {
		l.onError(city, date, ForecastErrorStageForecast, errors.New("forecast lookup missing weather provider dependency"))
		return domain.Forecast{}, false
	}

	if date == l.Today() {
		sample, err := l.provider.CurrentConditions(ctx, city)
		if err != nil {
			l.onError(city, date, ForecastErrorStageCurrent, err)
			return domain.Forecast{}, false
		}
		sample.PrecipitationProbability = 0
		return toForecast(sample), true
	}

	series, err := l.provider.ForecastSeries(ctx, city)
	if err != nil {
		l.onError(city, date, ForecastErrorStageForecast, err)
		return domain.Forecast{}, false
	}

	for _, sample := range series {
		if domain.DateOf(sample.At.In(l.location)) == date {
			return toForecast(sample), true
		}
	}

	slog.Debug("no forecast point for date", slog.String("city", city), slog.String("date", date.String()))
	return domain.Forecast{}, false
}

func toForecast(sample domain.WeatherSample) domain.Forecast {
	rain := int(math.Round(sample.PrecipitationProbability * 100))
	rain = max(0, min(100, rain))

	return domain.Forecast{
		Temperature:     int(math.Round(sample.Temperature)),
		Description:     sample.Description,
		Condition:       sample.Condition,
		Humidity:        sample.Humidity,
		WindSpeed:       int(math.Round(sample.WindSpeed)),
		RainProbability: rain,
		Icon:            sample.Icon,
	}
}
