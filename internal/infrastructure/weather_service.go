package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sglre6355/tenisplay/internal/domain"
)

const (
	defaultWeatherBaseURL  = "https://api.openweathermap.org/data/2.5"
	defaultWeatherLanguage = "pt_br"
)

var errMalformedPayload = errors.New("malformed weather payload")

// WeatherService reads current conditions and forecasts from the OpenWeather HTTP API.
type WeatherService struct {
	http     *http.Client
	apiKey   string
	baseURL  string
	language string
}

// WeatherServiceOption configures a WeatherService.
type WeatherServiceOption func(*WeatherService)

// WithWeatherBaseURL points the client at another API root.
func WithWeatherBaseURL(baseURL string) WeatherServiceOption {
	return func(ws *WeatherService) {
		if strings.TrimSpace(baseURL) != "" {
			ws.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithWeatherLanguage sets the language of textual descriptions.
func WithWeatherLanguage(language string) WeatherServiceOption {
	return func(ws *WeatherService) {
		if strings.TrimSpace(language) != "" {
			ws.language = language
		}
	}
}

// WithHTTPClient replaces the HTTP client. The default client has no timeout.
func WithHTTPClient(client *http.Client) WeatherServiceOption {
	return func(ws *WeatherService) {
		if client != nil {
			ws.http = client
		}
	}
}

// NewWeatherService returns a client authenticating with apiKey.
func NewWeatherService(apiKey string, opts ...WeatherServiceOption) (*WeatherService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("weather api key cannot be empty")
	}

	ws := &WeatherService{
		http:     &http.Client{},
		apiKey:   apiKey,
		baseURL:  defaultWeatherBaseURL,
		language: defaultWeatherLanguage,
	}

	for _, opt := range opts {
		opt(ws)
	}

	return ws, nil
}

// CurrentConditions returns the present weather for city.
func (ws *WeatherService) CurrentConditions(ctx context.Context, city string) (domain.WeatherSample, error) {
	var payload reading
	if err := ws.get(ctx, "weather", city, &payload); err != nil {
		return domain.WeatherSample{}, fmt.Errorf("failed to fetch current weather: %w", err)
	}

	sample, err := payload.sample()
	if err != nil {
		return domain.WeatherSample{}, fmt.Errorf("failed to decode current weather: %w", err)
	}
	return sample, nil
}

// ForecastSeries returns the forecast points for city in chronological order.
func (ws *WeatherService) ForecastSeries(ctx context.Context, city string) ([]domain.WeatherSample, error) {
	var payload struct {
		List []reading `json:"list"`
	}
	if err := ws.get(ctx, "forecast", city, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	if payload.List == nil {
		return nil, fmt.Errorf("failed to decode forecast: %w: missing list", errMalformedPayload)
	}

	samples := make([]domain.WeatherSample, 0, len(payload.List))
	for i, point := range payload.List {
		sample, err := point.sample()
		if err != nil {
			return nil, fmt.Errorf("failed to decode forecast point %d: %w", i, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func (ws *WeatherService) get(ctx context.Context, endpoint, city string, out any) error {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", ws.apiKey)
	query.Set("lang", ws.language)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ws.baseURL+"/"+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")

	resp, err := ws.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("weather %s http %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", errMalformedPayload, err)
	}
	return nil
}

// reading is the subset of an OpenWeather observation or forecast point that is consumed.
type reading struct {
	Dt   int64 `json:"dt"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity int      `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Pop *float64 `json:"pop"`
}

func (r reading) sample() (domain.WeatherSample, error) {
	if r.Main == nil || r.Main.Temp == nil {
		return domain.WeatherSample{}, fmt.Errorf("%w: missing main.temp", errMalformedPayload)
	}
	if len(r.Weather) == 0 {
		return domain.WeatherSample{}, fmt.Errorf("%w: missing weather entry", errMalformedPayload)
	}
	if r.Wind == nil {
		return domain.WeatherSample{}, fmt.Errorf("%w: missing wind", errMalformedPayload)
	}

	sample := domain.WeatherSample{
		Temperature: *r.Main.Temp,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
		Description: r.Weather[0].Description,
		Condition:   r.Weather[0].Main,
		Icon:        r.Weather[0].Icon,
	}
	if r.Dt != 0 {
		sample.At = time.Unix(r.Dt, 0)
	}
	if r.Pop != nil {
		sample.PrecipitationProbability = *r.Pop
	}
	return sample, nil
}
