package domain

import "time"

// WeatherSample is one reading returned by a weather provider, before rounding.
type WeatherSample struct {
	At          time.Time
	Temperature float64
	Humidity    int
	WindSpeed   float64
	Description string
	Condition   string
	Icon        string
	// PrecipitationProbability is in the 0..1 range. Current-conditions readings leave it at zero.
	PrecipitationProbability float64
}

// Forecast is the weather summary shown next to a day's reservations.
type Forecast struct {
	Temperature     int
	Description     string
	Condition       string
	Humidity        int
	WindSpeed       int
	RainProbability int
	Icon            string
}

// RainWarning reports whether the rain probability exceeds threshold percent.
func (f Forecast) RainWarning(threshold int) bool {
	return f.RainProbability > threshold
}

// IconURL returns the hosted image for the forecast icon, or an empty string when there is none.
func (f Forecast) IconURL() string {
	if f.Icon == "" {
		return ""
	}
	return "https://openweathermap.org/img/wn/" + f.Icon + "@2x.png"
}
