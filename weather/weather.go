// Package weather fetches the current conditions for the village and memoizes them.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/duzagac/village-backend/log"
)

// Report is what pages show.
type Report struct {
	OK    bool     `json:"ok"`
	Temp  *float64 `json:"temp"`
	Icon  string   `json:"icon"`
	Label string   `json:"label"`
}

// Placeholder is served whenever the upstream fetch fails.
func Placeholder() Report {
	return Report{OK: false, Icon: "☁️", Label: "Hava"}
}

// Fetcher returns the current report.
type Fetcher interface {
	Fetch(ctx context.Context) (Report, error)
}

// Cache memoizes one Report for TTL. A failed fetch caches the placeholder too, so the upstream
// is asked at most once per TTL window.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	timestamp time.Time
	value     *Report
}

// NewCache builds a cache around f. now may be nil for the wall clock.
func NewCache(f Fetcher, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{fetcher: f, ttl: ttl, now: now}
}

// Get returns the cached report or fetches a new one.
func (c *Cache) Get(ctx context.Context) Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.value != nil && now.Sub(c.timestamp) < c.ttl {
		return *c.value
	}

	// Bounded by the fetcher's timeout, not by the visitor's request.
	report, err := c.fetcher.Fetch(context.WithoutCancel(ctx))
	if err != nil {
		log.Warn.Printf("weather fetch failed: %v", err)
		report = Placeholder()
	}
	c.timestamp = now
	c.value = &report
	return report
}

// OpenMeteo fetches the current weather from the open-meteo forecast API.
type OpenMeteo struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	Client    *http.Client
}

// NewOpenMeteo returns a fetcher whose requests give up after timeout.
func NewOpenMeteo(baseURL string, lat, lon float64, timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{
		BaseURL:   baseURL,
		Latitude:  lat,
		Longitude: lon,
		Client:    &http.Client{Timeout: timeout},
	}
}

type forecast struct {
	CurrentWeather struct {
		Temperature *float64 `json:"temperature"`
		WeatherCode *float64 `json:"weathercode"`
		WindSpeed   *float64 `json:"windspeed"`
	} `json:"current_weather"`
}

func (o *OpenMeteo) Fetch(ctx context.Context) (Report, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(o.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(o.Longitude, 'f', -1, 64))
	q.Set("current_weather", "true")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, err
	}
	req.Header.Set("User-Agent", "DuzagacKoyuApp/1.0")

	resp, err := o.Client.Do(req)
	if err != nil {
		return Report{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("open-meteo: %s", resp.Status)
	}

	var body forecast
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("decode open-meteo: %w", err)
	}

	cw := body.CurrentWeather
	code := 3
	if cw.WeatherCode != nil {
		code = int(*cw.WeatherCode)
	}
	windMS := 0.0
	if cw.WindSpeed != nil {
		windMS = *cw.WindSpeed / 3.6
	}
	icon, label := Describe(code, windMS)
	return Report{OK: true, Temp: cw.Temperature, Icon: icon, Label: label}, nil
}

// Describe maps a WMO weather code and wind speed in m/s to an icon and a Turkish label.
// Strong wind wins over the sky condition.
func Describe(code int, windMS float64) (string, string) {
	if windMS >= 9.0 {
		return "🌬️", "Rüzgarlı"
	}
	switch {
	case code == 0:
		return "☀️", "Güneşli"
	case code == 1 || code == 2:
		return "⛅", "Parçalı"
	case code == 3:
		return "☁️", "Bulutlu"
	case code == 45 || code == 48:
		return "🌫️", "Sisli"
	case code >= 51 && code <= 57:
		return "🌦️", "Çise"
	case code >= 61 && code <= 67:
		return "🌧️", "Yağmurlu"
	case code >= 71 && code <= 77:
		return "❄️", "Karlı"
	case code >= 80 && code <= 82:
		return "🌧️", "Sağanak"
	case code >= 95 && code <= 99:
		return "⛈️", "Fırtına"
	}
	return "☁️", "Hava"
}
