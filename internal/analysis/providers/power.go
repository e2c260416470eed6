package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/metrics"
)

// NASA POWER daily-point parameter codes.
const (
	paramT2M    = "T2M"         // 2m air temperature, °C
	paramPrecip = "PRECTOTCORR" // corrected total precipitation, mm/day
	paramWind   = "WS2M"        // 2m wind speed, m/s
)

// missingSentinel marks missing days in POWER responses.
const missingSentinel = -999.0

// DefaultPowerBaseURL is the production POWER daily-point endpoint.
const DefaultPowerBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

// PowerProvider implements analysis.DataSource against the NASA POWER
// temporal daily point API.
type PowerProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewPowerProvider creates the provider. baseURL may be empty to use
// the production endpoint.
func NewPowerProvider(client *http.Client, baseURL string) *PowerProvider {
	if baseURL == "" {
		baseURL = DefaultPowerBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nasa-power",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &PowerProvider{
		name:    "nasa-power",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *PowerProvider) Name() string {
	return p.name
}

// powerResponse mirrors the slice of the POWER payload we consume:
// properties.parameter.<CODE> maps "YYYYMMDD" to a daily value.
type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// FetchDaily retrieves the daily series for the coordinate over
// [startYear, endYear]. Failures map to the service error taxonomy.
func (p *PowerProvider) FetchDaily(ctx context.Context, coord analysis.Coordinate, startYear, endYear int) (analysis.HistoricalSeries, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("parameters", fmt.Sprintf("%s,%s,%s", paramT2M, paramPrecip, paramWind))
		values.Set("community", "RE")
		values.Set("latitude", fmt.Sprintf("%f", coord.Latitude))
		values.Set("longitude", fmt.Sprintf("%f", coord.Longitude))
		values.Set("start", fmt.Sprintf("%d0101", startYear))
		values.Set("end", fmt.Sprintf("%d1231", endYear))
		values.Set("format", "JSON")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	started := time.Now()
	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	metrics.PowerAPILatency.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.PowerAPICallsTotal.WithLabelValues("error").Inc()
		return nil, analysis.NewError(analysis.ErrDataUnavailable,
			"Failed to fetch data from NASA POWER API. Please try again.")
	}
	defer resp.Body.Close()
	metrics.PowerAPICallsTotal.WithLabelValues("ok").Inc()

	var payload powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, analysis.NewError(analysis.ErrDataUnavailable,
			"NASA POWER API returned malformed data. Please try again.")
	}

	series := buildSeries(payload.Properties.Parameter)
	if len(series) == 0 {
		return nil, analysis.NewError(analysis.ErrInsufficientData,
			"No data found for this location")
	}
	return series, nil
}

// buildSeries merges the per-parameter date maps into a date-ordered
// series. Missing temperature/wind become NaN and are dropped by the
// validator; missing precipitation counts as a dry day.
func buildSeries(params map[string]map[string]float64) analysis.HistoricalSeries {
	temps := params[paramT2M]
	precips := params[paramPrecip]
	winds := params[paramWind]

	dateSet := make(map[string]struct{}, len(temps))
	for d := range temps {
		dateSet[d] = struct{}{}
	}
	for d := range precips {
		dateSet[d] = struct{}{}
	}
	for d := range winds {
		dateSet[d] = struct{}{}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	series := make(analysis.HistoricalSeries, 0, len(dates))
	for _, d := range dates {
		date, err := time.Parse("20060102", d)
		if err != nil {
			continue
		}
		series = append(series, analysis.DailyObservation{
			Date:            date,
			TemperatureC:    lookup(temps, d, math.NaN()),
			PrecipitationMM: lookup(precips, d, 0),
			WindSpeedMS:     lookup(winds, d, math.NaN()),
		})
	}
	return series
}

// lookup resolves one parameter value for a date, mapping the POWER
// missing sentinel to the parameter's missing representation.
func lookup(m map[string]float64, date string, missing float64) float64 {
	v, ok := m[date]
	if !ok || v == missingSentinel {
		return missing
	}
	return v
}
