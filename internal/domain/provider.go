package domain

import "context"

// Providers abstract one upstream data source each. A provider implements
// only the capabilities its upstream supports; the aggregator composes them
// into per-capability fallback chains.
//
// Contract: on any network or parse failure a provider returns an error. It
// must never return a plausible-looking fabricated result labeled as real
// data; mock providers are a distinct, explicitly wired path tagged with
// DataSourceMock.

// CurrentProvider fetches current conditions for a coordinate.
type CurrentProvider interface {
	Name() string
	FetchCurrent(ctx context.Context, lat, lng float64) (Reading, error)
}

// ForecastProvider fetches a multi-day forecast for a coordinate.
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, lat, lng float64) ([]ForecastDay, error)
}

// AlertProvider fetches active weather alerts covering a coordinate.
type AlertProvider interface {
	Name() string
	FetchAlerts(ctx context.Context, lat, lng float64) ([]Alert, error)
}

// HurricaneProvider fetches all currently tracked storms.
type HurricaneProvider interface {
	Name() string
	FetchHurricanes(ctx context.Context) ([]HurricaneTrack, error)
}
