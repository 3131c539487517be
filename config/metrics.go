package config

import (
	"fmt"
)

// MetricsConfig wires the optional metric sinks.
type MetricsConfig struct {
	// PrometheusEnabled exposes /metrics on PrometheusAddr.
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	// Influx mirrors events to an InfluxDB bucket when enabled.
	Influx InfluxConfig `json:"influx"`
}

// InfluxConfig holds the InfluxDB v2 connection settings.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":2112"
	}
}

// Validate checks mandatory fields.
func (c MetricsConfig) Validate() error {
	if c.Influx.Enabled {
		if c.Influx.URL == "" || c.Influx.Token == "" {
			return fmt.Errorf("influx url and token are required when enabled")
		}
		if c.Influx.Org == "" || c.Influx.Bucket == "" {
			return fmt.Errorf("influx org and bucket are required when enabled")
		}
	}
	return nil
}
