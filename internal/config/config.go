// Package config loads the YAML configuration file that drives the
// decoder, encoder, metrics and publisher components, matching the
// load-then-apply-defaults idiom the rest of this codebase's ancestry uses
// for its own YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Encoder EncoderConfig `yaml:"encoder"`
	Report  ReportConfig  `yaml:"report"`
	Metrics MetricsConfig `yaml:"metrics"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Live    LiveConfig    `yaml:"live"`
}

// DecoderConfig configures the acquisition pipeline.
type DecoderConfig struct {
	SampleRate  int     `yaml:"sample_rate"`
	Channels    int     `yaml:"channels"`
	ThresholdDB float64 `yaml:"threshold_db"`
	WDSWindow   int     `yaml:"wds_window"`
	SNRMarginDB float64 `yaml:"snr_margin_db"`
	TimeoutSec  int     `yaml:"timeout_sec"`
	CenturyBase int     `yaml:"century_base"`
	Device      string  `yaml:"device"`
	File        string  `yaml:"file"`
}

// EncoderConfig configures waveform rendering.
type EncoderConfig struct {
	SampleRate  int     `yaml:"sample_rate"`
	PowerDB     float64 `yaml:"power_db"`
	NoiseSigma  float64 `yaml:"noise_sigma"`
	RandomPhase bool    `yaml:"random_phase"`
	Sync        bool    `yaml:"sync"`
	Seed        int64   `yaml:"seed"`
	Device      string  `yaml:"device"`
	File        string  `yaml:"file"`
}

// ReportConfig holds result-formatting settings. cmd/srcclock does not read
// this section; it takes these settings from its --print-frame, --iso-date
// and --log flags and always prints a zero zone offset.
type ReportConfig struct {
	PrintFrame bool   `yaml:"print_frame"`
	ISODate    bool   `yaml:"iso_date"`
	ZoneMin    int    `yaml:"zone_minutes"`
	LogPath    string `yaml:"log"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MQTTConfig controls result publication over MQTT.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// LiveConfig controls the websocket status broadcaster.
type LiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// Load reads and validates filename, applying the same defaults the CLI's
// flags fall back to when a field is left at its YAML zero value.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Decoder.SampleRate == 0 {
		c.Decoder.SampleRate = 8000
	}
	if c.Decoder.Channels == 0 {
		c.Decoder.Channels = 1
	}
	if c.Decoder.ThresholdDB == 0 {
		c.Decoder.ThresholdDB = -35
	}
	if c.Decoder.WDSWindow == 0 {
		c.Decoder.WDSWindow = 50
	}
	if c.Decoder.SNRMarginDB == 0 {
		c.Decoder.SNRMarginDB = 16
	}
	if c.Decoder.TimeoutSec < 2 {
		c.Decoder.TimeoutSec = 300
	}
	if c.Decoder.CenturyBase == 0 {
		c.Decoder.CenturyBase = (time.Now().Year() / 100) * 100
	}
	if c.Encoder.SampleRate == 0 {
		c.Encoder.SampleRate = 8000
	}
}

// Validate enforces the CLI's documented sample-rate rule (spec §4.J/§6):
// both the decoder and the encoder sample rate must lie within 8000-48000.
// Change-time and leap-second are not part of Config; ValidateChangeTime and
// ValidateLeapSecond check them.
func (c *Config) Validate() error {
	if c.Decoder.SampleRate < 8000 || c.Decoder.SampleRate > 48000 {
		return fmt.Errorf("config: decoder.sample_rate %d out of range [8000,48000]", c.Decoder.SampleRate)
	}
	if c.Encoder.SampleRate < 8000 || c.Encoder.SampleRate > 48000 {
		return fmt.Errorf("config: encoder.sample_rate %d out of range [8000,48000]", c.Encoder.SampleRate)
	}
	return nil
}

// Timeout converts the configured decoder timeout to a time.Duration.
func (c DecoderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ValidateChangeTime reports whether a --change-time value is legal: 0..6
// days until the DST switch, or 7 meaning "no change scheduled".
func ValidateChangeTime(v int) error {
	if v < 0 || v > 7 {
		return fmt.Errorf("config: change-time %d out of range [0,7]", v)
	}
	return nil
}

// ValidateLeapSecond reports whether a --leap-second value is legal.
func ValidateLeapSecond(v int) error {
	if v < -1 || v > 1 {
		return fmt.Errorf("config: leap-second %d must be -1, 0 or 1", v)
	}
	return nil
}
