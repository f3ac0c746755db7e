package api

import (
	"context"

	"github.com/n0needt0/go-goodies/log"
	"github.com/swaggest/usecase"
)

// ConfigResponse represents the current system configuration
type ConfigResponse struct {
	App          AppConfig          `json:"app"`
	Server       ServerConfig       `json:"server"`
	Source       SourceConfig       `json:"source"`
	Sink         SinkConfigMasked   `json:"sink"`
	Relay        RelayConfig        `json:"relay"`
	HTTP         TimeoutConfig      `json:"http"`
	Alerts       AlertsConfig       `json:"alerts"`
	Archive      ArchiveConfig      `json:"archive"`
	Otel         OtelConfig         `json:"otel"`
	Housekeeping HousekeepingConfig `json:"housekeeping"`
	Dev          bool               `json:"dev"`
}

type AppConfig struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ServerConfig struct {
	ApiPort int `json:"api_port"`
}

type SourceConfig struct {
	URL  string `json:"url"`
	Port int    `json:"port"`
}

type SinkConfigMasked struct {
	URL      string `json:"url"`
	EventID  string `json:"event_id"`
	Password string `json:"password"`
}

type RelayConfig struct {
	Autostart       bool `json:"autostart"`
	IntervalSeconds int  `json:"interval_seconds"`
	StartupDelayMs  int  `json:"startup_delay_ms"`
	LogCapacity     int  `json:"log_capacity"`
}

type TimeoutConfig struct {
	ConnectTimeoutSecs int `json:"connect_timeout_seconds"`
	ReadTimeoutSecs    int `json:"read_timeout_seconds"`
	WriteTimeoutSecs   int `json:"write_timeout_seconds"`
	CallTimeoutSecs    int `json:"call_timeout_seconds"`
}

type AlertsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
	Timeout  int    `json:"timeout"`
}

type ArchiveConfig struct {
	Enabled    bool   `json:"enabled"`
	BucketName string `json:"bucket_name"`
	Endpoint   string `json:"endpoint"`
	Region     string `json:"region"`
}

type OtelConfig struct {
	Enabled               bool   `json:"enabled"`
	Endpoint              string `json:"endpoint"`
	ServiceName           string `json:"service_name"`
	ScrapeIntervalSeconds int    `json:"scrape_interval_seconds"`
}

type HousekeepingConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"interval_seconds"`
}

// GetConfig returns the configuration with secrets masked.
func (api *API) GetConfig() usecase.Interactor {
	u := usecase.NewInteractor(func(ctx context.Context, input struct{}, output *ConfigResponse) error {
		api.count(ctx, "api_config_requests_total", "config requests")
		cfg := api.Config.Masked()

		output.App = AppConfig{Name: cfg.App.Name, Version: cfg.App.Version}
		output.Server = ServerConfig{ApiPort: cfg.Server.ApiPort}
		output.Source = SourceConfig{URL: cfg.SourceURL(), Port: cfg.Source.Port}
		output.Sink = SinkConfigMasked{
			URL:      cfg.Sink.URL,
			EventID:  cfg.Sink.EventID,
			Password: cfg.Sink.Password,
		}
		output.Relay = RelayConfig{
			Autostart:       cfg.Relay.Autostart,
			IntervalSeconds: cfg.Relay.IntervalSeconds,
			StartupDelayMs:  cfg.Relay.StartupDelayMs,
			LogCapacity:     cfg.Relay.LogCapacity,
		}
		output.HTTP = TimeoutConfig{
			ConnectTimeoutSecs: cfg.HTTP.ConnectTimeoutSecs,
			ReadTimeoutSecs:    cfg.HTTP.ReadTimeoutSecs,
			WriteTimeoutSecs:   cfg.HTTP.WriteTimeoutSecs,
			CallTimeoutSecs:    cfg.HTTP.CallTimeoutSecs,
		}
		output.Alerts = AlertsConfig{
			Enabled:  cfg.Alerts.Enabled,
			Endpoint: cfg.Alerts.Endpoint,
			Timeout:  cfg.Alerts.Timeout,
		}
		output.Archive = ArchiveConfig{
			Enabled:    cfg.Archive.Enabled,
			BucketName: cfg.Archive.BucketName,
			Endpoint:   cfg.Archive.Endpoint,
			Region:     cfg.Archive.Region,
		}
		output.Otel = OtelConfig{
			Enabled:               cfg.Otel.Enabled,
			Endpoint:              cfg.Otel.Endpoint,
			ServiceName:           cfg.Otel.ServiceName,
			ScrapeIntervalSeconds: cfg.Otel.ScrapeIntervalSeconds,
		}
		output.Housekeeping = HousekeepingConfig{
			Enabled:         cfg.Housekeeping.Enabled,
			IntervalSeconds: cfg.Housekeeping.IntervalSeconds,
		}
		output.Dev = cfg.Dev

		log.Debugf("Retrieved system configuration")
		return nil
	})

	u.SetTitle("Get System Configuration")
	u.SetDescription("Retrieve the current configuration (sensitive values are masked)")
	u.SetTags("Configuration")
	return u
}
