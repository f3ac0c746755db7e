package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/n0needt0/goodies/results-relay/internal/credentials"
	"github.com/n0needt0/goodies/results-relay/internal/domain"
)

const (
	DefaultSinkURL          = "https://api.orienteerfeed.com/rest/v1/upload/iof"
	DefaultSourceHost       = "localhost"
	DefaultSourcePort       = 8080
	DefaultSourcePath       = "/reports/ResultsIof30Xml"
	DefaultApiPort          = 8090
	DefaultIntervalSeconds  = 30
	DefaultStartupDelayMs   = 3000
	DefaultLogCapacity      = 25
	DefaultTimeoutSecs      = -1
	DefaultHousekeepingSecs = 10
	DefaultScrapeSeconds    = 15
	DefaultAlertTimeoutSecs = 30

	masked = "********"
)

type Config struct {
	App          App           `mapstructure:"app"`
	Logging      LoggingConfig `mapstructure:"logging"`
	Server       Server        `mapstructure:"server"`
	Source       Source        `mapstructure:"source"`
	Sink         Sink          `mapstructure:"sink"`
	Relay        Relay         `mapstructure:"relay"`
	HTTP         HTTP          `mapstructure:"http"`
	Alerts       Alerts        `mapstructure:"alerts"`
	Archive      Archive       `mapstructure:"archive"`
	Otel         Otel          `mapstructure:"otel"`
	Housekeeping Housekeeping  `mapstructure:"housekeeping"`
	Dev          bool          `mapstructure:"dev"`
}

type App struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Server struct {
	ApiPort int `mapstructure:"api_port"`
}

// Source is the local results provider. Only the port is meant to change.
type Source struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Path string `mapstructure:"path"`
}

// Sink credentials. A non-empty Link overrides URL, EventID and Password.
type Sink struct {
	URL      string `mapstructure:"url"`
	EventID  string `mapstructure:"event_id"`
	Password string `mapstructure:"password"`
	Link     string `mapstructure:"link"`
}

type Relay struct {
	Autostart       bool `mapstructure:"autostart"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	StartupDelayMs  int  `mapstructure:"startup_delay_ms"`
	LogCapacity     int  `mapstructure:"log_capacity"`
}

// HTTP timeouts in seconds. -1 selects the default, 0 disables.
type HTTP struct {
	ConnectTimeoutSecs int `mapstructure:"connect_timeout_seconds"`
	ReadTimeoutSecs    int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSecs   int `mapstructure:"write_timeout_seconds"`
	CallTimeoutSecs    int `mapstructure:"call_timeout_seconds"`
}

type Alerts struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Timeout  int    `mapstructure:"timeout"`
}

type Archive struct {
	Enabled    bool   `mapstructure:"enabled"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Endpoint   string `mapstructure:"endpoint"`
	Ssl        bool   `mapstructure:"ssl"`
}

type Otel struct {
	Enabled               bool   `mapstructure:"enabled"`
	Endpoint              string `mapstructure:"endpoint"`
	ServiceName           string `mapstructure:"service_name"`
	ScrapeIntervalSeconds int    `mapstructure:"scrapeIntervalseconds"`
}

type Housekeeping struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"intervalseconds"`
}

// envKey maps RELAY_SINK_EVENT__ID to sink.event_id: a single underscore
// separates sections, a double one stays an underscore.
func envKey(envPrefix string) func(string) string {
	return func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		s = strings.ReplaceAll(s, "__", "\x00")
		s = strings.ReplaceAll(s, "_", ".")
		return strings.ReplaceAll(s, "\x00", "_")
	}
}

// LoadConfig reads cfgFile, then the environment, then flags (if any) into
// cfg and applies defaults. Later sources win.
func LoadConfig(cfgFile, envPrefix string, flags *pflag.FlagSet, cfg *Config) error {
	if cfgFile == "" {
		cfgFile = "config.yaml"
	}

	k := koanf.New(".")

	err := k.Load(file.Provider(cfgFile), yaml.Parser())
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", cfgFile)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey(envPrefix)), nil); err != nil {
		return errors.Wrapf(err, "error loading config from env")
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return errors.Wrapf(err, "error loading config from flags")
		}
	}

	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"})
	if err != nil {
		return errors.Wrapf(err, "failed to unmarshal %s", cfgFile)
	}

	applyDefaults(k, cfg)

	if cfg.Sink.Link != "" {
		sink, err := credentials.ParseLink(cfg.Sink.Link)
		if err != nil {
			return errors.Wrap(err, "invalid sink.link")
		}
		cfg.Sink.URL = sink.URL
		cfg.Sink.EventID = sink.EventID
		cfg.Sink.Password = sink.Password
	}

	return nil
}

func applyDefaults(k *koanf.Koanf, cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "results-relay"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Server.ApiPort == 0 {
		cfg.Server.ApiPort = DefaultApiPort
	}

	if cfg.Source.Host == "" {
		cfg.Source.Host = DefaultSourceHost
	}
	if cfg.Source.Port == 0 {
		cfg.Source.Port = DefaultSourcePort
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = DefaultSourcePath
	}
	if cfg.Sink.URL == "" {
		cfg.Sink.URL = DefaultSinkURL
	}

	// zero is meaningful for these, so only an absent key gets the default
	if !k.Exists("relay.autostart") {
		cfg.Relay.Autostart = true
	}
	if !k.Exists("housekeeping.enabled") {
		cfg.Housekeeping.Enabled = true
	}
	if !k.Exists("relay.startup_delay_ms") {
		cfg.Relay.StartupDelayMs = DefaultStartupDelayMs
	}
	for key, v := range map[string]*int{
		"http.connect_timeout_seconds": &cfg.HTTP.ConnectTimeoutSecs,
		"http.read_timeout_seconds":    &cfg.HTTP.ReadTimeoutSecs,
		"http.write_timeout_seconds":   &cfg.HTTP.WriteTimeoutSecs,
		"http.call_timeout_seconds":    &cfg.HTTP.CallTimeoutSecs,
	} {
		if !k.Exists(key) {
			*v = DefaultTimeoutSecs
		}
	}

	if cfg.Relay.IntervalSeconds == 0 {
		cfg.Relay.IntervalSeconds = DefaultIntervalSeconds
	}
	if cfg.Relay.LogCapacity == 0 {
		cfg.Relay.LogCapacity = DefaultLogCapacity
	}
	if cfg.Alerts.Timeout == 0 {
		cfg.Alerts.Timeout = DefaultAlertTimeoutSecs
	}
	if cfg.Otel.ScrapeIntervalSeconds == 0 {
		cfg.Otel.ScrapeIntervalSeconds = DefaultScrapeSeconds
	}
	if cfg.Otel.ServiceName == "" {
		cfg.Otel.ServiceName = cfg.App.Name
	}
	if cfg.Housekeeping.IntervalSeconds == 0 {
		cfg.Housekeeping.IntervalSeconds = DefaultHousekeepingSecs
	}
}

// Validate reports every out-of-range setting at once.
func (cfg *Config) Validate() error {
	var problems []string

	if cfg.Source.Port < 1025 || cfg.Source.Port > 65535 {
		problems = append(problems, fmt.Sprintf("source.port %d outside 1025-65535", cfg.Source.Port))
	}
	if cfg.Server.ApiPort < 1 || cfg.Server.ApiPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.api_port %d invalid", cfg.Server.ApiPort))
	}
	if cfg.Relay.IntervalSeconds <= 0 {
		problems = append(problems, "relay.interval_seconds must be > 0")
	}
	if cfg.Relay.StartupDelayMs < 0 {
		problems = append(problems, "relay.startup_delay_ms must be >= 0")
	}
	for name, v := range map[string]int{
		"connect_timeout_seconds": cfg.HTTP.ConnectTimeoutSecs,
		"read_timeout_seconds":    cfg.HTTP.ReadTimeoutSecs,
		"write_timeout_seconds":   cfg.HTTP.WriteTimeoutSecs,
		"call_timeout_seconds":    cfg.HTTP.CallTimeoutSecs,
	} {
		if v < -1 {
			problems = append(problems, fmt.Sprintf("http.%s must be >= -1", name))
		}
	}
	if !cfg.Dev && !strings.HasPrefix(strings.ToLower(cfg.Sink.URL), "https://") {
		problems = append(problems, "sink.url must use https")
	}
	if cfg.Archive.Enabled && cfg.Archive.BucketName == "" {
		problems = append(problems, "archive.bucket_name required when archive is enabled")
	}
	if cfg.Alerts.Enabled && cfg.Alerts.Endpoint == "" {
		problems = append(problems, "alerts.endpoint required when alerts are enabled")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SourceURL is the results endpoint polled every cycle.
func (cfg *Config) SourceURL() string {
	return fmt.Sprintf("http://%s:%d%s", cfg.Source.Host, cfg.Source.Port, cfg.Source.Path)
}

// PingURL is the source base URL used for reachability probes.
func (cfg *Config) PingURL() string {
	return fmt.Sprintf("http://%s:%d", cfg.Source.Host, cfg.Source.Port)
}

func (cfg *Config) UserAgent() string {
	return cfg.App.Name + "/" + cfg.App.Version
}

// RelayConfig builds the session settings. It fails when the sink
// credentials are incomplete.
func (cfg *Config) RelayConfig() (domain.RelayConfig, error) {
	if cfg.Sink.EventID == "" {
		return domain.RelayConfig{}, credentials.ErrEventIDMissing
	}
	if cfg.Sink.Password == "" {
		return domain.RelayConfig{}, credentials.ErrPasswordMissing
	}

	return domain.RelayConfig{
		SourceURL:      cfg.SourceURL(),
		SinkURL:        cfg.Sink.URL,
		EventID:        cfg.Sink.EventID,
		Authorization:  credentials.BasicAuthorization(cfg.Sink.EventID, cfg.Sink.Password),
		UserAgent:      cfg.UserAgent(),
		PollInterval:   cfg.GetPollInterval(),
		StartupDelay:   cfg.GetStartupDelay(),
		ConnectTimeout: seconds(cfg.HTTP.ConnectTimeoutSecs),
		ReadTimeout:    seconds(cfg.HTTP.ReadTimeoutSecs),
		WriteTimeout:   seconds(cfg.HTTP.WriteTimeoutSecs),
		CallTimeout:    seconds(cfg.HTTP.CallTimeoutSecs),
		LogCapacity:    cfg.Relay.LogCapacity,
	}, nil
}

// Masked returns a copy safe to expose over the API.
func (cfg *Config) Masked() Config {
	c := *cfg
	if c.Sink.Password != "" {
		c.Sink.Password = masked
	}
	if c.Sink.Link != "" {
		c.Sink.Link = masked
	}
	if c.Archive.SecretKey != "" {
		c.Archive.SecretKey = masked
	}
	return c
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func (cfg *Config) GetPollInterval() time.Duration {
	return seconds(cfg.Relay.IntervalSeconds)
}

func (cfg *Config) GetStartupDelay() time.Duration {
	return millis(cfg.Relay.StartupDelayMs)
}

func (cfg *Config) GetHousekeepingInterval() time.Duration {
	return time.Duration(cfg.Housekeeping.IntervalSeconds) * time.Second
}

func (cfg *Config) GetAlertTimeout() time.Duration {
	return time.Duration(cfg.Alerts.Timeout) * time.Second
}

func (cfg *Config) GetScrapeInterval() time.Duration {
	return time.Duration(cfg.Otel.ScrapeIntervalSeconds) * time.Second
}
