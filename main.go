package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/n0needt0/go-goodies/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/n0needt0/goodies/results-relay/internal/api"
	"github.com/n0needt0/goodies/results-relay/internal/config"
	"github.com/n0needt0/goodies/results-relay/internal/relay"
	"github.com/n0needt0/goodies/results-relay/internal/services"
)

var (
	conf      = config.Config{}
	envPrefix = "RELAY_"

	// set at build time with -ldflags "-X main.version=..."
	version = "dev"
)

func newRootCommand() *cobra.Command {
	var cfgFilePath string
	var noAutostart bool

	root := &cobra.Command{
		Use:           "results-relay",
		Short:         "Relay race results from the local source to the results sink",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfgFilePath); err != nil {
				return err
			}
			if err := conf.Validate(); err != nil {
				return err
			}
			if noAutostart {
				conf.Relay.Autostart = false
			}
			return Run()
		},
	}

	root.PersistentFlags().StringVar(&cfgFilePath, "config", "config.yaml", "--config <FILE>")
	root.Flags().BoolVar(&noAutostart, "no-autostart", false, "do not start the relay until asked over the API")
	root.Flags().Int("source.port", config.DefaultSourcePort, "port of the local results source")
	root.Flags().Int("server.api_port", config.DefaultApiPort, "port of the API server")
	root.Flags().Int("relay.interval_seconds", config.DefaultIntervalSeconds, "seconds between the end of one cycle and the start of the next")
	root.Flags().String("logging.level", "info", "debug, info, warn or error")
	root.Flags().Bool("dev", false, "development mode")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	probe := &cobra.Command{
		Use:   "probe",
		Short: "Check once whether the results source is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfgFilePath); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), relay.DefaultProbeTimeout)
			defer cancel()

			if !relay.Probe(ctx, nil, conf.PingURL(), conf.UserAgent()) {
				return errors.Errorf("source %s is not reachable", conf.PingURL())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "source %s is reachable\n", conf.PingURL())
			return nil
		},
	}
	probe.Flags().Int("source.port", config.DefaultSourcePort, "port of the local results source")
	root.AddCommand(probe)

	return root
}

func loadConfig(cmd *cobra.Command, path string) error {
	if err := config.LoadConfig(path, envPrefix, cmd.Flags(), &conf); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if conf.App.Version == "dev" {
		conf.App.Version = version
	}
	setLogLevel(conf.Logging.Level)
	return nil
}

// Run starts the services, the API and the housekeeping loop and blocks
// until the process is told to stop.
func Run() error {
	var otelshutdown func()

	if conf.Otel.Enabled {
		shutdown, err := InitOtelProvider(&conf)
		if err != nil {
			log.Errorf("relay metrics disabled: %v", err)
		} else {
			otelshutdown = shutdown
		}
	}

	services, err := services.NewServices(&conf)
	if err != nil {
		return errors.Wrap(err, "failed to init services")
	}

	server := NewServer(services, &conf)
	server.HttpApi = api.NewAPI(services, &conf)

	if conf.Relay.Autostart {
		if err := services.StartRelay(); err != nil {
			log.Errorf("relay not started: %v", err)
		}
	} else {
		log.Info("relay autostart disabled, waiting for /api/v1/relay/start")
	}

	go server.HttpApi.Serve(":"+strconv.Itoa(conf.Server.ApiPort), server.HttpApi.NewRouter())

	server.Start(func() {
		if !services.Relay.Running() {
			ctx, cancel := context.WithTimeout(context.Background(), relay.DefaultProbeTimeout)
			defer cancel()
			services.ProbeSource(ctx)
		}
	}, func(timeout time.Duration) {
		if err := services.StopRelay(timeout); err != nil {
			log.Warnf("relay did not stop cleanly: %v", err)
		}
	})

	if otelshutdown != nil {
		//cleanup otel
		otelshutdown()
	}

	return nil
}

func setLogLevel(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "debug":
		log.SetMinLogLevel(log.MinLevelDebug)
	case "info":
		log.SetMinLogLevel(log.MinLevelInfo)
	case "warn":
		log.SetMinLogLevel(log.MinLevelWarn)
	case "error":
		log.SetMinLogLevel(log.MinLevelError)
	}
}

// Server provides basic service functions and state common to all service types
type Server struct {
	Config   *config.Config
	Name     string
	quitterC chan time.Duration // also internal-only
	HttpApi  *api.API
	Services *services.Services
}

func NewServer(services *services.Services, conf *config.Config) *Server {
	return &Server{
		Config:   conf,
		Name:     conf.App.Name,
		quitterC: make(chan time.Duration),
		Services: services,
	}
}

// Start runs housekeeping on every tick until Stop is called or a signal
// arrives.
func (svc *Server) Start(housekeepingFn func(), quitterFn func(time.Duration)) {
	// exit cleanly on signal
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGABRT, syscall.SIGTERM)
	go func() {
		sig := <-signalC
		log.Debugf("Received signal %v", sig)

		if err := svc.Stop(5 * time.Second); err != nil {
			log.Fatalf("error stopping service: %v", err)
		}
	}()

	interval := svc.Config.GetHousekeepingInterval()
	if interval <= 0 {
		log.Errorf("invalid housekeeping-interval: %s", interval)
		interval = time.Duration(config.DefaultHousekeepingSecs) * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if housekeepingFn != nil && svc.Config.Housekeeping.Enabled {
				log.Debug("housekeeping")
				housekeepingFn()
			}
		case timeout := <-svc.quitterC:
			log.Debug("shutting down")

			if quitterFn != nil {
				quitterFn(timeout)
			}

			if svc.HttpApi != nil {
				svc.HttpApi.Stop()
			}
			return
		}
	}
}

func (svc *Server) Stop(timeout time.Duration) error {
	log.Debugf("sending timeout %s to quitterC:", timeout)

	select {
	case svc.quitterC <- timeout:
		log.Debug("sent")
	case <-time.After(timeout + (100 * time.Millisecond)):
		log.Debug("timed out")
	}
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("failed to start: %s\n", err.Error())
		os.Exit(11)
	}
}
