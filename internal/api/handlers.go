package api

import (
	"context"
	"time"

	"github.com/n0needt0/go-goodies/log"
	"github.com/pkg/errors"
	"github.com/swaggest/usecase"
	"github.com/swaggest/usecase/status"

	"github.com/n0needt0/goodies/results-relay/internal/relay"
	"github.com/n0needt0/goodies/results-relay/internal/services"
)

const (
	HEALTHY  = "healthy"
	DEGRADED = "degraded"

	stopTimeout = 2 * time.Second
)

type HealthResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	ServiceName   string       `json:"service_name"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Relay         RelayHealth  `json:"relay"`
	Source        SourceHealth `json:"source"`
}

type RelayHealth struct {
	Running      bool   `json:"running"`
	LatestStatus string `json:"latest_status"`
}

type SourceHealth struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
}

type StatusResponse struct {
	Latest    string `json:"latest"`
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message"`
	Time      string `json:"time,omitempty"`
	Running   bool   `json:"running"`
}

type LogResponse struct {
	Lines []string `json:"lines"`
}

type RelayResponse struct {
	Running bool   `json:"running"`
	Message string `json:"message"`
}

func (api *API) HealthCheck() usecase.Interactor {
	u := usecase.NewInteractor(func(ctx context.Context, input struct{}, output *HealthResponse) error {
		api.count(ctx, "api_health_requests_total", "health check requests")
		cfg := api.Config

		reachable := api.Services.ProbeSource(ctx)

		output.Status = HEALTHY
		if !api.Services.IsHealthy() {
			output.Status = DEGRADED
		}
		output.Version = cfg.App.Version
		output.ServiceName = cfg.App.Name
		output.Timestamp = time.Now().UTC().Format(time.RFC3339)
		output.UptimeSeconds = int64(api.Services.Uptime().Seconds())
		output.Relay = RelayHealth{
			Running:      api.Services.Relay.Running(),
			LatestStatus: api.Services.Relay.LatestStatus(),
		}
		output.Source = SourceHealth{URL: cfg.PingURL(), Reachable: reachable}

		log.Debugf("Health check completed: status=%s", output.Status)
		return nil
	})

	u.SetTitle("Health Check")
	u.SetDescription("Check the health of the relay and the reachability of the source")
	u.SetTags("Health")
	return u
}

func (api *API) GetStatus() usecase.Interactor {
	u := usecase.NewInteractor(func(ctx context.Context, input struct{}, output *StatusResponse) error {
		api.count(ctx, "api_status_requests_total", "status requests")

		output.Running = api.Services.Relay.Running()
		output.Latest = api.Services.Relay.LatestStatus()
		if snap, ok := api.Services.Relay.Snapshot(); ok {
			output.Succeeded = snap.Succeeded
			output.Message = snap.Message
			output.Time = snap.Time.UTC().Format(time.RFC3339)
		}
		return nil
	})

	u.SetTitle("Relay Status")
	u.SetDescription("Latest relay status, prefixed S for success or F for failure")
	u.SetTags("Relay")
	return u
}

func (api *API) GetApplicationLog() usecase.Interactor {
	u := usecase.NewInteractor(func(ctx context.Context, input struct{}, output *LogResponse) error {
		api.count(ctx, "api_log_requests_total", "application log requests")
		output.Lines = nonNil(api.Services.Relay.ApplicationLines())
		return nil
	})

	u.SetTitle("Application Log")
	u.SetDescription("Recent relay events, newest first")
	u.SetTags("Relay")
	return u
}

func (api *API) GetWireLog() usecase.Interactor {
	u := usecase.NewInteractor(func(ctx context.Context, input struct{}, output *LogResponse) error {
		api.count(ctx, "api_wirelog_requests_total", "wire log requests")
		output.Lines = nonNil(api.Services.Relay.WireLines())
		return nil
	})

	u.SetTitle("Wire Log")
	u.SetDescription("Recent HTTP exchanges with source and sink, newest first")
	u.SetTags("Relay")
	return u
}

func (api *API) StartRelay() usecase.Interactor {
	u := usecase.NewInteractor(func(ctx context.Context, input struct{}, output *RelayResponse) error {
		api.count(ctx, "api_relay_start_total", "relay start requests")

		if err := api.Services.StartRelay(); err != nil {
			if errors.Is(err, relay.ErrAlreadyRunning) {
				return status.Wrap(err, status.AlreadyExists)
			}
			return status.Wrap(err, status.InvalidArgument)
		}

		output.Running = true
		output.Message = "relay started"
		return nil
	})

	u.SetTitle("Start Relay")
	u.SetDescription("Start polling the source and uploading results")
	u.SetTags("Relay")
	u.SetExpectedErrors(status.AlreadyExists, status.InvalidArgument)
	return u
}

func (api *API) StopRelay() usecase.Interactor {
	u := usecase.NewInteractor(func(ctx context.Context, input struct{}, output *RelayResponse) error {
		api.count(ctx, "api_relay_stop_total", "relay stop requests")

		output.Message = "relay stopped"
		if err := api.Services.StopRelay(stopTimeout); err != nil {
			if !errors.Is(err, services.ErrStopTimeout) {
				return status.Wrap(err, status.Internal)
			}
			output.Message = "relay stopping, cycle in progress"
		}
		output.Running = api.Services.Relay.Running()
		return nil
	})

	u.SetTitle("Stop Relay")
	u.SetDescription("Stop the relay; a running cycle is allowed to finish")
	u.SetTags("Relay")
	u.SetExpectedErrors(status.Internal)
	return u
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
