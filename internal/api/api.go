package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/n0needt0/go-goodies/log"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/swaggest/rest/web"
	swgui "github.com/swaggest/swgui/v5emb"
	"go.opentelemetry.io/otel/metric"

	"github.com/n0needt0/goodies/results-relay/internal/config"
	"github.com/n0needt0/goodies/results-relay/internal/services"
)

type API struct {
	Services   *services.Services
	ApiMetrics map[string]metric.Int64Counter
	HttpServer *http.Server
	sync.RWMutex
	Config *config.Config
}

func NewAPI(services *services.Services, conf *config.Config) *API {
	return &API{
		Services:   services,
		ApiMetrics: make(map[string]metric.Int64Counter),
		Config:     conf,
	}
}

// UseMetric returns the counter for label, creating it on first use.
func (api *API) UseMetric(label, description string) metric.Int64Counter {
	api.RLock()
	mtr, ok := api.ApiMetrics[label]
	api.RUnlock()
	if ok {
		return mtr
	}

	m, err := api.Services.OtelMeter.Int64Counter(label, metric.WithDescription(description))
	if err != nil {
		log.Error("failed to init the metrics" + err.Error())
		return nil
	}

	api.Lock()
	defer api.Unlock()
	if existing, ok := api.ApiMetrics[label]; ok {
		return existing
	}
	api.ApiMetrics[label] = m
	return m
}

func (api *API) count(ctx context.Context, label, description string) {
	if c := api.UseMetric(label, description); c != nil {
		c.Add(ctx, 1)
	}
}

// NewRouter returns a new router serving API endpoints
func (api *API) NewRouter() *web.Service {
	service := web.NewService(openapi3.NewReflector())

	service.OpenAPISchema().SetTitle("Results Relay API")
	service.OpenAPISchema().SetDescription("Relays race results from the local source to the results sink")
	service.OpenAPISchema().SetVersion("v1.0.0")

	service.DecoderFactory.ApplyDefaults = true
	service.Wrap()

	service.Get("/api/v1/health", api.HealthCheck())
	service.Get("/api/v1/status", api.GetStatus())
	service.Get("/api/v1/log", api.GetApplicationLog())
	service.Get("/api/v1/wirelog", api.GetWireLog())
	service.Post("/api/v1/relay/start", api.StartRelay())
	service.Post("/api/v1/relay/stop", api.StopRelay())
	service.Get("/api/v1/config", api.GetConfig())

	service.Docs("/docs", swgui.New)

	service.Router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusFound)
	})

	return service
}

// Serve serves http endpoints
func (api *API) Serve(address string, router http.Handler) {
	log.Infof("API server started on %s", address)

	api.Lock()
	api.HttpServer = &http.Server{
		Addr:           address,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	server := api.HttpServer
	api.Unlock()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		log.Info("API server closed")
	} else {
		log.Errorf("API server failed and closed: %v", err)
	}
}

// Stop stops the server
func (api *API) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	api.Lock()
	server := api.HttpServer
	api.HttpServer = nil
	api.Unlock()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			log.Errorf("error shutting down API server: %v", err)
		}
	}

	log.Info("API server shut down gracefully")
}
