package main

import (
	"context"
	"time"

	"github.com/n0needt0/go-goodies/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/n0needt0/goodies/results-relay/internal/config"
)

const otelShutdownTimeout = time.Second

// Resource attribute keys describing which relay is reporting.
const (
	attrEventID   = attribute.Key("relay.event_id")
	attrSourceURL = attribute.Key("relay.source_url")
	attrSinkURL   = attribute.Key("relay.sink_url")
)

// relayResource identifies this relay instance to the collector.
func relayResource(ctx context.Context, conf *config.Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(conf.Otel.ServiceName),
		semconv.ServiceVersionKey.String(conf.App.Version),
		attrSourceURL.String(conf.SourceURL()),
	}
	if conf.Sink.EventID != "" {
		attrs = append(attrs, attrEventID.String(conf.Sink.EventID))
	}
	if conf.Sink.URL != "" {
		attrs = append(attrs, attrSinkURL.String(conf.Sink.URL))
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(attrs...),
	)
	if err != nil && res == nil {
		return nil, errors.Wrap(err, "failed to build otel resource")
	}
	if err != nil {
		// partial resource, still usable
		log.Warnf("otel resource incomplete: %v", err)
	}
	return res, nil
}

// InitOtelProvider installs a global meter provider that pushes the relay
// metrics to the configured collector. The returned func flushes and stops
// it; callers must invoke it on shutdown.
func InitOtelProvider(conf *config.Config) (func(), error) {
	ctx := context.Background()

	res, err := relayResource(ctx, conf)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(conf.Otel.Endpoint),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create metric exporter for %s", conf.Otel.Endpoint)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(conf.GetScrapeInterval()))),
	)
	otel.SetMeterProvider(provider)
	log.Infof("exporting relay metrics to %s every %s", conf.Otel.Endpoint, conf.GetScrapeInterval())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()

		// flushes the last relay counters
		if err := provider.Shutdown(ctx); err != nil {
			log.Errorf("failed to flush relay metrics: %v", err)
			otel.Handle(err)
		}
	}, nil
}
