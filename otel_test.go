package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/n0needt0/goodies/results-relay/internal/config"
)

func TestRelayResource(t *testing.T) {
	cfg := &config.Config{
		App:    config.App{Name: "results-relay", Version: "1.2.3"},
		Source: config.Source{Host: "localhost", Port: 8080, Path: "/reports/ResultsIof30Xml"},
		Sink:   config.Sink{URL: "https://sink.example/api/results", EventID: "E-42"},
		Otel:   config.Otel{ServiceName: "relay-north"},
	}

	res, err := relayResource(context.Background(), cfg)
	require.NoError(t, err)
	set := res.Set()

	name, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "relay-north", name.AsString())

	ver, ok := set.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", ver.AsString())

	event, ok := set.Value(attrEventID)
	require.True(t, ok)
	assert.Equal(t, "E-42", event.AsString())

	source, ok := set.Value(attrSourceURL)
	require.True(t, ok)
	assert.Equal(t, cfg.SourceURL(), source.AsString())
}

func TestRelayResource_WithoutSink(t *testing.T) {
	cfg := &config.Config{
		App:    config.App{Name: "results-relay", Version: "dev"},
		Source: config.Source{Host: "localhost", Port: 8080},
		Otel:   config.Otel{ServiceName: "results-relay"},
	}

	res, err := relayResource(context.Background(), cfg)
	require.NoError(t, err)

	_, ok := res.Set().Value(attrEventID)
	assert.False(t, ok)
	_, ok = res.Set().Value(attrSinkURL)
	assert.False(t, ok)
}
