// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
)

func TestInitStdout(t *testing.T) {
	shutdown, err := Init("telos-test", "0.0.1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	if _, err := InitWithConfig("telos-test", "0.0.1", Config{Exporter: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInitOTLPRequiresEndpoint(t *testing.T) {
	if _, err := InitWithConfig("telos-test", "0.0.1", Config{Exporter: "otlp"}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestConfigureSlogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("info should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestRunMetricsEmitter(t *testing.T) {
	m, err := NewRunMetrics()
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	emitter := m.Emitter()
	ctx := context.Background()
	emitter.Emit(ctx, core.NewEvent(core.EventStepSucceeded, "run-1", "fetch-weather", "step-1", nil))
	emitter.Emit(ctx, core.NewEvent(core.EventRunCompleted, "run-1", "", "", nil))
	m.RecordResolutionFailure(ctx, errors.New(errors.CodeCyclic, "loop", nil))
	m.RecordStoreWrite(ctx, "fetch-weather", 1)
}

func TestRunMetricsNilSafe(t *testing.T) {
	var m *RunMetrics
	m.RecordResolutionFailure(context.Background(), errors.New(errors.CodeStalled, "stuck", nil))
	m.RecordStoreWrite(context.Background(), "x", 1)
	m.Emitter().Emit(context.Background(), core.Event{Type: core.EventStepFailed})
}
