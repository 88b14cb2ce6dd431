package telemetry_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/roster/roster/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Output = "stdout"
	cfg.Logging.Level = "error"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())
	fmt.Println(telemetry.FromTelemetryContext(ctx) == tel)

	// Output: true
}

// Example_eventFiltering demonstrates subscribing to a subset of events.
func Example_eventFiltering() {
	events := telemetry.NewEventPublisher()
	events.Subscribe(func(e telemetry.Event) {
		fmt.Println(e.Type, e.RecordID)
	}, telemetry.FilterByType(telemetry.EventTypeRecordDeleted))

	events.PublishInserted("example", "1")
	events.PublishDeleted("example", "1")

	// Output: record.deleted 1
}

// Example_operationMetrics demonstrates recording store operations.
func Example_operationMetrics() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, err := telemetry.NewTelemetryWithLogger(cfg, telemetry.Nop())
	if err != nil {
		panic(err)
	}

	op := tel.StartOperation(context.Background(), "insert")
	op.End(nil, "")

	op = tel.StartOperation(context.Background(), "insert")
	op.End(errors.New("boom"), "duplicate_key")

	families, _ := tel.Metrics.Registry().Gather()
	for _, mf := range families {
		fmt.Println(mf.GetName())
	}

	// Output:
	// roster_records
	// roster_store_errors_total
	// roster_store_operation_duration_seconds
	// roster_store_operations_total
}
