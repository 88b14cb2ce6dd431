// Package telemetry provides observability instrumentation for roster.
//
// The package integrates structured logging (zerolog), tracing
// (OpenTelemetry), metrics (Prometheus), and change events into a single
// Telemetry value that the CLI builds once and hands to the store layer.
//
// # Usage
//
// Initialize telemetry at startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	stop := tel.Metrics.StartMetricsServer(errc)
//	defer stop(context.Background())
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("inbox")
//	logger.WithPath(path).Info("import finished")
//
// Log levels: trace, debug, info, warn, error
//
// # Store Operations
//
// Each store call is wrapped by StartOperation and End, which open a span
// named "store.<operation>", time the call, and count it:
//
//	op := tel.StartOperation(ctx, "insert", telemetry.AttrRecordID.String(id))
//	err := next.Insert(op.Ctx, rec)
//	op.End(err, kind)
//
// # Metrics
//
// Metrics live on a private registry under the configured namespace:
//
//   - store_operations_total{operation,status}
//   - store_operation_duration_seconds{operation}
//   - store_errors_total{kind}
//   - records
//
// # Events
//
// Subscribers receive record.inserted, record.updated, record.deleted,
// transfer.imported, transfer.exported, and error events synchronously:
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Println(e.Type, e.RecordID)
//	}, telemetry.FilterByType(telemetry.EventTypeRecordInserted))
package telemetry
