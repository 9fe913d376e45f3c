// Package telemetry wires OpenTelemetry tracing and metrics for the tutor
// daemon.
//
// When enabled, spans and metrics are exported over OTLP (gRPC by default,
// "http/protobuf" optionally) and the providers are installed globally so
// packages can keep calling otel.Tracer and otel.Meter. When disabled, the
// global no-op providers stay in place.
//
// Provider setup failures never stop the daemon: the instance is marked
// degraded and the no-op providers remain.
//
//	tel, err := telemetry.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Prometheus collectors (the classifier statistics, vector store latency)
// register with RegisterCollectors and are served by the HTTP /metrics
// endpoint.
package telemetry
