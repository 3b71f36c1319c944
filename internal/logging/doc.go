// Package logging provides structured logging for fieldmem.
//
// It wraps Zap with:
//   - a custom Trace level (-2, below Debug) for per-candidate scoring
//     detail,
//   - automatic context field injection (trace correlation, query id),
//   - an optional OpenTelemetry output core alongside stdout.
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil) // nil disables OTEL output
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithQueryID(ctx, "q_01H...")
//	logger.Info(ctx, "query completed", zap.Int("results", n))
package logging
