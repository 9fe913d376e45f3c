// Package logging builds the daemon's zap logger.
//
// The logger adds a Trace level below Debug, writes JSON or console output
// to stdout and optionally to a rotated file, bridges to OpenTelemetry
// logs, redacts secret-looking fields in the encoder, and samples repeated
// entries below Error. Errors are never sampled.
//
// Library packages take a plain *zap.Logger. The Logger wrapper adds
// context-aware methods that attach trace_id, span_id, session.id, user.id
// and request.id from the context:
//
//	ctx = logging.WithSessionID(ctx, sessionID)
//	logger.Info(ctx, "session started", zap.String("topic", topic))
//
// Use Underlying to hand the zap logger to a library package.
package logging
