// Package log provides structured mesh event logging.
//
// Components emit typed Events (signal traffic, peer state changes,
// admission decisions, decode errors) through the Logger interface.
// Applications choose the sink: SlogAdapter for console output through
// log/slog, FileLogger for compact CBOR event files that Reader can
// replay and filter later, MultiLogger to fan out to several sinks, or
// NoopLogger to disable logging entirely.
//
// Logging must never disrupt the mesh: sinks swallow their own I/O
// errors and Log is safe to call from any goroutine.
package log
