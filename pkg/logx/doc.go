// Package logx wraps zerolog behind a small, hot-reloadable logging
// service. Loggers obtained from a Service stay live across Apply()
// calls, so config hot-reload can change levels and sinks without
// re-plumbing loggers through the app.
package logx
