// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - an optional rotating file sink backed by lumberjack,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Info, InfoKV, ErrorKV, etc.).
//
// There are no Fatal or Panic helpers: commands return errors and the CLI
// maps them to exit codes.
package logger
