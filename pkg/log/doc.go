// Package log provides logstore's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. It is backed by zerolog, writing either
// JSON lines or a human readable console format.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.FormatText),
//	    log.WithWriter(os.Stderr),
//	)
//	l = l.With(log.Component("engine"), log.Str("channel", "analytics"))
//	l.Info("drained", log.Int("pending", 0))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config. NewNop returns
// a logger that discards everything and is what tests and library defaults use.
//
// # Interop
//
// Storage backends adapt this facade to the printf-style logger interfaces
// that Pebble and Badger expect; see the Infof/Warnf/Errorf methods.
package log
