package pebblestore

import (
	"fmt"

	"github.com/rzbill/logstore/pkg/log"
)

// pebbleLogger routes Pebble's internal logging into the service logger.
type pebbleLogger struct {
	l log.Logger
}

func (p pebbleLogger) Infof(format string, args ...interface{}) {
	p.l.Debugf(format, args...)
}

func (p pebbleLogger) Errorf(format string, args ...interface{}) {
	p.l.Errorf(format, args...)
}

// Fatalf is only called by Pebble on unrecoverable invariant violations.
func (p pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.l.Error(msg, log.Str("severity", "fatal"))
	panic(msg)
}
