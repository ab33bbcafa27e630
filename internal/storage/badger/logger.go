package badgerstore

import (
	"strings"

	"github.com/rzbill/logstore/pkg/log"
)

// badgerLogger adapts the service logger to badger.Logger. Badger terminates
// most lines with a newline which the structured sink does not want.
type badgerLogger struct {
	l log.Logger
}

func trim(format string) string { return strings.TrimSuffix(format, "\n") }

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Errorf(trim(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warnf(trim(format), args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debugf(trim(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debugf(trim(format), args...)
}
