package log

import (
	"time"

	"github.com/rs/zerolog"
)

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindInt64
	kindBool
	kindDuration
	kindError
	kindAny
)

// Field is a typed key/value attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
	kind  fieldKind
}

func Str(key, value string) Field { return Field{Key: key, Value: value, kind: kindString} }

func Int(key string, value int) Field { return Field{Key: key, Value: value, kind: kindInt} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value, kind: kindInt64} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value, kind: kindBool} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value, kind: kindDuration}
}

// Err attaches err under the "error" key. A nil error yields an empty string.
func Err(err error) Field { return Field{Key: ErrorKey, Value: err, kind: kindError} }

func Any(key string, value interface{}) Field { return Field{Key: key, Value: value, kind: kindAny} }

// Component tags the entry with the emitting subsystem.
func Component(name string) Field { return Str(ComponentKey, name) }

// Operation tags the entry with the storage operation being executed.
func Operation(name string) Field { return Str(OperationKey, name) }

func (f Field) apply(ev *zerolog.Event) {
	switch f.kind {
	case kindString:
		ev.Str(f.Key, f.Value.(string))
	case kindInt:
		ev.Int(f.Key, f.Value.(int))
	case kindInt64:
		ev.Int64(f.Key, f.Value.(int64))
	case kindBool:
		ev.Bool(f.Key, f.Value.(bool))
	case kindDuration:
		ev.Dur(f.Key, f.Value.(time.Duration))
	case kindError:
		if err, _ := f.Value.(error); err != nil {
			ev.Str(f.Key, err.Error())
		}
	default:
		ev.Interface(f.Key, f.Value)
	}
}

func (f Field) applyContext(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.Key, f.Value.(string))
	case kindInt:
		return c.Int(f.Key, f.Value.(int))
	case kindInt64:
		return c.Int64(f.Key, f.Value.(int64))
	case kindBool:
		return c.Bool(f.Key, f.Value.(bool))
	case kindDuration:
		return c.Dur(f.Key, f.Value.(time.Duration))
	case kindError:
		if err, _ := f.Value.(error); err != nil {
			return c.Str(f.Key, err.Error())
		}
		return c
	default:
		return c.Interface(f.Key, f.Value)
	}
}
