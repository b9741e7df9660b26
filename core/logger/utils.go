package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventType names the kind of a log entry.
type EventType string

const (
	EventSessionStart EventType = "session_start"
	EventSpawn        EventType = "spawn"
	EventExit         EventType = "exit"
	EventSignal       EventType = "signal"
	EventStop         EventType = "stop"
	EventLaunchError  EventType = "launch_error"
	EventBuiltin      EventType = "builtin"
	EventShellExit    EventType = "shell_exit"
)

// Fields present on every log entry.
const (
	FieldTimestamp = "timestamp_micros"
	FieldSessionID = "session_id"
	FieldEvent     = "event"
)

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *structpb.Struct) error

// Logger captures job event logs for the shell.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(le *structpb.Struct) error {
			entry, err := protojson.Marshal(le)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// Discard creates a Logger that drops every entry.
func Discard() *Logger {
	return &Logger{
		Record: func(*structpb.Struct) error {
			return nil
		},
	}
}

func (l *Logger) recordEvent(sessionID string, now time.Time, event EventType, fields map[string]interface{}) error {
	raw := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		raw[k] = normalize(v)
	}
	raw[FieldTimestamp] = now.UnixNano() / int64(time.Microsecond)
	raw[FieldSessionID] = sessionID
	raw[FieldEvent] = string(event)

	le, err := structpb.NewStruct(raw)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	return l.Record(le)
}

// normalize converts the values structpb can't take directly.
func normalize(v interface{}) interface{} {
	switch tv := v.(type) {
	case []string:
		out := make([]interface{}, len(tv))
		for i, s := range tv {
			out[i] = s
		}
		return out
	case error:
		return tv.Error()
	case fmt.Stringer:
		return tv.String()
	default:
		return v
	}
}

// NewSession creates a logger with a fresh session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.NewString(), now: time.Now}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: "", now: time.Now}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
	now       func() time.Time
}

// SessionID returns the ID attached to every entry.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Record logs an event with the given fields. Fields may be strings,
// numbers, bools, string slices, errors or Stringers.
func (l *SessionLogger) Record(event EventType, fields map[string]interface{}) error {
	return l.recordEvent(l.sessionID, l.now(), event, fields)
}
