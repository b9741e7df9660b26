package logger

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *structpb.Struct)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var logEntry structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

func stringField(le *structpb.Struct, name string) string {
	return le.GetFields()[name].GetStringValue()
}

func intField(le *structpb.Struct, name string) int {
	return int(le.GetFields()[name].GetNumberValue())
}

func boolField(le *structpb.Struct, name string) bool {
	return le.GetFields()[name].GetBoolValue()
}

func commandName(le *structpb.Struct) string {
	values := le.GetFields()["argv"].GetListValue().GetValues()
	if len(values) == 0 {
		return ""
	}
	return values[0].GetStringValue()
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		LaunchErrors: NewPathCounter("command", "site"),
	}
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Sessions     int          `json:"sessions"`
	Spawn        SpawnReport  `json:"spawn_report"`
	Exit         ExitReport   `json:"exit_report"`
	Stops        int          `json:"stops"`
	Builtins     StrCounter   `json:"builtins"`
	LaunchErrors *PathCounter `json:"launch_errors"`
}

func (r *Report) Update(le *structpb.Struct) {
	r.LogEntries++

	switch event := EventType(stringField(le, FieldEvent)); event {
	case EventSessionStart:
		r.Sessions++
	case EventSpawn:
		r.Spawn.update(le)
	case EventExit, EventSignal:
		r.Exit.update(event, le)
	case EventStop:
		r.Stops++
	case EventBuiltin:
		r.Builtins.Increment(commandName(le))
	case EventLaunchError:
		r.LaunchErrors.Increment(commandName(le), stringField(le, "site"))
	case EventShellExit:
		// Ignore
	default:
		r.InvalidEntries.Increment(string(event))
	}
}

type SpawnReport struct {
	CommandNames StrCounter `json:"command_names"`
	Background   int        `json:"background"`
	Foreground   int        `json:"foreground"`
}

func (r *SpawnReport) update(le *structpb.Struct) {
	r.CommandNames.Increment(commandName(le))
	if boolField(le, "background") {
		r.Background++
	} else {
		r.Foreground++
	}
}

type ExitReport struct {
	// Exit statuses and their counts.
	Statuses StrCounter `json:"exit_statuses"`
	// Terminating signals and their counts.
	Signals StrCounter `json:"signals"`
}

func (r *ExitReport) update(event EventType, le *structpb.Struct) {
	if event == EventSignal {
		r.Signals.Increment(strconv.Itoa(intField(le, "signal")))
		return
	}
	r.Statuses.Increment(strconv.Itoa(intField(le, "code")))
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of strings seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
