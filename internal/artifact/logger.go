package artifact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redcell-ai/redcell/internal/types"
)

// EventGateBlocked is the event name logged when a gate denies a stage.
const EventGateBlocked = "gate_blocked"

// Logger appends artifacts to a per-run JSON Lines file.
//
// One logger owns the file for one run id. Writes are flushed as they
// happen; a crash after Write returns does not lose the record, a crash
// mid-write may leave a partial final line. Concurrent writers for the
// same run id are not supported.
type Logger struct {
	dir    string
	runID  types.ID
	path   string
	file   *os.File
	closed bool
	log    *slog.Logger
}

// Open creates the run directory if needed and opens the run's log file
// for appending. A fresh run id is generated when runID is zero.
func Open(dir string, runID types.ID) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.WrapError(types.ARTIFACT_WRITE_FAILED, "failed to create run directory", err)
	}
	if runID.IsZero() {
		runID = types.NewID()
	}

	path := filepath.Join(dir, runID.String()+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, types.WrapError(types.ARTIFACT_WRITE_FAILED, "failed to open run log", err)
	}

	return &Logger{
		dir:   dir,
		runID: runID,
		path:  path,
		file:  file,
		log:   slog.Default(),
	}, nil
}

// WithLogger sets the logger used for diagnostics.
func (l *Logger) WithLogger(log *slog.Logger) *Logger {
	l.log = log
	return l
}

// RunID returns the run id this logger owns.
func (l *Logger) RunID() types.ID {
	return l.runID
}

// Path returns the path of the run's log file.
func (l *Logger) Path() string {
	return l.path
}

// Write serializes record to one JSON line and appends it.
func (l *Logger) Write(rec any) error {
	if l.closed {
		return types.NewError(types.ARTIFACT_WRITE_FAILED, "logger is closed")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return types.WrapError(types.ARTIFACT_WRITE_FAILED, "failed to marshal record", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return types.WrapError(types.ARTIFACT_WRITE_FAILED, "failed to append record", err)
	}
	return nil
}

// WriteArtifact appends one artifact in its canonical serialization.
func (l *Logger) WriteArtifact(a *Artifact) error {
	return l.Write(a)
}

// WriteStage creates, logs, and returns a stage artifact in one call.
func (l *Logger) WriteStage(stage string, input, output map[string]any, success bool, errMsg string) (*Artifact, error) {
	a := New(l.runID, stage, input, output, success, errMsg)
	if err := l.WriteArtifact(a); err != nil {
		return nil, err
	}
	return a, nil
}

// WriteEvent appends a special event line that is not a full artifact,
// e.g. the gate_blocked marker for a skipped stage.
func (l *Logger) WriteEvent(event, stage string) error {
	return l.Write(map[string]any{
		"event":     event,
		"stage":     stage,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Close releases the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// Load reads all artifacts of a run back from its log file. Malformed
// lines and non-artifact event lines are skipped; malformed ones are
// reported through the default slog logger and reading continues.
// A missing log file yields an empty slice.
func Load(dir string, runID types.ID) ([]*Artifact, error) {
	return LoadWith(dir, runID, slog.Default())
}

// LoadWith is Load with an explicit diagnostics logger.
func LoadWith(dir string, runID types.ID, log *slog.Logger) ([]*Artifact, error) {
	path := filepath.Join(dir, runID.String()+".jsonl")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.WrapError(types.ARTIFACT_READ_FAILED, "failed to open run log", err)
	}
	defer file.Close()

	var artifacts []*Artifact
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		// Event lines (gate_blocked and friends) are part of the trace
		// but are not artifacts.
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			log.Warn("skipping malformed run log line",
				"path", path,
				"line", lineNum,
				"error", err,
			)
			continue
		}
		if _, isEvent := probe["event"]; isEvent {
			continue
		}

		var a Artifact
		if err := json.Unmarshal(line, &a); err != nil {
			log.Warn("skipping malformed artifact record",
				"path", path,
				"line", lineNum,
				"error", err,
			)
			continue
		}
		artifacts = append(artifacts, &a)
	}

	if err := scanner.Err(); err != nil {
		return artifacts, types.WrapError(types.ARTIFACT_READ_FAILED, "failed to scan run log", err)
	}
	return artifacts, nil
}

// Event is one non-artifact trace line, e.g. a gate_blocked marker.
type Event struct {
	Event     string `json:"event"`
	Stage     string `json:"stage"`
	Timestamp string `json:"timestamp"`
}

// LoadEvents reads back the event lines of a run, skipping artifacts and
// malformed lines.
func LoadEvents(dir string, runID types.ID) ([]Event, error) {
	path := filepath.Join(dir, runID.String()+".jsonl")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.WrapError(types.ARTIFACT_READ_FAILED, "failed to open run log", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil || ev.Event == "" {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, types.WrapError(types.ARTIFACT_READ_FAILED, "failed to scan run log", err)
	}
	return events, nil
}

// ListRuns returns the run ids that have a log file in dir, in directory
// order.
func ListRuns(dir string) ([]types.ID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.WrapError(types.ARTIFACT_READ_FAILED, fmt.Sprintf("failed to read run directory %s", dir), err)
	}

	var runs []types.ID
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".jsonl" {
			continue
		}
		runs = append(runs, types.ID(name[:len(name)-len(".jsonl")]))
	}
	return runs, nil
}
