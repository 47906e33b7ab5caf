package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/suderio/scopedsl/internal/action"
)

// RecordType tags each line of a report.
type RecordType string

const (
	RecordActor   RecordType = "actor"
	RecordSummary RecordType = "summary"
)

// Record is one line of a sweep report.
type Record interface {
	Type() RecordType
}

// Actor holds the discovery results for one actor.
type Actor struct {
	ActorID string          `json:"actorId"`
	Results []action.Result `json:"results"`
}

func (Actor) Type() RecordType { return RecordActor }

// Summary closes a sweep.
type Summary struct {
	Actors     int   `json:"actors"`
	Candidates int   `json:"candidates"`
	Skipped    int   `json:"skipped"`
	ElapsedMS  int64 `json:"elapsedMs"`
}

func (Summary) Type() RecordType { return RecordSummary }

type wrapper struct {
	Type RecordType      `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Writer appends records to a JSONL file.
type Writer struct {
	file *os.File
}

// Create opens path for appending, creating it and its directory as needed.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	return &Writer{file: file}, nil
}

// Append writes one record as a single line.
func (w *Writer) Append(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	line, err := json.Marshal(wrapper{Type: r.Type(), Data: data})
	if err != nil {
		return err
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Read decodes every record of the report at path.
func Read(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n := 1; scanner.Scan(); n++ {
		var w wrapper
		if err := json.Unmarshal(scanner.Bytes(), &w); err != nil {
			return nil, oops.In("report").Code("decode_failed").With("line", n).Wrapf(err, "failed to decode record")
		}

		var rec Record
		switch w.Type {
		case RecordActor:
			rec = &Actor{}
		case RecordSummary:
			rec = &Summary{}
		default:
			return nil, oops.In("report").Code("unknown_record").With("line", n).Errorf("unknown record type %q", w.Type)
		}
		if err := json.Unmarshal(w.Data, rec); err != nil {
			return nil, oops.In("report").Code("decode_failed").With("line", n).Wrapf(err, "failed to decode %s record", w.Type)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
