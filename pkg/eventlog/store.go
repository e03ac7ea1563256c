package eventlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "replayer://eventlog.schema.json"

const schemaDocument = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["type", "timestamp"],
    "properties": {
      "type": {"enum": ["move", "click", "key"]},
      "timestamp": {"type": "number", "minimum": 0},
      "x": {"type": "number"},
      "y": {"type": "number"},
      "button": {"type": "string"},
      "key": {"type": "string", "minLength": 1},
      "pressed": {"type": "boolean"}
    },
    "allOf": [
      {"if": {"properties": {"type": {"const": "move"}}}, "then": {"required": ["x", "y"]}},
      {"if": {"properties": {"type": {"const": "click"}}}, "then": {"required": ["x", "y", "button", "pressed"]}},
      {"if": {"properties": {"type": {"const": "key"}}}, "then": {"required": ["key", "pressed"]}}
    ]
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaDocument)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// record is the persisted shape of a single event.
type record struct {
	Type      string   `json:"type"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Button    string   `json:"button,omitempty"`
	Key       string   `json:"key,omitempty"`
	Pressed   *bool    `json:"pressed,omitempty"`
	Timestamp float64  `json:"timestamp"`
}

func toRecord(e Event) record {
	rec := record{Type: string(e.Kind), Timestamp: e.T}
	if e.HasCoords() {
		x, y := float64(e.X), float64(e.Y)
		rec.X, rec.Y = &x, &y
	}
	switch e.Kind {
	case KindClick:
		pressed := e.Pressed
		rec.Button = string(e.Button)
		rec.Pressed = &pressed
	case KindKey:
		pressed := e.Pressed
		rec.Key = e.Key.Name
		rec.Pressed = &pressed
	}
	return rec
}

func fromRecord(rec record) (Event, error) {
	e := Event{Kind: Kind(rec.Type), T: rec.Timestamp}
	if rec.X != nil {
		e.X = int(math.Round(*rec.X))
	}
	if rec.Y != nil {
		e.Y = int(math.Round(*rec.Y))
	}
	if rec.Pressed != nil {
		e.Pressed = *rec.Pressed
	}
	switch e.Kind {
	case KindClick:
		e.Button = ParseButton(rec.Button)
	case KindKey:
		key, err := ParseKey(rec.Key)
		if err != nil {
			return Event{}, err
		}
		e.Key = key
	}
	return e, nil
}

// Marshal encodes the log in its persisted JSON form.
func Marshal(l *Log) ([]byte, error) {
	records := make([]record, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		records = append(records, toRecord(l.At(i)))
	}
	return json.Marshal(records)
}

// Unmarshal validates data against the event log schema and decodes it.
func Unmarshal(data []byte) (*Log, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode event log: %w", err)
	}
	if err := sch.Validate(payload); err != nil {
		return nil, fmt.Errorf("validate event log: %w", err)
	}

	var records []record
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode event log: %w", err)
	}
	events := make([]Event, 0, len(records))
	for i, rec := range records {
		e, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, e)
	}
	return New(events)
}

// Save overwrites path with the log. The file is replaced atomically.
func Save(l *Log, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("pattern path must not be empty")
	}
	data, err := Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal event log: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure pattern directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp pattern: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write pattern: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close pattern: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace pattern: %w", err)
	}
	return nil
}

// Load reads and validates the log stored at path.
func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern: %w", err)
	}
	return Unmarshal(data)
}

// Exists reports whether a pattern file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
