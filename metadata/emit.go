package metadata

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Emitter hands finished records to whatever indexes them.
type Emitter interface {
	Emit(rec *Record) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(rec *Record) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(rec *Record) error {
	return f(rec)
}

// ToStruct converts a record to a protobuf Struct.
func ToStruct(rec *Record) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(rec.Map())
	if err != nil {
		return nil, fmt.Errorf("converting record: %w", err)
	}
	return s, nil
}

// JSONLinesEmitter writes one protojson object per line. Extra fields are
// merged into every line, e.g. the AU and plugin the record came from.
type JSONLinesEmitter struct {
	mu    sync.Mutex
	w     *bufio.Writer
	Extra map[string]string
}

// NewJSONLinesEmitter creates an emitter writing to w. Call Flush when done.
func NewJSONLinesEmitter(w io.Writer) *JSONLinesEmitter {
	return &JSONLinesEmitter{w: bufio.NewWriter(w)}
}

var _ Emitter = (*JSONLinesEmitter)(nil)

// Emit implements Emitter.
func (e *JSONLinesEmitter) Emit(rec *Record) error {
	s, err := ToStruct(rec)
	if err != nil {
		return err
	}
	for k, v := range e.Extra {
		s.Fields[k] = structpb.NewStringValue(v)
	}
	line, err := protojson.MarshalOptions{}.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(line); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}

// Flush writes any buffered lines.
func (e *JSONLinesEmitter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w.Flush()
}
