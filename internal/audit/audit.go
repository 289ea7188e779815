package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is one activity entry. CBOR keys are small integers so append-only
// logs stay compact.
type Record struct {
	ID        string            `json:"id" cbor:"1,keyasint"`
	Timestamp time.Time         `json:"timestamp" cbor:"2,keyasint"`
	UserID    string            `json:"user_id,omitempty" cbor:"3,keyasint,omitempty"`
	Email     string            `json:"email,omitempty" cbor:"4,keyasint,omitempty"`
	Category  string            `json:"category" cbor:"5,keyasint"`
	Action    string            `json:"action" cbor:"6,keyasint"`
	Success   bool              `json:"success" cbor:"7,keyasint"`
	Metadata  map[string]string `json:"metadata,omitempty" cbor:"9,keyasint,omitempty"`
}

// Sink consumes records.
type Sink interface {
	Write(ctx context.Context, r Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Record) error

func (f SinkFunc) Write(ctx context.Context, r Record) error { return f(ctx, r) }

type encoder interface {
	Encode(v any) error
}

// StreamSink serializes records onto a writer, one encoded item per record.
type StreamSink struct {
	mu  sync.Mutex
	enc encoder
}

var cborMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// NewJSONSink writes newline-delimited JSON.
func NewJSONSink(w io.Writer) *StreamSink {
	return &StreamSink{enc: json.NewEncoder(w)}
}

// NewCBORSink writes a sequence of canonical CBOR items.
func NewCBORSink(w io.Writer) *StreamSink {
	return &StreamSink{enc: cborMode.NewEncoder(w)}
}

func (s *StreamSink) Write(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(r)
}

// ReadCBOR decodes every record written by a CBOR sink. Records decoded before
// an error are returned with it.
func ReadCBOR(r io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(r)
	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
