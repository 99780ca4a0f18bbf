// Package accumulator defines the per-run result map threaded through every
// unit of work of a pipeline.
//
// An Accumulator is a value: each step receives a decoded snapshot, adds its
// own entry, and hands a new encoded snapshot to the next step. Nothing is
// shared in memory between steps, so two steps may run in different worker
// goroutines (or processes) without coordination.
package accumulator

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Well-known output fields.
const (
	FieldError         = "error"
	FieldText          = "text"
	FieldDisplayedText = "displayedText"
	FieldImageURL      = "image_url"
	FieldAudioURL      = "audio_url"
)

// Output is one node's result record, e.g. {text: "..."} or {error: "..."}.
type Output map[string]any

// Accumulator maps node ids to their output records.
type Accumulator map[string]Output

// New returns an empty accumulator.
func New() Accumulator {
	return Accumulator{}
}

// Get returns the output recorded for a node.
func (a Accumulator) Get(id string) (Output, bool) {
	out, ok := a[id]
	return out, ok
}

// With returns a copy of the accumulator that also holds out under id. The
// receiver is left untouched, which keeps a redelivered step working on the
// exact snapshot it was first handed.
func (a Accumulator) With(id string, out Output) Accumulator {
	next := a.Clone()
	next[id] = out.Clone()
	return next
}

// Clone copies the accumulator and each output record.
func (a Accumulator) Clone() Accumulator {
	next := make(Accumulator, len(a)+1)
	for id, out := range a {
		next[id] = out.Clone()
	}
	return next
}

// Clone copies the record's top-level fields.
func (o Output) Clone() Output {
	if o == nil {
		return nil
	}
	next := make(Output, len(o))
	for k, v := range o {
		next[k] = v
	}
	return next
}

// Err reports the error message of an {error: ...} record.
func (o Output) Err() (string, bool) {
	v, ok := o[FieldError]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// String returns a field as a string, or "" when absent.
func (o Output) String(field string) string {
	v, ok := o[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ErrorOutput builds an {error: msg} record.
func ErrorOutput(msg string) Output {
	return Output{FieldError: msg}
}

// Encode serializes the accumulator for hand-off to the next step.
func Encode(a Accumulator) ([]byte, error) {
	if a == nil {
		a = New()
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode accumulator: %w", err)
	}
	return b, nil
}

// Decode restores an accumulator produced by Encode.
func Decode(b []byte) (Accumulator, error) {
	acc := New()
	if len(b) == 0 {
		return acc, nil
	}
	if err := json.Unmarshal(b, &acc); err != nil {
		return nil, fmt.Errorf("failed to decode accumulator: %w", err)
	}
	return acc, nil
}
