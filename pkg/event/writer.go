package event

import (
	"encoding/json"
	"fmt"
	"io"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatBulk = "bulk"
)

// Writer emits events one at a time.
type Writer interface {
	Write(e Event) error
}

// JSONWriter writes one event per line.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter writes to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return &JSONWriter{enc: enc}
}

// Write implements Writer.
func (w *JSONWriter) Write(e Event) error {
	err := w.enc.Encode(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID(), err)
	}

	return nil
}

type bulkAction struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// BulkWriter writes an Elasticsearch _bulk body: an index action line
// followed by the document, per event.
type BulkWriter struct {
	enc *json.Encoder
}

// NewBulkWriter writes to w.
func NewBulkWriter(w io.Writer) *BulkWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return &BulkWriter{enc: enc}
}

// Write implements Writer.
func (w *BulkWriter) Write(e Event) error {
	err := w.enc.Encode(bulkAction{Index: bulkTarget{Index: e.Index(), ID: e.ID()}})
	if err != nil {
		return fmt.Errorf("encode bulk action %s: %w", e.ID(), err)
	}

	err = w.enc.Encode(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.ID(), err)
	}

	return nil
}

// NewWriter returns the writer for format.
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONWriter(w), nil
	case FormatBulk:
		return NewBulkWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
