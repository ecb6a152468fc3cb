package event

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Sentinel errors.
var (
	ErrInvalidEvent  = errors.New("invalid event")
	ErrUnknownFormat = errors.New("unknown output format")
)

//go:embed event-schema.json
var schemaBytes []byte

// Schema returns the JSON schema of an event document.
func Schema() []byte {
	return schemaBytes
}

// Violation is one schema failure within a document.
type Violation struct {
	Field       string
	Description string
}

// Validate checks one JSON document against the event schema. It returns the
// violations found; a nil slice with a nil error means the document is valid.
func Validate(doc []byte) ([]Violation, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, Violation{Field: re.Field(), Description: re.Description()})
	}

	return violations, nil
}

// Check is Validate folded into a single error wrapping ErrInvalidEvent.
func Check(doc []byte) error {
	violations, err := Validate(doc)
	if err != nil {
		return err
	}

	if len(violations) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Field+": "+v.Description)
	}

	return fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(msgs, "; "))
}
