package juxfix

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/lestrrat-go/libxml2"
	"github.com/lestrrat-go/libxml2/xsd"
)

// State is the terminal classification of one validated document.
type State int

const (
	NotWellFormed State = iota
	WellFormed
	SchemaInvalid
	SchemaValid
)

func (s State) String() string {
	switch s {
	case NotWellFormed:
		return "not-well-formed"
	case WellFormed:
		return "well-formed"
	case SchemaInvalid:
		return "schema-invalid"
	case SchemaValid:
		return "schema-valid"
	}
	return "unknown"
}

// Outcome is the validation result for one document. Exactly one State is
// assigned per document per run.
type Outcome struct {
	State  State
	Reason string
}

// OK reports whether the outcome counts as valid for the batch.
func (o Outcome) OK() bool {
	return o.State == WellFormed || o.State == SchemaValid
}

// Describe renders the outcome for failure reporting.
func (o Outcome) Describe() string {
	switch o.State {
	case NotWellFormed:
		return "Not well-formed: " + o.Reason
	case SchemaInvalid:
		return "Schema validation failed: " + o.Reason
	}
	return o.State.String()
}

// Schema is a compiled XSD, loaded once per batch run and reused for every
// document in that run.
type Schema struct {
	s *xsd.Schema
}

// LoadSchema compiles the XSD at path. Failure is a batch-setup error.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("juxfix: read schema: %w", err)
	}
	s, err := xsd.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("juxfix: compile schema %s: %w", path, err)
	}
	return &Schema{s: s}, nil
}

// Close releases the compiled schema. Safe on nil.
func (s *Schema) Close() {
	if s != nil && s.s != nil {
		s.s.Free()
		s.s = nil
	}
}

// Validate checks one document in two strict, short-circuiting phases:
// well-formedness first, then schema conformance when a schema is supplied.
// A parse failure yields NotWellFormed and the schema is never consulted.
// With no schema, a well-formed document is the final valid outcome.
func Validate(data []byte, schema *Schema) Outcome {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return Outcome{State: NotWellFormed, Reason: err.Error()}
	}
	if tree.Root() == nil {
		return Outcome{State: NotWellFormed, Reason: "document has no root element"}
	}
	if schema == nil {
		return Outcome{State: WellFormed}
	}

	doc, err := libxml2.Parse(data)
	if err != nil {
		return Outcome{State: NotWellFormed, Reason: err.Error()}
	}
	defer doc.Free()

	if err := schema.s.Validate(doc); err != nil {
		return Outcome{State: SchemaInvalid, Reason: schemaReason(err)}
	}
	return Outcome{State: SchemaValid}
}

func schemaReason(err error) string {
	var verr xsd.SchemaValidationError
	if errors.As(err, &verr) {
		msgs := make([]string, 0, len(verr.Errors()))
		for _, e := range verr.Errors() {
			msgs = append(msgs, e.Error())
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}
