// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package form turns submitted text into entity writes.

A [Schema] describes the fields of one entity form and how their text is
coerced into a record. A [Controller] runs one form instance through
Editing, Submitting and then Succeeded or Failed, refetching the owning list
after every successful write.
*/
package form

import (
	"strings"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/validate"
	"github.com/taibuivan/mknursery/pkg/convert"
)

// Kind decides how a field's text is coerced.
type Kind int

const (
	// Text is stored as typed.
	Text Kind = iota
	// Integer falls back to Fallback when unparsable and is clamped to [Min, Max].
	Integer
	// Decimal is stored as null when empty or unparsable.
	Decimal
	// Asset holds a public address; empty means null.
	Asset
)

// Field is one input of a form.
//
// Dotted names such as "business_hours.saturday" build nested objects.
type Field struct {
	Name      string
	Label     string
	Kind      Kind
	Required  bool
	Multiline bool

	// Integer bounds. Max is ignored unless it is greater than Min.
	Fallback int
	Min      int
	Max      int
}

// UploadTarget names the asset field files are attached to and the key prefix they get.
type UploadTarget struct {
	Field  string
	Prefix string
}

// Schema describes the form of one entity.
type Schema struct {
	// Resource names the entity in messages and log events, e.g. "Plant".
	Resource string
	Fields   []Field
	Upload   *UploadTarget
}

// Field looks up a field by name.
func (schema Schema) Field(name string) (Field, bool) {
	for _, field := range schema.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Names lists the submitted field names in order.
func (schema Schema) Names() []string {
	names := make([]string, len(schema.Fields))
	for i, field := range schema.Fields {
		names[i] = field.Name
	}
	return names
}

/*
Payload validates required fields and builds the record to write.

Validation is purely local, so a missing field never costs a network call.
Numbers never fail: unparsable integers take their fallback and unparsable
decimals become null.
*/
func (schema Schema) Payload(values map[string]string) (backend.Record, error) {
	validator := &validate.Validator{}
	for _, field := range schema.Fields {
		if field.Required {
			validator.Required(field.Name, values[field.Name])
		}
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	record := backend.Record{}
	for _, field := range schema.Fields {
		put(record, field.Name, field.coerce(values[field.Name]))
	}
	return record, nil
}

func (field Field) coerce(raw string) any {
	switch field.Kind {
	case Integer:
		value := convert.ToIntD(strings.TrimSpace(raw), field.Fallback)
		if value < field.Min {
			value = field.Min
		}
		if field.Max > field.Min && value > field.Max {
			value = field.Max
		}
		return value

	case Decimal:
		if value := convert.ToFloat64Ptr(raw); value != nil {
			return *value
		}
		return nil

	case Asset:
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		return strings.TrimSpace(raw)

	default:
		return raw
	}
}

// put stores value under a possibly dotted name.
func put(record backend.Record, name string, value any) {
	head, rest, nested := strings.Cut(name, ".")
	if !nested {
		record[name] = value
		return
	}

	child, ok := record[head].(backend.Record)
	if !ok {
		child = backend.Record{}
		record[head] = child
	}
	put(child, rest, value)
}
