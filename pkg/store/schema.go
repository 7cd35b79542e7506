// SPDX-License-Identifier: Apache-2.0
// Package store implements the typed context store shared by the orchestrators.
package store

import (
	"fmt"
	"time"

	"github.com/jllopis/telos/pkg/errors"
)

// TypeName identifies a context type. Identifiers are globally unique
// across a store and the registry that feeds it.
type TypeName string

// FieldKind is the declared type of a schema field.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldInt    FieldKind = "int"
	FieldFloat  FieldKind = "float"
	FieldBool   FieldKind = "bool"
	FieldTime   FieldKind = "time"
	FieldList   FieldKind = "list"
	FieldMap    FieldKind = "map"
	FieldAny    FieldKind = "any"
)

// Schema declares the field set of a context type. Payloads are validated
// against it on every write.
type Schema struct {
	Fields   map[string]FieldKind
	Required []string
}

// ContextType declares a context type: its identifier, the scope its
// instances default to, and the payload schema.
type ContextType struct {
	Name   TypeName
	Scope  Scope
	Schema Schema
}

// Validate checks a payload against the schema. Unknown fields and
// missing required fields are rejected, as are kind mismatches.
func (s Schema) Validate(payload map[string]any) error {
	for _, name := range s.Required {
		if _, ok := payload[name]; !ok {
			return errors.Newf(errors.CodeValidation, "missing required field %q", name)
		}
	}
	for name, value := range payload {
		kind, ok := s.Fields[name]
		if !ok {
			return errors.Newf(errors.CodeValidation, "unknown field %q", name)
		}
		if err := checkKind(name, kind, value); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(name string, kind FieldKind, value any) error {
	if value == nil {
		return nil
	}
	ok := false
	switch kind {
	case FieldAny:
		ok = true
	case FieldString:
		_, ok = value.(string)
	case FieldBool:
		_, ok = value.(bool)
	case FieldInt:
		switch value.(type) {
		case int, int32, int64:
			ok = true
		}
	case FieldFloat:
		switch value.(type) {
		case float32, float64, int, int64:
			ok = true
		}
	case FieldTime:
		switch v := value.(type) {
		case time.Time:
			ok = true
		case string:
			_, err := time.Parse(time.RFC3339, v)
			ok = err == nil
		}
	case FieldList:
		switch value.(type) {
		case []any, []string:
			ok = true
		}
	case FieldMap:
		_, ok = value.(map[string]any)
	default:
		return errors.Newf(errors.CodeValidation, "field %q has unknown kind %q", name, kind)
	}
	if !ok {
		return errors.New(errors.CodeValidation,
			fmt.Sprintf("field %q: want %s, got %T", name, kind, value), nil)
	}
	return nil
}
