// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/telos/pkg/errors"
)

// typeManifest is the YAML shape of a context type declaration file.
type typeManifest struct {
	Types []typeDecl `yaml:"types"`
}

type typeDecl struct {
	Name     string            `yaml:"name"`
	Scope    string            `yaml:"scope"`
	Fields   map[string]string `yaml:"fields"`
	Required []string          `yaml:"required"`
}

// LoadTypesFile parses a YAML manifest of context type declarations.
func LoadTypesFile(path string) ([]ContextType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest typeManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]ContextType, 0, len(manifest.Types))
	for _, decl := range manifest.Types {
		ct, err := decl.toContextType()
		if err != nil {
			return nil, errors.AsError(err).WithContext("path", path)
		}
		out = append(out, ct)
	}
	return out, nil
}

// LoadTypesDir loads every *.yaml and *.yml manifest in a directory.
func LoadTypesDir(dir string) ([]ContextType, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []ContextType
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		types, err := LoadTypesFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, types...)
	}
	return out, nil
}

func (d typeDecl) toContextType() (ContextType, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return ContextType{}, errors.New(errors.CodeValidation, "type declaration missing name", nil)
	}
	scope := ScopeTurn
	switch strings.ToLower(strings.TrimSpace(d.Scope)) {
	case "", "turn":
	case "session", "persistent":
		scope = ScopeSession
	default:
		return ContextType{}, errors.Newf(errors.CodeValidation, "type %q: unknown scope %q", name, d.Scope)
	}
	fields := make(map[string]FieldKind, len(d.Fields))
	for field, kind := range d.Fields {
		fk, err := parseFieldKind(kind)
		if err != nil {
			return ContextType{}, errors.AsError(err).WithContext("type", name).WithContext("field", field)
		}
		fields[field] = fk
	}
	for _, req := range d.Required {
		if _, ok := fields[req]; !ok {
			return ContextType{}, errors.Newf(errors.CodeValidation, "type %q: required field %q not declared", name, req)
		}
	}
	return ContextType{
		Name:  TypeName(name),
		Scope: scope,
		Schema: Schema{
			Fields:   fields,
			Required: append([]string(nil), d.Required...),
		},
	}, nil
}

func parseFieldKind(kind string) (FieldKind, error) {
	switch FieldKind(strings.ToLower(strings.TrimSpace(kind))) {
	case FieldString:
		return FieldString, nil
	case FieldInt:
		return FieldInt, nil
	case FieldFloat:
		return FieldFloat, nil
	case FieldBool:
		return FieldBool, nil
	case FieldTime:
		return FieldTime, nil
	case FieldList:
		return FieldList, nil
	case FieldMap:
		return FieldMap, nil
	case FieldAny, "":
		return FieldAny, nil
	default:
		return "", errors.Newf(errors.CodeValidation, "unknown field kind %q", kind)
	}
}
