/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package schema

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/querykit/metadata"
)

// Schema is a generated validation model: an ordered set of fields whose
// types and constraints mirror the entity's storage metadata.
type Schema struct {
	Name   string
	Fields []*Field
	Config *Config

	entity *metadata.Entity
	byName map[string]*Field
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (*Field, bool) {
	field, ok := s.byName[name]
	return field, ok
}

func (s *Schema) add(field *Field) {
	if _, exists := s.byName[field.Name]; exists {
		for i, existing := range s.Fields {
			if existing.Name == field.Name {
				s.Fields[i] = field
				break
			}
		}
	} else {
		s.Fields = append(s.Fields, field)
	}
	s.byName[field.Name] = field
}

// Validate checks the input map field by field and returns the normalized
// values. All field errors are collected before returning. Unknown keys are
// rejected unless the schema config allows them.
func (s *Schema) Validate(data map[string]any) (map[string]any, error) {
	validated := make(map[string]any, len(s.Fields))
	var errs []error
	for _, field := range s.Fields {
		value, err := field.Validate(data[field.Name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		validated[field.Name] = value
	}
	for key := range data {
		if _, known := s.byName[key]; known {
			continue
		}
		if s.Config != nil && s.Config.AllowUnknown {
			validated[key] = data[key]
			continue
		}
		errs = append(errs, fmt.Errorf("schema: unknown field %q", key))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return validated, nil
}

// ValidateModel validates a model instance attribute by attribute, by name,
// and returns the normalized values.
func (s *Schema) ValidateModel(instance any) (map[string]any, error) {
	if s.entity == nil {
		return nil, fmt.Errorf("%w: schema %q is not bound to an entity", ErrUnsupportedType, s.Name)
	}
	value := reflect.ValueOf(instance)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil, fmt.Errorf("schema: nil instance for %q", s.Name)
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %q expects a struct instance, got %T", s.Name, instance)
	}
	data := make(map[string]any, len(s.Fields))
	for _, field := range s.Fields {
		goName := field.Name
		if attr, ok := s.entity.Attribute(field.Name); ok {
			goName = attr.GoName
		}
		structField := value.FieldByName(goName)
		if !structField.IsValid() {
			continue
		}
		data[field.Name] = structField.Interface()
	}
	return s.Validate(data)
}
