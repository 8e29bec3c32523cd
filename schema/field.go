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
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tomoncle/querykit/types"
)

// FieldType is the closed set of validation field categories a storage type
// can map to.
type FieldType int

const (
	FieldAny FieldType = iota
	FieldString
	FieldInt
	FieldDecimal
	FieldBool
	FieldEnum
	FieldDate
	FieldDateTime
	FieldDuration
	FieldList
	FieldObject
	FieldDateRange
	FieldNested
)

// Validator is a named post-generation check attached to a field.
type Validator func(value any) error

// FieldConfig carries per-field extra constraints merged into the generated
// field.
type FieldConfig struct {
	MinLength *int
	MaxLength *int
	Min       *int64
	Max       *int64
}

// Field is one validation field: a type tag plus the constraints that apply
// to it. Constraint relevance follows the type; irrelevant ones are ignored.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool

	TrimWhitespace bool
	MinLength      int
	MaxLength      int // 0 means unbounded

	Min *int64
	Max *int64

	Precision int
	Scale     int

	EnumValues []string

	Elem   *Field  // list element
	Schema *Schema // nested schema
	List   bool    // nested to-many wraps as a list

	Validators []Validator
}

func (f *Field) applyConfig(config *FieldConfig) {
	if config == nil {
		return
	}
	if config.MinLength != nil {
		f.MinLength = *config.MinLength
	}
	if config.MaxLength != nil {
		f.MaxLength = *config.MaxLength
	}
	if config.Min != nil {
		f.Min = config.Min
	}
	if config.Max != nil {
		f.Max = config.Max
	}
}

// Validate checks one value against the field's type and constraints,
// returning the normalized value. Strings are trimmed when TrimWhitespace
// is set; date ranges come back bounds-normalized.
func (f *Field) Validate(value any) (any, error) {
	if value == nil || isNilPointer(value) {
		if f.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("schema: field %q is required", f.Name)
	}
	normalized, err := f.validateValue(value)
	if err != nil {
		return nil, err
	}
	for _, validator := range f.Validators {
		if err := validator(normalized); err != nil {
			return nil, fmt.Errorf("schema: field %q: %w", f.Name, err)
		}
	}
	return normalized, nil
}

func (f *Field) validateValue(value any) (any, error) {
	switch f.Type {
	case FieldAny:
		return value, nil
	case FieldString:
		return f.validateString(value)
	case FieldInt:
		return f.validateInt(value)
	case FieldDecimal:
		return f.validateDecimal(value)
	case FieldBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, f.typeError(value, "bool")
	case FieldEnum:
		return f.validateEnum(value)
	case FieldDate, FieldDateTime:
		return f.validateTime(value)
	case FieldDuration:
		return f.validateDuration(value)
	case FieldList:
		return f.validateList(value)
	case FieldObject:
		return f.validateObject(value)
	case FieldDateRange:
		return f.validateDateRange(value)
	case FieldNested:
		return f.validateNested(value)
	}
	return nil, fmt.Errorf("%w: field %q has unknown field type", ErrUnsupportedType, f.Name)
}

func (f *Field) validateString(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, f.typeError(value, "string")
	}
	if f.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	length := utf8.RuneCountInString(s)
	if f.MinLength > 0 && length < f.MinLength {
		return nil, fmt.Errorf("schema: field %q shorter than %d characters", f.Name, f.MinLength)
	}
	if f.MaxLength > 0 && length > f.MaxLength {
		return nil, fmt.Errorf("schema: field %q longer than %d characters", f.Name, f.MaxLength)
	}
	return s, nil
}

func (f *Field) validateInt(value any) (any, error) {
	n, ok := asInt64(value)
	if !ok {
		return nil, f.typeError(value, "integer")
	}
	if f.Min != nil && n < *f.Min {
		return nil, fmt.Errorf("schema: field %q below minimum %d", f.Name, *f.Min)
	}
	if f.Max != nil && n > *f.Max {
		return nil, fmt.Errorf("schema: field %q above maximum %d", f.Name, *f.Max)
	}
	return n, nil
}

func (f *Field) validateDecimal(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, f.typeError(value, "decimal")
		}
		return parsed, nil
	}
	if n, ok := asInt64(value); ok {
		return float64(n), nil
	}
	return nil, f.typeError(value, "decimal")
}

func (f *Field) validateEnum(value any) (any, error) {
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case types.BaseEnum:
		name = v.Name()
	default:
		return nil, f.typeError(value, "enum")
	}
	for _, candidate := range f.EnumValues {
		if candidate == name {
			return name, nil
		}
	}
	return nil, fmt.Errorf("schema: field %q value %q is not one of %v", f.Name, name, f.EnumValues)
}

func (f *Field) validateTime(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		return *v, nil
	case string:
		layouts := []string{time.RFC3339, "2006-01-02"}
		if f.Type == FieldDate {
			layouts = []string{"2006-01-02", time.RFC3339}
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed, nil
			}
		}
	}
	return nil, f.typeError(value, "timestamp")
}

func (f *Field) validateDuration(value any) (any, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, f.typeError(value, "duration")
		}
		return parsed, nil
	}
	if n, ok := asInt64(value); ok {
		return time.Duration(n), nil
	}
	return nil, f.typeError(value, "duration")
}

func (f *Field) validateList(value any) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, f.typeError(value, "list")
	}
	items := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := f.Elem.Validate(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (f *Field) validateObject(value any) (any, error) {
	switch v := value.(type) {
	case types.JsonObject:
		return v, nil
	case map[string]any:
		return types.JsonObject(v), nil
	}
	return nil, f.typeError(value, "object")
}

func (f *Field) validateDateRange(value any) (any, error) {
	var r DateRange
	switch v := value.(type) {
	case DateRange:
		r = v
	case *DateRange:
		r = *v
	default:
		return nil, f.typeError(value, "date range")
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.Normalize()
	return &r, nil
}

func (f *Field) validateNested(value any) (any, error) {
	if f.List {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice {
			return nil, f.typeError(value, "list of objects")
		}
		items := make([]map[string]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := f.validateNestedItem(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}
	return f.validateNestedItem(value)
}

func (f *Field) validateNestedItem(value any) (map[string]any, error) {
	switch v := value.(type) {
	case map[string]any:
		return f.Schema.Validate(v)
	default:
		return f.Schema.ValidateModel(v)
	}
}

func (f *Field) typeError(value any, expected string) error {
	return fmt.Errorf("schema: field %q expects %s, got %T", f.Name, expected, value)
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
