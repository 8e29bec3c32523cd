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

	"github.com/tomoncle/querykit/metadata"
)

var (
	// ErrUnsupportedType marks a storage type or field spec shape the
	// generator cannot map.
	ErrUnsupportedType = errors.New("schema: unsupported type")
	// ErrMissingRelationshipSchema marks a relationship field listed without
	// a nested schema. Generation never guesses a nested shape.
	ErrMissingRelationshipSchema = errors.New("schema: relationship field requires an explicit nested schema")
	// ErrConfigurationConflict marks mutually exclusive builder options both
	// supplied.
	ErrConfigurationConflict = errors.New("schema: base schema and schema config are mutually exclusive")
)

// Config holds schema-level options.
type Config struct {
	// AllowUnknown keeps unknown keys in validated input instead of
	// rejecting them.
	AllowUnknown bool
}

// FieldSpec selects one entity attribute for the schema: a bare name for
// columns, a nested builder for relationships, or an explicit field.
type FieldSpec struct {
	Name     string
	Nested   *Builder
	Explicit *Field
}

// F selects a column or computed attribute by name.
func F(name string) FieldSpec { return FieldSpec{Name: name} }

// Nested selects a relationship attribute validated through another builder.
// To-many relationships wrap the nested schema as a list.
func Nested(name string, builder *Builder) FieldSpec {
	return FieldSpec{Name: name, Nested: builder}
}

// Explicit selects an attribute with a caller-supplied field, bypassing
// storage-type mapping.
func Explicit(name string, field *Field) FieldSpec {
	return FieldSpec{Name: name, Explicit: field}
}

// Builder generates a validation schema from entity metadata. Exactly one
// of Base and Config may be set.
type Builder struct {
	Name   string
	Entity *metadata.Entity
	Fields []FieldSpec

	// Base extends an existing schema with this builder's fields.
	Base   *Schema
	Config *Config

	ExtraFieldConfig map[string]FieldConfig
	Validators       map[string][]Validator
}

// Build resolves every field spec against the entity metadata and returns
// the schema. All generation errors surface here, before any validation.
func (b *Builder) Build() (*Schema, error) {
	if b.Entity == nil {
		return nil, fmt.Errorf("%w: builder has no entity", ErrUnsupportedType)
	}
	if b.Base != nil && b.Config != nil {
		return nil, ErrConfigurationConflict
	}
	schema := &Schema{
		Name:   b.Name,
		entity: b.Entity,
		Config: b.Config,
		byName: make(map[string]*Field),
	}
	if b.Base != nil {
		schema.Config = b.Base.Config
		for _, field := range b.Base.Fields {
			schema.add(field)
		}
	}
	if schema.Config == nil {
		schema.Config = &Config{}
	}
	for _, spec := range b.Fields {
		field, err := b.generate(spec)
		if err != nil {
			return nil, err
		}
		config, ok := b.ExtraFieldConfig[spec.Name]
		if ok {
			field.applyConfig(&config)
		}
		field.Validators = append(field.Validators, b.Validators[spec.Name]...)
		schema.add(field)
	}
	return schema, nil
}

// MustBuild is Build panicking on errors. Intended for schemas declared at
// startup.
func (b *Builder) MustBuild() *Schema {
	schema, err := b.Build()
	if err != nil {
		panic(err)
	}
	return schema
}

func (b *Builder) generate(spec FieldSpec) (*Field, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: field spec without a name", ErrUnsupportedType)
	}
	attr, ok := b.Entity.Attribute(spec.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an attribute of %q", ErrUnsupportedType, spec.Name, b.Entity.Name)
	}
	if spec.Explicit != nil {
		field := *spec.Explicit
		field.Name = spec.Name
		return &field, nil
	}
	if spec.Nested != nil {
		return b.generateNested(spec, attr)
	}
	switch attr.Kind {
	case metadata.KindToOne, metadata.KindToMany:
		return nil, fmt.Errorf("%w: %q on %q", ErrMissingRelationshipSchema, spec.Name, b.Entity.Name)
	case metadata.KindComputed:
		if attr.Type == metadata.TypeUnknown {
			return nil, fmt.Errorf("%w: computed attribute %q of %q has no declared type",
				ErrUnsupportedType, spec.Name, b.Entity.Name)
		}
	}
	return generateColumn(attr, attr.Type, attr.Nullable)
}

// generateNested builds a relationship field from another builder. To-many
// targets wrap as a list; nullability follows the foreign key column.
func (b *Builder) generateNested(spec FieldSpec, attr *metadata.Attribute) (*Field, error) {
	if !attr.Kind.IsRelationship() {
		return nil, fmt.Errorf("%w: nested schema given for non-relationship %q of %q",
			ErrUnsupportedType, spec.Name, b.Entity.Name)
	}
	nested, err := spec.Nested.Build()
	if err != nil {
		return nil, err
	}
	field := &Field{
		Name:   spec.Name,
		Type:   FieldNested,
		Schema: nested,
		List:   attr.Kind == metadata.KindToMany,
	}
	fkOwner := b.Entity
	if attr.Kind == metadata.KindToMany {
		fkOwner, err = b.Entity.Related(attr)
		if err != nil {
			return nil, err
		}
	}
	if fk, ok := fkOwner.Attribute(attr.JoinColumn); ok {
		field.Nullable = fk.Nullable
	}
	return field, nil
}

type fieldGenerator func(attr *metadata.Attribute, nullable bool) (*Field, error)

// generators maps every storage type to its field construction function.
// The set is closed; anything outside it fails generation. Populated in
// init to break the initialization cycle with generateColumn.
var generators map[metadata.StorageType]fieldGenerator

func init() {
	generators = map[metadata.StorageType]fieldGenerator{
		metadata.TypeString: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{
				Name:           attr.Name,
				Type:           FieldString,
				Nullable:       nullable,
				TrimWhitespace: true,
				MaxLength:      attr.Length,
			}, nil
		},
		metadata.TypeText: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{
				Name:           attr.Name,
				Type:           FieldString,
				Nullable:       nullable,
				TrimWhitespace: true,
			}, nil
		},
		metadata.TypeInteger: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return boundedInt(attr, nullable, -2147483648, 2147483647), nil
		},
		metadata.TypeSmallInteger: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return boundedInt(attr, nullable, -32768, 32767), nil
		},
		metadata.TypeEnum: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			if len(attr.EnumValues) == 0 {
				return nil, fmt.Errorf("%w: enum column %q declares no values", ErrUnsupportedType, attr.Name)
			}
			return &Field{
				Name:       attr.Name,
				Type:       FieldEnum,
				Nullable:   nullable,
				EnumValues: attr.EnumValues,
			}, nil
		},
		metadata.TypeDate: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{Name: attr.Name, Type: FieldDate, Nullable: nullable}, nil
		},
		metadata.TypeDateTime: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{Name: attr.Name, Type: FieldDateTime, Nullable: nullable}, nil
		},
		metadata.TypeBoolean: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{Name: attr.Name, Type: FieldBool, Nullable: nullable}, nil
		},
		metadata.TypeNumeric: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{
				Name:      attr.Name,
				Type:      FieldDecimal,
				Nullable:  nullable,
				Precision: attr.Precision,
				Scale:     attr.Scale,
			}, nil
		},
		metadata.TypeInterval: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{Name: attr.Name, Type: FieldDuration, Nullable: nullable}, nil
		},
		metadata.TypeArray: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			// Element fields validate each item, so they are never nullable
			// themselves.
			elem, err := generateColumn(attr, attr.Elem, false)
			if err != nil {
				return nil, err
			}
			return &Field{
				Name:     attr.Name,
				Type:     FieldList,
				Nullable: nullable,
				Elem:     elem,
			}, nil
		},
		metadata.TypeJSON: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{Name: attr.Name, Type: FieldObject, Nullable: nullable}, nil
		},
		metadata.TypeDateRange: func(attr *metadata.Attribute, nullable bool) (*Field, error) {
			return &Field{Name: attr.Name, Type: FieldDateRange, Nullable: nullable}, nil
		},
	}
}

func generateColumn(attr *metadata.Attribute, storage metadata.StorageType, nullable bool) (*Field, error) {
	generator, ok := generators[storage]
	if !ok {
		return nil, fmt.Errorf("%w: cannot map storage type %s of %q", ErrUnsupportedType, storage, attr.Name)
	}
	return generator(attr, nullable)
}

func boundedInt(attr *metadata.Attribute, nullable bool, min, max int64) *Field {
	return &Field{
		Name:     attr.Name,
		Type:     FieldInt,
		Nullable: nullable,
		Min:      &min,
		Max:      &max,
	}
}
