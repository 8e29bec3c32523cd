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

package metadata

import (
	"fmt"
	"strings"
)

// Attribute describes a single entity attribute: a mapped column, a
// relationship to another entity, or a computed value.
type Attribute struct {
	// Name is the logical attribute name. For columns it is also the
	// database column name.
	Name string
	// GoName is the struct field holding the attribute. Derived from Name
	// when empty ("related_model_id" -> "RelatedModelID").
	GoName string

	Kind Kind
	// Type is the storage type tag for columns. For computed attributes it
	// is the declared result type; TypeUnknown means undeclared.
	Type StorageType
	// Elem is the element type for TypeArray columns.
	Elem StorageType

	Length     int
	Precision  int
	Scale      int
	EnumValues []string

	Nullable   bool
	PrimaryKey bool

	// Relationship wiring. Target names the related entity. For to-one
	// relationships JoinColumn is the foreign key column on the owning
	// entity; for to-many it is the foreign key column on the target.
	// TargetColumn defaults to the other side's primary key.
	Target       string
	JoinColumn   string
	TargetColumn string
}

// M2MFilterConfig declares how a logical filter name is rewritten into a
// correlated existence predicate against an association entity.
type M2MFilterConfig struct {
	// RelationField names a to-many relationship to the association entity.
	RelationField string
	// FilterField is the column on the association entity the filter
	// suffix is applied to.
	FilterField string
	// MatchField is the association column equal-joined to the owning
	// entity's primary key.
	MatchField string
}

// Entity is one registry entry: the full mapped shape of a persisted type.
// Entities are registered once at startup and treated as immutable after.
type Entity struct {
	// Name is the registry key, conventionally the table name.
	Name  string
	Table string
	// Alias is the SQL alias used when referencing the entity's columns in
	// generated predicates. It must match the Bun model alias. Defaults to
	// Table.
	Alias      string
	Attributes []*Attribute
	M2MFilters map[string]M2MFilterConfig

	byName   map[string]*Attribute
	pk       *Attribute
	registry *Registry
}

// Attribute looks up an attribute by logical name.
func (e *Entity) Attribute(name string) (*Attribute, bool) {
	attr, ok := e.byName[name]
	return attr, ok
}

// PrimaryKey returns the designated primary key attribute.
func (e *Entity) PrimaryKey() *Attribute {
	return e.pk
}

// M2MFilter returns the many-to-many filter config for a logical field name.
func (e *Entity) M2MFilter(name string) (M2MFilterConfig, bool) {
	cfg, ok := e.M2MFilters[name]
	return cfg, ok
}

// Related resolves the target entity of a relationship attribute.
func (e *Entity) Related(attr *Attribute) (*Entity, error) {
	if !attr.Kind.IsRelationship() {
		return nil, fmt.Errorf("metadata: attribute %q of %q is not a relationship", attr.Name, e.Name)
	}
	return e.registry.Lookup(attr.Target)
}

// ColumnNames returns the column names of the entity in declaration order,
// excluding relationships and computed attributes.
func (e *Entity) ColumnNames() []string {
	columns := make([]string, 0, len(e.Attributes))
	for _, attr := range e.Attributes {
		if attr.Kind == KindColumn {
			columns = append(columns, attr.Name)
		}
	}
	return columns
}

func (e *Entity) prepare(r *Registry) error {
	if e.Name == "" {
		return fmt.Errorf("metadata: entity name cannot be empty")
	}
	if e.Table == "" {
		e.Table = e.Name
	}
	if e.Alias == "" {
		e.Alias = e.Table
	}
	e.registry = r
	e.byName = make(map[string]*Attribute, len(e.Attributes))
	for _, attr := range e.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("metadata: entity %q has an attribute without a name", e.Name)
		}
		if _, exists := e.byName[attr.Name]; exists {
			return fmt.Errorf("metadata: entity %q declares attribute %q twice", e.Name, attr.Name)
		}
		if attr.GoName == "" {
			attr.GoName = goName(attr.Name)
		}
		if attr.Kind.IsRelationship() {
			if attr.Target == "" {
				return fmt.Errorf("metadata: relationship %q of %q has no target entity", attr.Name, e.Name)
			}
			if attr.JoinColumn == "" {
				return fmt.Errorf("metadata: relationship %q of %q has no join column", attr.Name, e.Name)
			}
		}
		if attr.PrimaryKey {
			if e.pk != nil {
				return fmt.Errorf("metadata: entity %q declares more than one primary key", e.Name)
			}
			e.pk = attr
		}
		e.byName[attr.Name] = attr
	}
	if e.pk == nil {
		return fmt.Errorf("metadata: entity %q has no primary key attribute", e.Name)
	}
	for name, cfg := range e.M2MFilters {
		rel, ok := e.byName[cfg.RelationField]
		if !ok {
			return fmt.Errorf("metadata: m2m filter %q of %q references unknown relation %q", name, e.Name, cfg.RelationField)
		}
		if rel.Kind != KindToMany {
			return fmt.Errorf("metadata: m2m filter %q of %q requires a to-many relation, got %s", name, e.Name, rel.Kind)
		}
		if cfg.FilterField == "" || cfg.MatchField == "" {
			return fmt.Errorf("metadata: m2m filter %q of %q must set filter and match fields", name, e.Name)
		}
	}
	return nil
}

// checkCrossReferences verifies invariants that need other registered
// entities: relationship targets exist and m2m configs point at real columns.
func (e *Entity) checkCrossReferences() error {
	for _, attr := range e.Attributes {
		if !attr.Kind.IsRelationship() {
			continue
		}
		target, err := e.registry.Lookup(attr.Target)
		if err != nil {
			return fmt.Errorf("metadata: relationship %q of %q: %w", attr.Name, e.Name, err)
		}
		if attr.TargetColumn != "" {
			if _, ok := target.Attribute(attr.TargetColumn); !ok {
				return fmt.Errorf("metadata: relationship %q of %q references unknown column %q on %q",
					attr.Name, e.Name, attr.TargetColumn, target.Name)
			}
		}
	}
	for name, cfg := range e.M2MFilters {
		rel := e.byName[cfg.RelationField]
		assoc, err := e.registry.Lookup(rel.Target)
		if err != nil {
			return fmt.Errorf("metadata: m2m filter %q of %q: %w", name, e.Name, err)
		}
		if _, ok := assoc.Attribute(cfg.FilterField); !ok {
			return fmt.Errorf("metadata: m2m filter %q of %q references unknown column %q on %q",
				name, e.Name, cfg.FilterField, assoc.Name)
		}
		if _, ok := assoc.Attribute(cfg.MatchField); !ok {
			return fmt.Errorf("metadata: m2m filter %q of %q references unknown column %q on %q",
				name, e.Name, cfg.MatchField, assoc.Name)
		}
	}
	return nil
}

// goName derives a Go struct field name from a snake_case attribute name.
func goName(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		switch part {
		case "id":
			b.WriteString("ID")
		case "url":
			b.WriteString("URL")
		case "json":
			b.WriteString("JSON")
		default:
			b.WriteString(strings.ToUpper(part[:1]))
			b.WriteString(part[1:])
		}
	}
	return b.String()
}
