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

package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/metadata"
	"github.com/tomoncle/querykit/types"
)

var (
	// ErrInvalidFilterPath reports a malformed or ambiguous field path,
	// e.g. an operator chain on a non-relationship attribute.
	ErrInvalidFilterPath = errors.New("filter: invalid filter path")
	// ErrUnknownOperator reports an operator token outside the recognized
	// set.
	ErrUnknownOperator = errors.New("filter: unknown operator")
)

// Operator is one token of the closed comparison set.
type Operator string

const (
	OpIs       Operator = "is"
	OpIn       Operator = "in"
	OpExact    Operator = "exact"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpOverlaps Operator = "overlaps"
)

// operators maps each token to its predicate builder. Unknown tokens are
// rejected at transform time, before any query executes.
var operators = map[Operator]func(column string, value any) *types.QueryFilter{
	OpIs: func(column string, value any) *types.QueryFilter {
		if value == nil {
			return types.NewQueryFilter(column + " IS NULL")
		}
		return types.NewQueryFilter(column+" IS ?", value)
	},
	OpIn: func(column string, value any) *types.QueryFilter {
		return types.NewQueryFilter(column+" IN (?)", bun.In(value))
	},
	OpExact: func(column string, value any) *types.QueryFilter {
		if value == nil {
			return types.NewQueryFilter(column + " IS NULL")
		}
		return types.NewQueryFilter(column+" = ?", value)
	},
	OpGt: func(column string, value any) *types.QueryFilter {
		return types.NewQueryFilter(column+" > ?", value)
	},
	OpGte: func(column string, value any) *types.QueryFilter {
		return types.NewQueryFilter(column+" >= ?", value)
	},
	OpLt: func(column string, value any) *types.QueryFilter {
		return types.NewQueryFilter(column+" < ?", value)
	},
	OpLte: func(column string, value any) *types.QueryFilter {
		return types.NewQueryFilter(column+" <= ?", value)
	},
	OpOverlaps: func(column string, value any) *types.QueryFilter {
		return types.NewQueryFilter(column+" && ?", value)
	},
}

// WhereClause is anything the repository can turn into a SQL predicate for a
// given entity. Implemented by Filter, Search, and Raw.
type WhereClause interface {
	Apply(entity *metadata.Entity) (*types.QueryFilter, error)
}

// Raw passes a prepared SQL fragment and args through unchanged.
type Raw struct {
	SQL  string
	Args []any
}

// Apply implements WhereClause.
func (r Raw) Apply(*metadata.Entity) (*types.QueryFilter, error) {
	return types.NewQueryFilter(r.SQL, r.Args...), nil
}

// Filter is a declarative, serializable filter description. Field follows
// the grammar `segment ("__" segment)*`: the last segment is an operator
// token (omitted means exact), preceding segments name an attribute or a
// relationship path. Exclude negates the final predicate.
type Filter struct {
	Field   string
	Value   any
	Exclude bool
}

// New is shorthand for a positive filter.
func New(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Not is shorthand for a negated filter.
func Not(field string, value any) Filter {
	return Filter{Field: field, Value: value, Exclude: true}
}

// Apply transforms the filter into a predicate against the entity. All
// grammar errors surface here, before any query execution.
func (f Filter) Apply(entity *metadata.Entity) (*types.QueryFilter, error) {
	predicate, err := f.transform(entity, entity.Alias, 0)
	if err != nil {
		return nil, err
	}
	if f.Exclude {
		return types.NewQueryFilter("NOT ("+predicate.Schema+")", predicate.Args...), nil
	}
	return predicate, nil
}

func (f Filter) transform(entity *metadata.Entity, owner string, depth int) (*types.QueryFilter, error) {
	segments := strings.Split(f.Field, "__")
	head, rest := segments[0], segments[1:]

	if cfg, ok := entity.M2MFilter(head); ok {
		return f.transformM2M(entity, cfg, rest, owner, depth)
	}

	attr, ok := entity.Attribute(head)
	if !ok {
		return nil, fmt.Errorf("%w: entity %q has no attribute %q", ErrInvalidFilterPath, entity.Name, head)
	}
	if attr.Kind.IsRelationship() {
		return f.transformRelationship(entity, attr, rest, owner, depth)
	}
	if len(rest) > 1 {
		return nil, fmt.Errorf("%w: long filter paths are only supported for relationships (field %q)",
			ErrInvalidFilterPath, f.Field)
	}
	op := OpExact
	if len(rest) == 1 {
		op = Operator(rest[0])
	}
	build, ok := operators[op]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	return build(owner+"."+attr.Name, f.Value), nil
}

// transformRelationship wraps the remaining path in a correlated existence
// predicate: "any associated row satisfies" for to-many, "the related row
// satisfies" for to-one.
func (f Filter) transformRelationship(
	entity *metadata.Entity,
	attr *metadata.Attribute,
	rest []string,
	owner string,
	depth int,
) (*types.QueryFilter, error) {
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: relationship %q needs a nested field", ErrInvalidFilterPath, attr.Name)
	}
	target, err := entity.Related(attr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilterPath, err)
	}
	alias := subqueryAlias(depth)
	inner, err := Filter{Field: strings.Join(rest, "__"), Value: f.Value}.transform(target, alias, depth+1)
	if err != nil {
		return nil, err
	}

	var join string
	switch attr.Kind {
	case metadata.KindToMany:
		ownerColumn := attr.TargetColumn
		if ownerColumn == "" {
			ownerColumn = entity.PrimaryKey().Name
		}
		join = fmt.Sprintf("%s.%s = %s.%s", alias, attr.JoinColumn, owner, ownerColumn)
	default:
		targetColumn := attr.TargetColumn
		if targetColumn == "" {
			targetColumn = target.PrimaryKey().Name
		}
		join = fmt.Sprintf("%s.%s = %s.%s", alias, targetColumn, owner, attr.JoinColumn)
	}
	return existsPredicate(target.Table, alias, join, inner), nil
}

// transformM2M rewrites a configured logical field into an existence
// predicate against the association entity, joined on the owning entity's
// primary key. The filter suffix applies to the configured filter column.
func (f Filter) transformM2M(
	entity *metadata.Entity,
	cfg metadata.M2MFilterConfig,
	rest []string,
	owner string,
	depth int,
) (*types.QueryFilter, error) {
	relation, _ := entity.Attribute(cfg.RelationField)
	assoc, err := entity.Related(relation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilterPath, err)
	}
	// The path may spell out the filter column itself; avoid doubling it.
	if len(rest) > 0 && rest[0] == cfg.FilterField {
		rest = rest[1:]
	}
	field := cfg.FilterField
	if len(rest) > 0 {
		field += "__" + strings.Join(rest, "__")
	}
	alias := subqueryAlias(depth)
	inner, err := Filter{Field: field, Value: f.Value}.transform(assoc, alias, depth+1)
	if err != nil {
		return nil, err
	}
	join := fmt.Sprintf("%s.%s = %s.%s", alias, cfg.MatchField, owner, entity.PrimaryKey().Name)
	return existsPredicate(assoc.Table, alias, join, inner), nil
}

func existsPredicate(table, alias, join string, inner *types.QueryFilter) *types.QueryFilter {
	schema := fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS %s WHERE %s AND %s)", table, alias, join, inner.Schema)
	return types.NewQueryFilter(schema, inner.Args...)
}

func subqueryAlias(depth int) string {
	return fmt.Sprintf("_f%d", depth+1)
}
