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

package repository

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/filter"
	"github.com/tomoncle/querykit/metadata"
	"github.com/tomoncle/querykit/ordering"
	"github.com/tomoncle/querykit/types"
)

// LoadChain is an eager-load target: a single relationship attribute or an
// ordered chain of them for nested loading (load A, then each A's B).
type LoadChain []string

// Load builds a LoadChain from relationship attribute names.
func Load(names ...string) LoadChain {
	return LoadChain(names)
}

// Annotation attaches an extra computed column to fetched rows. With an
// Expr it selects `(expr) AS name`; without one it selects the named column
// alongside the model's own columns.
type Annotation struct {
	Name string
	Expr string
	Args []any
}

// FetchParams collects every transform the fetch pipeline knows about.
// Statement optionally supplies a prior select statement to extend,
// enabling composition and reuse.
type FetchParams struct {
	Statement *bun.SelectQuery

	Offset int
	Limit  int

	JoinedLoad   []LoadChain
	SelectInLoad []LoadChain
	Annotations  []Annotation

	OrderingClauses []ordering.Clause

	// Where holds DSL filters and raw predicates. FiltersBy maps field
	// names to equality values; keys containing "__" route through the
	// filter DSL.
	Where     []filter.WhereClause
	FiltersBy map[string]any
}

// SaveOptions controls Save behavior: Refresh reloads the instance from the
// store afterwards, restricted to Fields when given.
type SaveOptions struct {
	Refresh bool
	Fields  []string
}

// CrudRepository defines write operations for a generic entity type.
type CrudRepository[T any] interface {
	Save(ctx context.Context, instance *T, opts ...SaveOptions) (*T, error)

	Reload(ctx context.Context, instance *T, fields ...string) error

	Delete(ctx context.Context, instance *T) error

	DeleteBatch(ctx context.Context, where []filter.WhereClause, filtersBy map[string]any) error

	InsertBatch(ctx context.Context, objects []*T, excludeFields ...string) ([]*T, error)

	UpdateBatch(ctx context.Context, objects []*T, excludeFields ...string) error
}

// QueryRepository defines read operations driven by FetchParams.
type QueryRepository[T any] interface {
	FetchAll(ctx context.Context, params FetchParams) ([]*T, error)

	FetchFirst(ctx context.Context, params FetchParams) (*T, error)

	// Fetch scans matching rows into an arbitrary destination, for result
	// shapes other than the model slice.
	Fetch(ctx context.Context, dest any, params FetchParams) error

	Count(ctx context.Context, where []filter.WhereClause, filtersBy map[string]any) (int, error)

	Exists(ctx context.Context, where []filter.WhereClause, filtersBy map[string]any) (bool, error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// StatementRepository exposes the composable statement-building pipeline.
// Every builder accepts an optional prior statement (nil starts fresh) and
// returns a new statement with the transform applied.
type StatementRepository interface {
	GetJoinedLoadStatement(stmt *bun.SelectQuery, targets ...LoadChain) (*bun.SelectQuery, error)

	GetSelectInLoadStatement(stmt *bun.SelectQuery, targets ...LoadChain) (*bun.SelectQuery, error)

	GetAnnotatedStatement(stmt *bun.SelectQuery, annotations ...Annotation) *bun.SelectQuery

	GetOrderStatement(stmt *bun.SelectQuery, clauses ...ordering.Clause) *bun.SelectQuery

	GetFilterStatement(stmt *bun.SelectQuery, where []filter.WhereClause, filtersBy map[string]any) (*bun.SelectQuery, error)

	GetPaginationStatement(stmt *bun.SelectQuery, offset, limit int) *bun.SelectQuery

	GetFetchStatement(params FetchParams) (*bun.SelectQuery, error)
}

// Repository combines CRUD, querying, and statement building, and exposes
// Bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	StatementRepository
	DB() bun.IDB
	Metadata() *metadata.Entity
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
