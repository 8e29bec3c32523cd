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
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/filter"
	"github.com/tomoncle/querykit/metadata"
	"github.com/tomoncle/querykit/model"
	"github.com/tomoncle/querykit/ordering"
	"github.com/tomoncle/querykit/types"
)

// BaseRepository is the sole point of interaction with persisted entities of
// one type. It is bound to a single externally-owned session (a *bun.DB or a
// bun.Tx) and is cheap to create per request or transaction. It holds no
// entity state and performs no retries; store errors propagate unmodified.
type BaseRepository[T model.Model] struct {
	db   bun.IDB
	meta *metadata.Entity

	// Column names excluded from batch writes unless the call overrides
	// them. Typically the autogenerated timestamp columns.
	ExcludeBulkCreateFields []string
	ExcludeBulkUpdateFields []string
}

// New returns a repository for T bound to the given session. T's ModelName
// must be registered in the default metadata registry.
func New[T model.Model](db bun.IDB) (*BaseRepository[T], error) {
	var zero T
	meta, err := metadata.Lookup(zero.ModelName())
	if err != nil {
		return nil, err
	}
	return &BaseRepository[T]{db: db, meta: meta}, nil
}

// MustNew is New panicking on registration errors. Intended for wiring code
// that runs at startup.
func MustNew[T model.Model](db bun.IDB) *BaseRepository[T] {
	repo, err := New[T](db)
	if err != nil {
		panic(err)
	}
	return repo
}

// InitOther derives a repository for another entity from the same session.
func InitOther[O model.Model, T model.Model](r *BaseRepository[T]) (*BaseRepository[O], error) {
	return New[O](r.db)
}

// DB returns the bound session.
func (r *BaseRepository[T]) DB() bun.IDB { return r.db }

// Metadata returns the entity metadata the repository operates on.
func (r *BaseRepository[T]) Metadata() *metadata.Entity { return r.meta }

// NewSelect returns a fresh select statement for the entity.
func (r *BaseRepository[T]) NewSelect() *bun.SelectQuery {
	return r.db.NewSelect().Model((*T)(nil))
}

// NewInsert returns a Bun insert query builder.
func (r *BaseRepository[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

// NewUpdate returns a Bun update query builder.
func (r *BaseRepository[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

// NewDelete returns a Bun delete query builder.
func (r *BaseRepository[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *BaseRepository[T]) selectOr(stmt *bun.SelectQuery) *bun.SelectQuery {
	if stmt != nil {
		return stmt
	}
	return r.NewSelect()
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Save writes the instance through to the store immediately: an insert when
// the primary key is unset, otherwise an update by primary key. Generated
// keys and defaults are assigned back onto the instance. With
// SaveOptions.Refresh the instance is reloaded afterwards, restricted to
// SaveOptions.Fields when given.
func (r *BaseRepository[T]) Save(ctx context.Context, instance *T, opts ...SaveOptions) (*T, error) {
	var opt SaveOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	if r.pkIsZero(instance) {
		if _, err := r.db.NewInsert().Model(instance).Returning("*").Exec(ctx); err != nil {
			return nil, err
		}
	} else {
		if _, err := r.db.NewUpdate().Model(instance).WherePK().Exec(ctx); err != nil {
			return nil, err
		}
	}
	if opt.Refresh {
		if err := r.Reload(ctx, instance, opt.Fields...); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// Reload re-reads the instance from the store by primary key, restricted to
// the given columns when any are named.
func (r *BaseRepository[T]) Reload(ctx context.Context, instance *T, fields ...string) error {
	q := r.db.NewSelect().Model(instance).WherePK()
	if len(fields) > 0 {
		q = q.Column(fields...)
	}
	return q.Scan(ctx)
}

// Delete removes the instance permanently.
func (r *BaseRepository[T]) Delete(ctx context.Context, instance *T) error {
	_, err := r.db.NewDelete().Model(instance).WherePK().Exec(ctx)
	return err
}

// DeleteBatch removes all matching rows in a single statement. No per-row
// hooks fire.
func (r *BaseRepository[T]) DeleteBatch(ctx context.Context, where []filter.WhereClause, filtersBy map[string]any) error {
	predicate, err := r.processWhere(where, filtersBy)
	if err != nil {
		return err
	}
	q := r.db.NewDelete().Model((*T)(nil))
	if predicate != nil {
		q = q.Where(predicate.Schema, predicate.Args...)
	} else {
		q = q.Where("TRUE")
	}
	_, err = q.Exec(ctx)
	return err
}

// InsertBatch creates the objects in one multi-row insert and returns them
// with store-generated values populated. Excluded columns default to
// ExcludeBulkCreateFields. Empty input is a no-op.
func (r *BaseRepository[T]) InsertBatch(ctx context.Context, objects []*T, excludeFields ...string) ([]*T, error) {
	if len(objects) == 0 {
		return []*T{}, nil
	}
	exclude := excludeFields
	if len(exclude) == 0 {
		exclude = r.ExcludeBulkCreateFields
	}
	q := r.db.NewInsert().Model(&objects).Returning("*")
	if len(exclude) > 0 {
		q = q.ExcludeColumn(exclude...)
	}
	if _, err := q.Exec(ctx); err != nil {
		return nil, err
	}
	return objects, nil
}

// UpdateBatch updates the objects by primary key in one statement. Excluded
// columns default to ExcludeBulkUpdateFields; the primary key is always
// excluded from the SET list. Empty input is a no-op.
func (r *BaseRepository[T]) UpdateBatch(ctx context.Context, objects []*T, excludeFields ...string) error {
	if len(objects) == 0 {
		return nil
	}
	exclude := excludeFields
	if len(exclude) == 0 {
		exclude = r.ExcludeBulkUpdateFields
	}
	columns := r.updateColumns(exclude)
	if len(columns) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().Model(&objects).Column(columns...).Bulk().Exec(ctx)
	return err
}

func (r *BaseRepository[T]) updateColumns(exclude []string) []string {
	excluded := make(map[string]struct{}, len(exclude)+1)
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}
	excluded[r.meta.PrimaryKey().Name] = struct{}{}
	var columns []string
	for _, name := range r.meta.ColumnNames() {
		if _, skip := excluded[name]; !skip {
			columns = append(columns, name)
		}
	}
	return columns
}

// ModelAsDict converts an instance into a column-name keyed map, skipping
// the given columns. Relationship and computed attributes are not included.
func (r *BaseRepository[T]) ModelAsDict(instance *T, excludeFields ...string) map[string]any {
	excluded := make(map[string]struct{}, len(excludeFields))
	for _, name := range excludeFields {
		excluded[name] = struct{}{}
	}
	value := reflect.ValueOf(instance).Elem()
	data := make(map[string]any)
	for _, attr := range r.meta.Attributes {
		if attr.Kind != metadata.KindColumn {
			continue
		}
		if _, skip := excluded[attr.Name]; skip {
			continue
		}
		field := value.FieldByName(attr.GoName)
		if field.IsValid() {
			data[attr.Name] = field.Interface()
		}
	}
	return data
}

// ---------------------------------------------------------------------------
// Statement pipeline
// ---------------------------------------------------------------------------

// GetJoinedLoadStatement attaches eager loading of the given relationship
// chains. The load strategy follows the dialect/ORM: to-one targets join,
// to-many targets load through a follow-up query keyed by the parent rows.
func (r *BaseRepository[T]) GetJoinedLoadStatement(stmt *bun.SelectQuery, targets ...LoadChain) (*bun.SelectQuery, error) {
	return r.applyRelations(r.selectOr(stmt), targets)
}

// GetSelectInLoadStatement attaches eager loading of related models fetched
// separately. With Bun the separate-query strategy is automatic for to-many
// relations, so this shares GetJoinedLoadStatement's mechanics; it exists so
// call sites state intent and stay portable.
func (r *BaseRepository[T]) GetSelectInLoadStatement(stmt *bun.SelectQuery, targets ...LoadChain) (*bun.SelectQuery, error) {
	return r.applyRelations(r.selectOr(stmt), targets)
}

func (r *BaseRepository[T]) applyRelations(q *bun.SelectQuery, targets []LoadChain) (*bun.SelectQuery, error) {
	for _, chain := range targets {
		path, err := r.relationPath(chain)
		if err != nil {
			return nil, err
		}
		q = q.Relation(path)
	}
	return q, nil
}

// relationPath resolves a chain of logical relationship names into the Bun
// relation path of Go field names.
func (r *BaseRepository[T]) relationPath(chain LoadChain) (string, error) {
	if len(chain) == 0 {
		return "", fmt.Errorf("repository: empty eager-load chain for %q", r.meta.Name)
	}
	entity := r.meta
	parts := make([]string, 0, len(chain))
	for _, name := range chain {
		attr, ok := entity.Attribute(name)
		if !ok || !attr.Kind.IsRelationship() {
			return "", fmt.Errorf("repository: %q is not a relationship of %q", name, entity.Name)
		}
		parts = append(parts, attr.GoName)
		target, err := entity.Related(attr)
		if err != nil {
			return "", err
		}
		entity = target
	}
	return strings.Join(parts, "."), nil
}

// GetAnnotatedStatement adds computed columns to the selection, keeping the
// model's own columns.
func (r *BaseRepository[T]) GetAnnotatedStatement(stmt *bun.SelectQuery, annotations ...Annotation) *bun.SelectQuery {
	q := r.selectOr(stmt)
	if len(annotations) == 0 {
		return q
	}
	q = q.ColumnExpr("?TableColumns")
	for _, annotation := range annotations {
		if annotation.Expr != "" {
			q = q.ColumnExpr("("+annotation.Expr+") AS "+annotation.Name, annotation.Args...)
			continue
		}
		q = q.ColumnExpr(r.meta.Alias + "." + annotation.Name)
	}
	return q
}

// GetOrderStatement applies ordering clauses in the given order.
func (r *BaseRepository[T]) GetOrderStatement(stmt *bun.SelectQuery, clauses ...ordering.Clause) *bun.SelectQuery {
	q := r.selectOr(stmt)
	for _, clause := range clauses {
		term := clause.OrderExpr()
		if term == "" {
			continue
		}
		if _, ok := clause.(ordering.Expr); ok {
			q = q.OrderExpr(term)
			continue
		}
		q = q.Order(term)
	}
	return q
}

// GetFilterStatement applies DSL filters, raw predicates, and equality
// filters. All filter-grammar errors surface here, before execution.
func (r *BaseRepository[T]) GetFilterStatement(stmt *bun.SelectQuery, where []filter.WhereClause, filtersBy map[string]any) (*bun.SelectQuery, error) {
	q := r.selectOr(stmt)
	predicate, err := r.processWhere(where, filtersBy)
	if err != nil {
		return nil, err
	}
	if predicate != nil {
		q = q.Where(predicate.Schema, predicate.Args...)
	}
	return q, nil
}

// processWhere transforms every clause against the entity metadata and
// AND-joins the results. FiltersBy keys are processed in sorted order so
// equal inputs build identical statements.
func (r *BaseRepository[T]) processWhere(where []filter.WhereClause, filtersBy map[string]any) (*types.QueryFilter, error) {
	predicates := make([]*types.QueryFilter, 0, len(where)+len(filtersBy))
	for _, clause := range where {
		predicate, err := clause.Apply(r.meta)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}
	keys := make([]string, 0, len(filtersBy))
	for key := range filtersBy {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		predicate, err := filter.New(key, filtersBy[key]).Apply(r.meta)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}
	return types.And(predicates...), nil
}

// GetPaginationStatement applies the row window. It must be the last
// transform: joins and filters change which rows the window covers.
func (r *BaseRepository[T]) GetPaginationStatement(stmt *bun.SelectQuery, offset, limit int) *bun.SelectQuery {
	q := r.selectOr(stmt)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

// GetFetchStatement composes the full pipeline in fixed order: eager-load
// (joined, then select-separately), annotate, order, filter, paginate.
func (r *BaseRepository[T]) GetFetchStatement(params FetchParams) (*bun.SelectQuery, error) {
	q, err := r.GetJoinedLoadStatement(params.Statement, params.JoinedLoad...)
	if err != nil {
		return nil, err
	}
	q, err = r.GetSelectInLoadStatement(q, params.SelectInLoad...)
	if err != nil {
		return nil, err
	}
	q = r.GetAnnotatedStatement(q, params.Annotations...)
	q = r.GetOrderStatement(q, params.OrderingClauses...)
	q, err = r.GetFilterStatement(q, params.Where, params.FiltersBy)
	if err != nil {
		return nil, err
	}
	return r.GetPaginationStatement(q, params.Offset, params.Limit), nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// FetchAll returns every matching instance. When a requested eager-load
// chain crosses a to-many relationship the result is deduplicated by
// primary key, so joined loading never multiplies rows.
func (r *BaseRepository[T]) FetchAll(ctx context.Context, params FetchParams) ([]*T, error) {
	var instances []*T
	if params.Statement == nil {
		q, err := r.GetFetchStatement(FetchParams{
			Statement:       r.db.NewSelect().Model(&instances),
			Offset:          params.Offset,
			Limit:           params.Limit,
			JoinedLoad:      params.JoinedLoad,
			SelectInLoad:    params.SelectInLoad,
			Annotations:     params.Annotations,
			OrderingClauses: params.OrderingClauses,
			Where:           params.Where,
			FiltersBy:       params.FiltersBy,
		})
		if err != nil {
			return nil, err
		}
		if err := q.Scan(ctx); err != nil {
			return nil, err
		}
	} else {
		q, err := r.GetFetchStatement(params)
		if err != nil {
			return nil, err
		}
		if err := q.Scan(ctx, &instances); err != nil {
			return nil, err
		}
	}
	if r.hasToManyLoad(params) {
		instances = r.uniqueByPK(instances)
	}
	return instances, nil
}

// FetchFirst returns the first matching instance, or nil without error when
// nothing matches.
func (r *BaseRepository[T]) FetchFirst(ctx context.Context, params FetchParams) (*T, error) {
	params.Limit = 1
	instances, err := r.FetchAll(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, nil
	}
	return instances[0], nil
}

// Fetch builds the fetch statement and scans matching rows into dest.
func (r *BaseRepository[T]) Fetch(ctx context.Context, dest any, params FetchParams) error {
	q, err := r.GetFetchStatement(params)
	if err != nil {
		return err
	}
	return q.Scan(ctx, dest)
}

// Count returns the number of matching rows; 0 when none qualify.
func (r *BaseRepository[T]) Count(ctx context.Context, where []filter.WhereClause, filtersBy map[string]any) (int, error) {
	q, err := r.GetFilterStatement(nil, where, filtersBy)
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

// Exists reports whether any row matches.
func (r *BaseRepository[T]) Exists(ctx context.Context, where []filter.WhereClause, filtersBy map[string]any) (bool, error) {
	q, err := r.GetFilterStatement(nil, where, filtersBy)
	if err != nil {
		return false, err
	}
	return q.Exists(ctx)
}

// Page returns one page of instances along with the total match count.
func (r *BaseRepository[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	var instances []*T
	q := r.db.NewSelect().Model(&instances)
	if page.GetFilter() != nil {
		q = q.Where(page.GetFilter().Schema, page.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())
	total, err := q.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	q = q.Offset(page.GetOffset()).Limit(page.GetPageSize())
	if orders := page.GetOrders(); len(orders) > 0 {
		q = q.Order(orders...)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = instances
	return pagination, nil
}

// Values projects a single column across filtered, ordered, joined rows.
// Order follows the statement ordering. Duplicates are preserved; this
// operation never deduplicates.
func Values[V any, T model.Model](ctx context.Context, r *BaseRepository[T], field string, params FetchParams) ([]V, error) {
	attr, ok := r.meta.Attribute(field)
	if !ok || attr.Kind.IsRelationship() {
		return nil, fmt.Errorf("repository: %q is not a projectable column of %q", field, r.meta.Name)
	}
	q, err := r.GetFetchStatement(params)
	if err != nil {
		return nil, err
	}
	var values []V
	if err := q.Column(attr.Name).Scan(ctx, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (r *BaseRepository[T]) hasToManyLoad(params FetchParams) bool {
	chains := make([]LoadChain, 0, len(params.JoinedLoad)+len(params.SelectInLoad))
	chains = append(chains, params.JoinedLoad...)
	chains = append(chains, params.SelectInLoad...)
	for _, chain := range chains {
		entity := r.meta
		for _, name := range chain {
			attr, ok := entity.Attribute(name)
			if !ok {
				break
			}
			if attr.Kind == metadata.KindToMany {
				return true
			}
			target, err := entity.Related(attr)
			if err != nil {
				break
			}
			entity = target
		}
	}
	return false
}

func (r *BaseRepository[T]) uniqueByPK(instances []*T) []*T {
	seen := make(map[any]struct{}, len(instances))
	unique := instances[:0]
	for _, instance := range instances {
		pk := r.pkValue(instance)
		if _, dup := seen[pk]; dup {
			continue
		}
		seen[pk] = struct{}{}
		unique = append(unique, instance)
	}
	return unique
}

func (r *BaseRepository[T]) pkValue(instance *T) any {
	field := reflect.ValueOf(instance).Elem().FieldByName(r.meta.PrimaryKey().GoName)
	if !field.IsValid() {
		return nil
	}
	return field.Interface()
}

func (r *BaseRepository[T]) pkIsZero(instance *T) bool {
	field := reflect.ValueOf(instance).Elem().FieldByName(r.meta.PrimaryKey().GoName)
	return !field.IsValid() || field.IsZero()
}
