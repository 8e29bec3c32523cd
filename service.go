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

package querykit

import (
	"context"
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/database"
	"github.com/tomoncle/querykit/filter"
	"github.com/tomoncle/querykit/model"
	"github.com/tomoncle/querykit/repository"
	"github.com/tomoncle/querykit/types"
)

// Service is a convenience facade over the generic repository, bound lazily
// to the global database connection. For per-transaction work use the
// repository package directly.
type Service[T model.Model] interface {
	// Get returns a single entity by primary key, nil when not found.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities matching the given filters.
	List(ctx context.Context, where ...filter.WhereClause) ([]*T, error)

	// Find runs the full fetch pipeline.
	Find(ctx context.Context, params repository.FetchParams) ([]*T, error)

	// First returns the first entity matching the fetch params, nil when
	// nothing matches.
	First(ctx context.Context, params repository.FetchParams) (*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Count returns the number of matching entities.
	Count(ctx context.Context, where ...filter.WhereClause) (int, error)

	// Exists reports whether any entity matches.
	Exists(ctx context.Context, where ...filter.WhereClause) (bool, error)

	// Save persists the entity: insert when the primary key is unset,
	// otherwise update.
	Save(ctx context.Context, instance *T) (*T, error)

	// SaveAll inserts the entities in one batch.
	SaveAll(ctx context.Context, instances []*T) ([]*T, error)

	// Delete removes the entity.
	Delete(ctx context.Context, instance *T) error

	// DeleteWhere removes all matching entities in one statement.
	DeleteWhere(ctx context.Context, where ...filter.WhereClause) error

	// Repo exposes the underlying repository for advanced use.
	Repo() *repository.BaseRepository[T]

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery

	// InsertBuilder returns a Bun insert query builder for the entity.
	InsertBuilder() *bun.InsertQuery

	// UpdateBuilder returns a Bun update query builder for the entity.
	UpdateBuilder() *bun.UpdateQuery

	// DeleteBuilder returns a Bun delete query builder for the entity.
	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T model.Model] struct {
	repo *repository.BaseRepository[T]
	once sync.Once
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection.
func NewService[T model.Model]() Service[T] {
	return &baseServiceImpl[T]{}
}

func (s *baseServiceImpl[T]) baseRepo() *repository.BaseRepository[T] {
	s.once.Do(func() { s.repo = repository.MustNew[T](database.GetDB()) })
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo := s.baseRepo()
	pk := repo.Metadata().PrimaryKey().Name
	return repo.FetchFirst(ctx, repository.FetchParams{
		FiltersBy: map[string]any{pk: id},
	})
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().FetchAll(ctx, repository.FetchParams{})
}

func (s *baseServiceImpl[T]) List(ctx context.Context, where ...filter.WhereClause) ([]*T, error) {
	return s.baseRepo().FetchAll(ctx, repository.FetchParams{Where: where})
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, params repository.FetchParams) ([]*T, error) {
	return s.baseRepo().FetchAll(ctx, params)
}

func (s *baseServiceImpl[T]) First(ctx context.Context, params repository.FetchParams) (*T, error) {
	return s.baseRepo().FetchFirst(ctx, params)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, where ...filter.WhereClause) (int, error) {
	return s.baseRepo().Count(ctx, where, nil)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, where ...filter.WhereClause) (bool, error) {
	return s.baseRepo().Exists(ctx, where, nil)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, instance *T) (*T, error) {
	return s.baseRepo().Save(ctx, instance)
}

func (s *baseServiceImpl[T]) SaveAll(ctx context.Context, instances []*T) ([]*T, error) {
	return s.baseRepo().InsertBatch(ctx, instances)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, instance *T) error {
	return s.baseRepo().Delete(ctx, instance)
}

func (s *baseServiceImpl[T]) DeleteWhere(ctx context.Context, where ...filter.WhereClause) error {
	return s.baseRepo().DeleteBatch(ctx, where, nil)
}

func (s *baseServiceImpl[T]) Repo() *repository.BaseRepository[T] {
	return s.baseRepo()
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	return s.baseRepo().NewInsert()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.baseRepo().NewUpdate()
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	return s.baseRepo().NewDelete()
}
