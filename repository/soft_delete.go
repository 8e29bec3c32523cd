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
	"time"

	"github.com/uptrace/bun"

	"github.com/tomoncle/querykit/model"
)

// SoftDeleteRepository overrides Delete to mark rows deleted instead of
// removing them. Every other operation behaves exactly like BaseRepository:
// reads are NOT filtered, soft-deleted rows stay visible unless the caller
// filters them out.
type SoftDeleteRepository[T model.Model] struct {
	*BaseRepository[T]
}

// NewSoftDelete returns a soft-delete repository for T. *T must implement
// model.SoftDeletable, typically by embedding model.SoftDeleteModel.
func NewSoftDelete[T model.Model](db bun.IDB) (*SoftDeleteRepository[T], error) {
	base, err := New[T](db)
	if err != nil {
		return nil, err
	}
	var zero T
	if _, ok := any(&zero).(model.SoftDeletable); !ok {
		return nil, fmt.Errorf("repository: %q does not support soft deletion", base.meta.Name)
	}
	return &SoftDeleteRepository[T]{BaseRepository: base}, nil
}

// MustNewSoftDelete is NewSoftDelete panicking on errors.
func MustNewSoftDelete[T model.Model](db bun.IDB) *SoftDeleteRepository[T] {
	repo, err := NewSoftDelete[T](db)
	if err != nil {
		panic(err)
	}
	return repo
}

// Delete marks the instance deleted at the current UTC time and saves it.
// The row stays in the store.
func (r *SoftDeleteRepository[T]) Delete(ctx context.Context, instance *T) error {
	any(instance).(model.SoftDeletable).MarkDeleted(time.Now())
	_, err := r.Save(ctx, instance)
	return err
}

// Restore clears the deletion marker and saves the instance.
func (r *SoftDeleteRepository[T]) Restore(ctx context.Context, instance *T) error {
	any(instance).(model.SoftDeletable).ClearDeleted()
	_, err := r.Save(ctx, instance)
	return err
}

// ForceDelete removes the instance permanently, bypassing soft deletion.
func (r *SoftDeleteRepository[T]) ForceDelete(ctx context.Context, instance *T) error {
	return r.BaseRepository.Delete(ctx, instance)
}
