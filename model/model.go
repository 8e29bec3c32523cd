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

package model

import "time"

// Model ties a Bun struct to its metadata registry entry. ModelName must
// return the name the entity was registered under.
type Model interface {
	ModelName() string
}

// SoftDeletable is implemented by models embedding SoftDeleteModel.
type SoftDeletable interface {
	MarkDeleted(at time.Time)
	ClearDeleted()
	DeletedAt() *time.Time
}

// IDModel adds an auto-incrementing integer primary key.
type IDModel struct {
	ID int64 `bun:"id,pk,autoincrement" json:"id"`
}

// TimeStampedModel adds created/modified timestamps maintained by the
// database.
type TimeStampedModel struct {
	Created  time.Time `bun:"created,nullzero,notnull,default:current_timestamp" json:"created"`
	Modified time.Time `bun:"modified,nullzero,notnull,default:current_timestamp" json:"modified"`
}

// SoftDeleteModel adds a nullable deletion marker. A nil Deleted means the
// row is active; a set value means it is soft-deleted.
type SoftDeleteModel struct {
	Deleted *time.Time `bun:"deleted,nullzero" json:"deleted,omitempty"`
}

// MarkDeleted sets the deletion marker.
func (m *SoftDeleteModel) MarkDeleted(at time.Time) {
	at = at.UTC()
	m.Deleted = &at
}

// ClearDeleted unsets the deletion marker, restoring the row to active.
func (m *SoftDeleteModel) ClearDeleted() {
	m.Deleted = nil
}

// DeletedAt returns the deletion marker, nil when active.
func (m *SoftDeleteModel) DeletedAt() *time.Time {
	return m.Deleted
}

// TimeStampedIDModel is the common base: integer pk plus timestamps.
type TimeStampedIDModel struct {
	IDModel
	TimeStampedModel
}

// SoftDeleteIDModel is TimeStampedIDModel with soft-delete support.
type SoftDeleteIDModel struct {
	IDModel
	TimeStampedModel
	SoftDeleteModel
}

// TimeStampedColumns are the column names added by TimeStampedModel.
// Typically excluded from bulk inserts so the database fills them.
var TimeStampedColumns = []string{"created", "modified"}
