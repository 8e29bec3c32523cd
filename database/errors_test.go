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

package database_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit/database"
)

func TestIsSqlErrorMysqlTyped(t *testing.T) {
	tests := []struct {
		number uint16
		want   database.SQLError
	}{
		{1054, database.NoColumnErr},
		{1146, database.NoTableErr},
		{1062, database.DuplicateKeyErr},
		{1048, database.NotNullViolationErr},
		{1452, database.ForeignKeyViolationErr},
		{3819, database.CheckConstraintViolationErr},
		{1265, database.DataTruncatedErr},
		{9999, database.UnknownErr},
	}
	for _, tt := range tests {
		err := &mysql.MySQLError{Number: tt.number, Message: "boom"}
		is, kind := database.IsSqlError(err)
		require.True(t, is, tt.number)
		require.Equal(t, tt.want, kind, tt.number)
	}
}

func TestIsSqlErrorPostgresTyped(t *testing.T) {
	tests := []struct {
		code pq.ErrorCode
		want database.SQLError
	}{
		{"42703", database.NoColumnErr},
		{"42P01", database.NoTableErr},
		{"23505", database.DuplicateKeyErr},
		{"23502", database.NotNullViolationErr},
		{"23503", database.ForeignKeyViolationErr},
		{"23514", database.CheckConstraintViolationErr},
		{"22001", database.DataTruncatedErr},
		{"42804", database.InvalidTypeCastErr},
		{"57014", database.UnknownErr},
	}
	for _, tt := range tests {
		err := &pq.Error{Code: tt.code, Message: "boom"}
		is, kind := database.IsSqlError(err)
		require.True(t, is, tt.code)
		require.Equal(t, tt.want, kind, tt.code)
	}
}

func TestIsSqlErrorUnwrapsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("insert notes: %w", &pq.Error{Code: "23505"})
	is, kind := database.IsSqlError(wrapped)
	require.True(t, is)
	require.Equal(t, database.DuplicateKeyErr, kind)

	is, kind = database.IsSqlError(fmt.Errorf("scan: %w", sql.ErrNoRows))
	require.True(t, is)
	require.Equal(t, database.NoRowsErr, kind)
}

func TestIsSqlErrorMessageFallback(t *testing.T) {
	tests := []struct {
		message string
		want    database.SQLError
	}{
		{"SQLite error: UNIQUE constraint failed: notes.id", database.DuplicateKeyErr},
		{"SQLite error: NOT NULL constraint failed: notes.body", database.NotNullViolationErr},
		{"SQLite error: FOREIGN KEY constraint failed", database.ForeignKeyViolationErr},
		{"SQLite error: no such table: missing", database.NoTableErr},
		{"SQLite error: no such column: missing", database.NoColumnErr},
		{"SQLite error: datatype mismatch", database.InvalidTypeCastErr},
	}
	for _, tt := range tests {
		is, kind := database.IsSqlError(errors.New(tt.message))
		require.True(t, is, tt.message)
		require.Equal(t, tt.want, kind, tt.message)
	}
}

func TestIsSqlErrorUnrecognized(t *testing.T) {
	is, kind := database.IsSqlError(errors.New("connection reset by peer"))
	require.False(t, is)
	require.Equal(t, database.UnknownErr, kind)
}
