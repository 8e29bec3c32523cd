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

package ordering_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit/ordering"
)

func TestFieldOrderExpr(t *testing.T) {
	require.Equal(t, "name ASC", ordering.Field("name").OrderExpr())
	require.Equal(t, "name DESC", ordering.Field("-name").OrderExpr())
}

func TestFieldBlankNameYieldsNoExpression(t *testing.T) {
	require.Empty(t, ordering.Field("").OrderExpr())
	require.Empty(t, ordering.Field("-").OrderExpr())
}

func TestExprPassesThrough(t *testing.T) {
	require.Equal(t, "LENGTH(title) DESC", ordering.Expr("LENGTH(title) DESC").OrderExpr())
}

func TestSetDerivesDescendingMembers(t *testing.T) {
	set := ordering.NewSet("name", "created")

	require.Equal(t, []string{"name", "created", "name_desc", "created_desc"}, set.Names())

	asc, ok := set.Member("name")
	require.True(t, ok)
	require.Equal(t, "name", asc.String())
	require.False(t, asc.Desc())
	require.Equal(t, "name ASC", asc.OrderExpr())

	desc, ok := set.Member("name_desc")
	require.True(t, ok)
	require.Equal(t, "-name", desc.String())
	require.True(t, desc.Desc())
	require.Equal(t, "name DESC", desc.OrderExpr())
}

func TestSetUnknownMember(t *testing.T) {
	set := ordering.NewSet("name")

	_, ok := set.Member("title")
	require.False(t, ok)
	require.Panics(t, func() { set.MustMember("title") })
}

func TestFieldsConvertsNames(t *testing.T) {
	clauses := ordering.Fields("name", "-created")
	require.Len(t, clauses, 2)
	require.Equal(t, "name ASC", clauses[0].OrderExpr())
	require.Equal(t, "created DESC", clauses[1].OrderExpr())
}
