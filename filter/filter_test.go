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

package filter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit/filter"
	"github.com/tomoncle/querykit/metadata"
)

func newTestRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	r := metadata.NewRegistry()
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "authors",
		Attributes: []*metadata.Attribute{
			{Name: "id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "name", Kind: metadata.KindColumn, Type: metadata.TypeString, Length: 100},
			{Name: "count", Kind: metadata.KindColumn, Type: metadata.TypeInteger},
			{Name: "books", Kind: metadata.KindToMany, Target: "books", JoinColumn: "author_id"},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "books",
		Attributes: []*metadata.Attribute{
			{Name: "id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "title", Kind: metadata.KindColumn, Type: metadata.TypeString, Length: 200},
			{Name: "author_id", Kind: metadata.KindColumn, Type: metadata.TypeInteger},
			{Name: "author", Kind: metadata.KindToOne, Target: "authors", JoinColumn: "author_id"},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "boards",
		Attributes: []*metadata.Attribute{
			{Name: "id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "name", Kind: metadata.KindColumn, Type: metadata.TypeString, Length: 50},
			{Name: "links", Kind: metadata.KindToMany, Target: "board_tags", JoinColumn: "owner_id"},
		},
		M2MFilters: map[string]metadata.M2MFilterConfig{
			"links": {RelationField: "links", FilterField: "tag_id", MatchField: "owner_id"},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "board_tags",
		Attributes: []*metadata.Attribute{
			{Name: "id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "owner_id", Kind: metadata.KindColumn, Type: metadata.TypeInteger},
			{Name: "tag_id", Kind: metadata.KindColumn, Type: metadata.TypeInteger},
		},
	}))
	require.NoError(t, r.Validate())
	return r
}

func mustLookup(t *testing.T, r *metadata.Registry, name string) *metadata.Entity {
	t.Helper()
	entity, err := r.Lookup(name)
	require.NoError(t, err)
	return entity
}

func TestFilterColumnOperators(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	tests := []struct {
		name   string
		filter filter.Filter
		schema string
		args   int
	}{
		{"implicit exact", filter.New("name", "dickens"), "authors.name = ?", 1},
		{"explicit exact", filter.New("name__exact", "dickens"), "authors.name = ?", 1},
		{"exact nil", filter.New("name", nil), "authors.name IS NULL", 0},
		{"is nil", filter.New("name__is", nil), "authors.name IS NULL", 0},
		{"gt", filter.New("count__gt", 1), "authors.count > ?", 1},
		{"gte", filter.New("count__gte", 1), "authors.count >= ?", 1},
		{"lt", filter.New("count__lt", 1), "authors.count < ?", 1},
		{"lte", filter.New("count__lte", 1), "authors.count <= ?", 1},
		{"in", filter.New("count__in", []int{1, 2}), "authors.count IN (?)", 1},
		{"overlaps", filter.New("count__overlaps", "[1,3]"), "authors.count && ?", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predicate, err := tt.filter.Apply(authors)
			require.NoError(t, err)
			require.Equal(t, tt.schema, predicate.Schema)
			require.Len(t, predicate.Args, tt.args)
		})
	}
}

func TestFilterExcludeNegates(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	predicate, err := filter.Not("name", "dickens").Apply(authors)
	require.NoError(t, err)
	require.Equal(t, "NOT (authors.name = ?)", predicate.Schema)
	require.Equal(t, []any{"dickens"}, predicate.Args)
}

func TestFilterInvalidPaths(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	_, err := filter.New("count__gt__lt", 1).Apply(authors)
	require.ErrorIs(t, err, filter.ErrInvalidFilterPath)

	_, err = filter.New("missing", 1).Apply(authors)
	require.ErrorIs(t, err, filter.ErrInvalidFilterPath)

	_, err = filter.New("books", 1).Apply(authors)
	require.ErrorIs(t, err, filter.ErrInvalidFilterPath)
}

func TestFilterUnknownOperator(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	_, err := filter.New("count__between", 1).Apply(authors)
	require.ErrorIs(t, err, filter.ErrUnknownOperator)
}

func TestFilterToOneTraversal(t *testing.T) {
	r := newTestRegistry(t)
	books := mustLookup(t, r, "books")

	predicate, err := filter.New("author__name__exact", "dickens").Apply(books)
	require.NoError(t, err)
	require.Equal(t,
		"EXISTS (SELECT 1 FROM authors AS _f1 WHERE _f1.id = books.author_id AND _f1.name = ?)",
		predicate.Schema)
	require.Equal(t, []any{"dickens"}, predicate.Args)
}

func TestFilterToManyTraversal(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	predicate, err := filter.New("books__title", "bleak house").Apply(authors)
	require.NoError(t, err)
	require.Equal(t,
		"EXISTS (SELECT 1 FROM books AS _f1 WHERE _f1.author_id = authors.id AND _f1.title = ?)",
		predicate.Schema)
}

func TestFilterNestedTraversalAliases(t *testing.T) {
	r := newTestRegistry(t)
	books := mustLookup(t, r, "books")

	// Two hops: book -> author -> any of the author's books.
	predicate, err := filter.New("author__books__title", "bleak house").Apply(books)
	require.NoError(t, err)
	require.Equal(t,
		"EXISTS (SELECT 1 FROM authors AS _f1 WHERE _f1.id = books.author_id AND "+
			"EXISTS (SELECT 1 FROM books AS _f2 WHERE _f2.author_id = _f1.id AND _f2.title = ?))",
		predicate.Schema)
}

func TestFilterM2MConfig(t *testing.T) {
	r := newTestRegistry(t)
	boards := mustLookup(t, r, "boards")

	predicate, err := filter.New("links__tag_id__in", []int{5}).Apply(boards)
	require.NoError(t, err)
	require.Equal(t,
		"EXISTS (SELECT 1 FROM board_tags AS _f1 WHERE _f1.owner_id = boards.id AND _f1.tag_id IN (?))",
		predicate.Schema)
	require.Len(t, predicate.Args, 1)

	// The shorthand without the filter column spelled out is equivalent.
	short, err := filter.New("links__in", []int{5}).Apply(boards)
	require.NoError(t, err)
	require.Equal(t, predicate.Schema, short.Schema)
}

func TestRawPassesThrough(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	predicate, err := filter.Raw{SQL: "authors.count % 2 = ?", Args: []any{0}}.Apply(authors)
	require.NoError(t, err)
	require.Equal(t, "authors.count % 2 = ?", predicate.Schema)
	require.Equal(t, []any{0}, predicate.Args)
}

func TestSearchMatchesNothingOnEmptyValue(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	for _, value := range []string{"", "   "} {
		predicate, err := filter.Search{Fields: []string{"name"}, Value: value}.Apply(authors)
		require.NoError(t, err)
		require.Equal(t, "FALSE", predicate.Schema)
		require.Empty(t, predicate.Args)
	}
}

func TestSearchBuildsCaseInsensitiveOr(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	predicate, err := filter.Search{Fields: []string{"name", "count"}, Value: "Dickens"}.Apply(authors)
	require.NoError(t, err)
	require.Equal(t,
		"(LOWER(CAST(authors.name AS VARCHAR)) LIKE ? OR LOWER(CAST(authors.count AS VARCHAR)) LIKE ?)",
		predicate.Schema)
	require.Equal(t, []any{"%dickens%", "%dickens%"}, predicate.Args)
}

func TestSearchRejectsNonColumns(t *testing.T) {
	r := newTestRegistry(t)
	authors := mustLookup(t, r, "authors")

	_, err := filter.Search{Fields: []string{"books"}, Value: "x"}.Apply(authors)
	require.ErrorIs(t, err, filter.ErrInvalidFilterPath)
}
