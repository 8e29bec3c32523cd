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

// Package ordering provides symbolic, self-documenting ordering tokens for
// the repository's query pipeline. A Set declares ascending member names and
// derives a `<name>_desc` counterpart for each at construction time; plain
// `-name` strings and raw SQL expressions are accepted alongside.
package ordering

import (
	"fmt"
	"strings"
)

// Clause converts an ordering token into a SQL ORDER BY term such as
// "name ASC" or "name DESC".
type Clause interface {
	OrderExpr() string
}

// Field is a plain attribute-name clause. A leading "-" means descending.
type Field string

// OrderExpr implements Clause. A blank attribute name yields an empty
// expression, which consumers drop.
func (f Field) OrderExpr() string {
	name := strings.TrimPrefix(string(f), "-")
	if name == "" {
		return ""
	}
	if strings.HasPrefix(string(f), "-") {
		return name + " DESC"
	}
	return name + " ASC"
}

// Expr is a pre-built ordering expression passed through untouched.
type Expr string

// OrderExpr implements Clause.
func (e Expr) OrderExpr() string {
	return string(e)
}

// Member is one token of a Set. Its value follows the Field convention.
type Member struct {
	name  string
	value string
}

// Name returns the member's symbolic name, e.g. "title_desc".
func (m Member) Name() string { return m.name }

// String returns the member's value, e.g. "-title".
func (m Member) String() string { return m.value }

// Desc reports whether the member orders descending.
func (m Member) Desc() bool { return strings.HasPrefix(m.value, "-") }

// OrderExpr implements Clause.
func (m Member) OrderExpr() string {
	return Field(m.value).OrderExpr()
}

// Set is a fixed enumeration of ordering members. For every declared
// ascending name there is exactly one `<name>_desc` member with value
// `-<name>`, derived when the set is built.
type Set struct {
	members map[string]Member
	names   []string
}

// NewSet builds a Set from ascending attribute names.
func NewSet(names ...string) *Set {
	set := &Set{members: make(map[string]Member, len(names)*2)}
	for _, name := range names {
		set.add(Member{name: name, value: name})
	}
	for _, name := range names {
		set.add(Member{name: name + "_desc", value: "-" + name})
	}
	return set
}

func (s *Set) add(m Member) {
	if _, exists := s.members[m.name]; exists {
		return
	}
	s.members[m.name] = m
	s.names = append(s.names, m.name)
}

// Member looks up a member by symbolic name.
func (s *Set) Member(name string) (Member, bool) {
	m, ok := s.members[name]
	return m, ok
}

// MustMember looks up a member and panics when absent. Intended for
// declaring API constants.
func (s *Set) MustMember(name string) Member {
	m, ok := s.members[name]
	if !ok {
		panic(fmt.Sprintf("ordering: set has no member %q", name))
	}
	return m
}

// Names returns all member names, ascending members first.
func (s *Set) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Fields converts plain strings into clauses, preserving order.
func Fields(names ...string) []Clause {
	clauses := make([]Clause, len(names))
	for i, name := range names {
		clauses[i] = Field(name)
	}
	return clauses
}
