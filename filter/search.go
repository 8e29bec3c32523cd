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
	"fmt"
	"strings"

	"github.com/tomoncle/querykit/metadata"
	"github.com/tomoncle/querykit/types"
)

// Search builds an OR-combination of case-insensitive substring matches over
// the given attributes, each cast to text.
//
// An empty or whitespace-only value matches nothing: the vacuous OR becomes
// a constant FALSE predicate. Callers that want "no search means no
// restriction" should skip the clause instead.
type Search struct {
	Fields []string
	Value  string
}

// Apply implements WhereClause.
func (s Search) Apply(entity *metadata.Entity) (*types.QueryFilter, error) {
	value := strings.TrimSpace(s.Value)
	if value == "" {
		return types.NewQueryFilter("FALSE"), nil
	}
	pattern := "%" + strings.ToLower(value) + "%"
	parts := make([]string, 0, len(s.Fields))
	args := make([]any, 0, len(s.Fields))
	for _, field := range s.Fields {
		attr, ok := entity.Attribute(field)
		if !ok || attr.Kind != metadata.KindColumn {
			return nil, fmt.Errorf("%w: entity %q has no searchable column %q", ErrInvalidFilterPath, entity.Name, field)
		}
		parts = append(parts, fmt.Sprintf("LOWER(CAST(%s.%s AS VARCHAR)) LIKE ?", entity.Alias, attr.Name))
		args = append(args, pattern)
	}
	return types.NewQueryFilter("("+strings.Join(parts, " OR ")+")", args...), nil
}
