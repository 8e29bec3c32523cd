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

package metadata

// Kind classifies an entity attribute.
type Kind int

const (
	// KindColumn is a plain mapped column.
	KindColumn Kind = iota
	// KindToOne is a many-to-one or one-to-one relationship.
	KindToOne
	// KindToMany is a one-to-many or many-to-many relationship.
	KindToMany
	// KindComputed is a derived attribute with no backing column.
	KindComputed
)

func (k Kind) String() string {
	switch k {
	case KindColumn:
		return "column"
	case KindToOne:
		return "to-one"
	case KindToMany:
		return "to-many"
	case KindComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// IsRelationship reports whether the attribute points at another entity.
func (k Kind) IsRelationship() bool {
	return k == KindToOne || k == KindToMany
}

// StorageType is the closed set of column type categories the toolkit
// understands. Schema generation maps each tag to a validation field type.
type StorageType int

const (
	TypeUnknown StorageType = iota
	TypeString
	TypeText
	TypeInteger
	TypeSmallInteger
	TypeEnum
	TypeDate
	TypeDateTime
	TypeBoolean
	TypeNumeric
	TypeInterval
	TypeArray
	TypeJSON
	TypeDateRange
)

func (t StorageType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeSmallInteger:
		return "small-integer"
	case TypeEnum:
		return "enum"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeBoolean:
		return "boolean"
	case TypeNumeric:
		return "numeric"
	case TypeInterval:
		return "interval"
	case TypeArray:
		return "array"
	case TypeJSON:
		return "json"
	case TypeDateRange:
		return "date-range"
	default:
		return "unknown"
	}
}
