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

package schema_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit/metadata"
	"github.com/tomoncle/querykit/schema"
)

func TestIntFieldRejectsOverflowingUnsigned(t *testing.T) {
	max := int64(100)
	field := &schema.Field{Name: "count", Type: schema.FieldInt, Max: &max}

	// Unsigned values beyond int64 range must not wrap into the bounds.
	_, err := field.Validate(uint64(math.MaxUint64))
	require.Error(t, err)
	_, err = field.Validate(uint64(math.MaxInt64) + 1)
	require.Error(t, err)

	normalized, err := field.Validate(uint64(42))
	require.NoError(t, err)
	require.EqualValues(t, 42, normalized)

	normalized, err = field.Validate(uint(7))
	require.NoError(t, err)
	require.EqualValues(t, 7, normalized)
}

func newTestRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	r := metadata.NewRegistry()
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "profiles",
		Attributes: []*metadata.Attribute{
			{Name: "id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "name", Kind: metadata.KindColumn, Type: metadata.TypeString, Length: 30},
			{Name: "bio", Kind: metadata.KindColumn, Type: metadata.TypeText, Nullable: true},
			{Name: "age", Kind: metadata.KindColumn, Type: metadata.TypeSmallInteger},
			{Name: "active", Kind: metadata.KindColumn, Type: metadata.TypeBoolean},
			{Name: "balance", Kind: metadata.KindColumn, Type: metadata.TypeNumeric, Precision: 10, Scale: 2},
			{Name: "status", Kind: metadata.KindColumn, Type: metadata.TypeEnum, EnumValues: []string{"active", "blocked"}},
			{Name: "joined", Kind: metadata.KindColumn, Type: metadata.TypeDate},
			{Name: "updated", Kind: metadata.KindColumn, Type: metadata.TypeDateTime, Nullable: true},
			{Name: "timeout", Kind: metadata.KindColumn, Type: metadata.TypeInterval, Nullable: true},
			{Name: "tags", Kind: metadata.KindColumn, Type: metadata.TypeArray, Elem: metadata.TypeString},
			{Name: "settings", Kind: metadata.KindColumn, Type: metadata.TypeJSON, Nullable: true},
			{Name: "vacation", Kind: metadata.KindColumn, Type: metadata.TypeDateRange, Nullable: true},
			{Name: "group_id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, Nullable: true},
			{Name: "group", Kind: metadata.KindToOne, Target: "groups", JoinColumn: "group_id"},
			{Name: "memberships", Kind: metadata.KindToMany, Target: "memberships", JoinColumn: "profile_id"},
			{Name: "display_name", Kind: metadata.KindComputed, Type: metadata.TypeString},
			{Name: "score", Kind: metadata.KindComputed},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "groups",
		Attributes: []*metadata.Attribute{
			{Name: "id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "title", Kind: metadata.KindColumn, Type: metadata.TypeString, Length: 50},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "memberships",
		Attributes: []*metadata.Attribute{
			{Name: "id", Kind: metadata.KindColumn, Type: metadata.TypeInteger, PrimaryKey: true},
			{Name: "profile_id", Kind: metadata.KindColumn, Type: metadata.TypeInteger},
			{Name: "role", Kind: metadata.KindColumn, Type: metadata.TypeString, Length: 20},
		},
	}))
	require.NoError(t, r.Validate())
	return r
}

func entity(t *testing.T, r *metadata.Registry, name string) *metadata.Entity {
	t.Helper()
	e, err := r.Lookup(name)
	require.NoError(t, err)
	return e
}

func TestBuildColumnFields(t *testing.T) {
	r := newTestRegistry(t)
	builder := &schema.Builder{
		Name:   "Profile",
		Entity: entity(t, r, "profiles"),
		Fields: []schema.FieldSpec{
			schema.F("id"), schema.F("name"), schema.F("bio"), schema.F("age"),
			schema.F("active"), schema.F("balance"), schema.F("status"),
			schema.F("joined"), schema.F("updated"), schema.F("timeout"),
			schema.F("tags"), schema.F("settings"), schema.F("vacation"),
		},
	}
	s, err := builder.Build()
	require.NoError(t, err)

	name, ok := s.Field("name")
	require.True(t, ok)
	require.Equal(t, schema.FieldString, name.Type)
	require.Equal(t, 30, name.MaxLength)
	require.True(t, name.TrimWhitespace)
	require.False(t, name.Nullable)

	bio, _ := s.Field("bio")
	require.True(t, bio.Nullable)
	require.Zero(t, bio.MaxLength)

	age, _ := s.Field("age")
	require.Equal(t, schema.FieldInt, age.Type)
	require.EqualValues(t, -32768, *age.Min)
	require.EqualValues(t, 32767, *age.Max)

	id, _ := s.Field("id")
	require.EqualValues(t, -2147483648, *id.Min)
	require.EqualValues(t, 2147483647, *id.Max)

	balance, _ := s.Field("balance")
	require.Equal(t, schema.FieldDecimal, balance.Type)
	require.Equal(t, 10, balance.Precision)
	require.Equal(t, 2, balance.Scale)

	status, _ := s.Field("status")
	require.Equal(t, schema.FieldEnum, status.Type)
	require.Equal(t, []string{"active", "blocked"}, status.EnumValues)

	tags, _ := s.Field("tags")
	require.Equal(t, schema.FieldList, tags.Type)
	require.Equal(t, schema.FieldString, tags.Elem.Type)
}

func TestValidateNormalizesValues(t *testing.T) {
	r := newTestRegistry(t)
	s, err := (&schema.Builder{
		Entity: entity(t, r, "profiles"),
		Fields: []schema.FieldSpec{schema.F("name"), schema.F("age"), schema.F("status"), schema.F("bio")},
	}).Build()
	require.NoError(t, err)

	out, err := s.Validate(map[string]any{
		"name":   "  charles  ",
		"age":    42,
		"status": "active",
		"bio":    nil,
	})
	require.NoError(t, err)
	require.Equal(t, "charles", out["name"])
	require.EqualValues(t, 42, out["age"])
	require.Nil(t, out["bio"])
}

func TestValidateConstraintViolations(t *testing.T) {
	r := newTestRegistry(t)
	s, err := (&schema.Builder{
		Entity: entity(t, r, "profiles"),
		Fields: []schema.FieldSpec{schema.F("name"), schema.F("age"), schema.F("status")},
	}).Build()
	require.NoError(t, err)

	_, err = s.Validate(map[string]any{"name": "this name is way too long for the column",
		"age": 1, "status": "active"})
	require.ErrorContains(t, err, "longer than 30")

	_, err = s.Validate(map[string]any{"name": "x", "age": 99999, "status": "active"})
	require.ErrorContains(t, err, "above maximum")

	_, err = s.Validate(map[string]any{"name": "x", "age": 1, "status": "paused"})
	require.ErrorContains(t, err, "not one of")

	_, err = s.Validate(map[string]any{"name": nil, "age": 1, "status": "active"})
	require.ErrorContains(t, err, "required")

	_, err = s.Validate(map[string]any{"name": "x", "age": 1, "status": "active", "bogus": 1})
	require.ErrorContains(t, err, "unknown field")
}

func TestExtraFieldConfigAndValidators(t *testing.T) {
	r := newTestRegistry(t)
	minLen := 3
	s, err := (&schema.Builder{
		Entity: entity(t, r, "profiles"),
		Fields: []schema.FieldSpec{schema.F("name")},
		ExtraFieldConfig: map[string]schema.FieldConfig{
			"name": {MinLength: &minLen},
		},
		Validators: map[string][]schema.Validator{
			"name": {func(value any) error {
				if value == "forbidden" {
					return errTest
				}
				return nil
			}},
		},
	}).Build()
	require.NoError(t, err)

	_, err = s.Validate(map[string]any{"name": "ab"})
	require.ErrorContains(t, err, "shorter than 3")

	_, err = s.Validate(map[string]any{"name": "forbidden"})
	require.ErrorIs(t, err, errTest)

	_, err = s.Validate(map[string]any{"name": "fine"})
	require.NoError(t, err)
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "test validator rejected value" }

func TestRelationshipRequiresNestedSchema(t *testing.T) {
	r := newTestRegistry(t)
	_, err := (&schema.Builder{
		Entity: entity(t, r, "profiles"),
		Fields: []schema.FieldSpec{schema.F("group")},
	}).Build()
	require.ErrorIs(t, err, schema.ErrMissingRelationshipSchema)
}

func TestNestedSchemas(t *testing.T) {
	r := newTestRegistry(t)
	profiles := entity(t, r, "profiles")

	s, err := (&schema.Builder{
		Entity: profiles,
		Fields: []schema.FieldSpec{
			schema.F("name"),
			schema.Nested("group", &schema.Builder{
				Entity: entity(t, r, "groups"),
				Fields: []schema.FieldSpec{schema.F("id"), schema.F("title")},
			}),
			schema.Nested("memberships", &schema.Builder{
				Entity: entity(t, r, "memberships"),
				Fields: []schema.FieldSpec{schema.F("id"), schema.F("role")},
			}),
		},
	}).Build()
	require.NoError(t, err)

	group, _ := s.Field("group")
	require.Equal(t, schema.FieldNested, group.Type)
	require.False(t, group.List)
	// group_id is nullable, so the nested field is too.
	require.True(t, group.Nullable)

	memberships, _ := s.Field("memberships")
	require.True(t, memberships.List)

	out, err := s.Validate(map[string]any{
		"name":  "charles",
		"group": map[string]any{"id": 1, "title": "writers"},
		"memberships": []any{
			map[string]any{"id": 1, "role": "admin"},
			map[string]any{"id": 2, "role": "member"},
		},
	})
	require.NoError(t, err)
	require.Len(t, out["memberships"], 2)
}

func TestComputedFieldsNeedDeclaredType(t *testing.T) {
	r := newTestRegistry(t)
	profiles := entity(t, r, "profiles")

	s, err := (&schema.Builder{
		Entity: profiles,
		Fields: []schema.FieldSpec{schema.F("display_name")},
	}).Build()
	require.NoError(t, err)
	field, _ := s.Field("display_name")
	require.Equal(t, schema.FieldString, field.Type)

	_, err = (&schema.Builder{
		Entity: profiles,
		Fields: []schema.FieldSpec{schema.F("score")},
	}).Build()
	require.ErrorIs(t, err, schema.ErrUnsupportedType)
}

func TestBaseAndConfigConflict(t *testing.T) {
	r := newTestRegistry(t)
	profiles := entity(t, r, "profiles")

	base, err := (&schema.Builder{
		Entity: profiles,
		Fields: []schema.FieldSpec{schema.F("name")},
	}).Build()
	require.NoError(t, err)

	_, err = (&schema.Builder{
		Entity: profiles,
		Base:   base,
		Config: &schema.Config{},
		Fields: []schema.FieldSpec{schema.F("age")},
	}).Build()
	require.ErrorIs(t, err, schema.ErrConfigurationConflict)

	extended, err := (&schema.Builder{
		Entity: profiles,
		Base:   base,
		Fields: []schema.FieldSpec{schema.F("age")},
	}).Build()
	require.NoError(t, err)
	_, hasName := extended.Field("name")
	_, hasAge := extended.Field("age")
	require.True(t, hasName)
	require.True(t, hasAge)
}

func TestDateRangeNormalization(t *testing.T) {
	r := newTestRegistry(t)
	s, err := (&schema.Builder{
		Entity: entity(t, r, "profiles"),
		Fields: []schema.FieldSpec{schema.F("vacation")},
	}).Build()
	require.NoError(t, err)

	lower := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	upper := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	out, err := s.Validate(map[string]any{
		"vacation": &schema.DateRange{Lower: &lower, Upper: &upper, Bounds: schema.BoundIncludeExclude},
	})
	require.NoError(t, err)
	normalized := out["vacation"].(*schema.DateRange)
	require.Equal(t, schema.BoundIncludeInclude, normalized.Bounds)
	require.Equal(t, upper.AddDate(0, 0, -1), *normalized.Upper)

	_, err = s.Validate(map[string]any{
		"vacation": &schema.DateRange{Lower: &upper, Upper: &lower},
	})
	require.ErrorContains(t, err, "less than upper")
}
