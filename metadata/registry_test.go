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

package metadata_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomoncle/querykit/metadata"
)

func column(name string, pk bool) *metadata.Attribute {
	return &metadata.Attribute{
		Name:       name,
		Kind:       metadata.KindColumn,
		Type:       metadata.TypeInteger,
		PrimaryKey: pk,
	}
}

func TestRegisterRequiresExactlyOnePrimaryKey(t *testing.T) {
	r := metadata.NewRegistry()

	err := r.Register(&metadata.Entity{
		Name:       "widgets",
		Attributes: []*metadata.Attribute{column("a", false)},
	})
	require.ErrorContains(t, err, "no primary key")

	err = r.Register(&metadata.Entity{
		Name:       "widgets",
		Attributes: []*metadata.Attribute{column("a", true), column("b", true)},
	})
	require.ErrorContains(t, err, "more than one primary key")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := metadata.NewRegistry()

	err := r.Register(&metadata.Entity{
		Name:       "widgets",
		Attributes: []*metadata.Attribute{column("id", true), column("id", false)},
	})
	require.ErrorContains(t, err, "twice")

	require.NoError(t, r.Register(&metadata.Entity{
		Name:       "widgets",
		Attributes: []*metadata.Attribute{column("id", true)},
	}))
	err = r.Register(&metadata.Entity{
		Name:       "widgets",
		Attributes: []*metadata.Attribute{column("id", true)},
	})
	require.ErrorContains(t, err, "already registered")
}

func TestRegisterRequiresRelationshipWiring(t *testing.T) {
	r := metadata.NewRegistry()

	err := r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			{Name: "parts", Kind: metadata.KindToMany, JoinColumn: "widget_id"},
		},
	})
	require.ErrorContains(t, err, "no target entity")

	err = r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			{Name: "parts", Kind: metadata.KindToMany, Target: "parts"},
		},
	})
	require.ErrorContains(t, err, "no join column")
}

func TestValidateChecksCrossReferences(t *testing.T) {
	r := metadata.NewRegistry()
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			{Name: "parts", Kind: metadata.KindToMany, Target: "parts", JoinColumn: "widget_id"},
		},
	}))

	err := r.Validate()
	require.ErrorContains(t, err, "not registered")

	require.NoError(t, r.Register(&metadata.Entity{
		Name: "parts",
		Attributes: []*metadata.Attribute{
			column("id", true),
			column("widget_id", false),
		},
	}))
	require.NoError(t, r.Validate())
}

func TestM2MFilterValidation(t *testing.T) {
	r := metadata.NewRegistry()

	err := r.Register(&metadata.Entity{
		Name:       "widgets",
		Attributes: []*metadata.Attribute{column("id", true)},
		M2MFilters: map[string]metadata.M2MFilterConfig{
			"links": {RelationField: "links", FilterField: "tag_id", MatchField: "owner_id"},
		},
	})
	require.ErrorContains(t, err, "unknown relation")

	err = r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			{Name: "links", Kind: metadata.KindToOne, Target: "links", JoinColumn: "link_id"},
		},
		M2MFilters: map[string]metadata.M2MFilterConfig{
			"links": {RelationField: "links", FilterField: "tag_id", MatchField: "owner_id"},
		},
	})
	require.ErrorContains(t, err, "to-many")
}

func TestM2MFilterCrossReferences(t *testing.T) {
	r := metadata.NewRegistry()
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			{Name: "links", Kind: metadata.KindToMany, Target: "widget_tags", JoinColumn: "owner_id"},
		},
		M2MFilters: map[string]metadata.M2MFilterConfig{
			"links": {RelationField: "links", FilterField: "tag_id", MatchField: "owner_id"},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "widget_tags",
		Attributes: []*metadata.Attribute{
			column("id", true),
			column("owner_id", false),
		},
	}))

	// tag_id is missing on the association entity.
	err := r.Validate()
	require.ErrorContains(t, err, "unknown column")
}

func TestValidateConcurrentWithRegister(t *testing.T) {
	r := metadata.NewRegistry()
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			{Name: "parts", Kind: metadata.KindToMany, Target: "parts", JoinColumn: "widget_id"},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name:       "parts",
		Attributes: []*metadata.Attribute{column("id", true), column("widget_id", false)},
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(&metadata.Entity{
				Name:       fmt.Sprintf("gadgets_%d", i),
				Attributes: []*metadata.Attribute{column("id", true)},
			})
		}(i)
		go func() {
			defer wg.Done()
			if err := r.Validate(); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, r.Validate())
}

func TestGoNameDerivation(t *testing.T) {
	r := metadata.NewRegistry()
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			column("related_model_id", false),
			column("avatar_url", false),
			{Name: "payload", Kind: metadata.KindColumn, Type: metadata.TypeJSON, GoName: "RawPayload"},
		},
	}))
	entity, err := r.Lookup("widgets")
	require.NoError(t, err)

	tests := map[string]string{
		"id":               "ID",
		"related_model_id": "RelatedModelID",
		"avatar_url":       "AvatarURL",
		"payload":          "RawPayload",
	}
	for name, goName := range tests {
		attr, ok := entity.Attribute(name)
		require.True(t, ok, name)
		require.Equal(t, goName, attr.GoName)
	}
}

func TestEntityHelpers(t *testing.T) {
	r := metadata.NewRegistry()
	require.NoError(t, r.Register(&metadata.Entity{
		Name: "widgets",
		Attributes: []*metadata.Attribute{
			column("id", true),
			column("weight", false),
			{Name: "parts", Kind: metadata.KindToMany, Target: "parts", JoinColumn: "widget_id"},
			{Name: "total", Kind: metadata.KindComputed, Type: metadata.TypeInteger},
		},
	}))
	require.NoError(t, r.Register(&metadata.Entity{
		Name:       "parts",
		Attributes: []*metadata.Attribute{column("id", true), column("widget_id", false)},
	}))

	widgets, err := r.Lookup("widgets")
	require.NoError(t, err)
	require.Equal(t, "widgets", widgets.Table)
	require.Equal(t, "widgets", widgets.Alias)
	require.Equal(t, "id", widgets.PrimaryKey().Name)
	require.Equal(t, []string{"id", "weight"}, widgets.ColumnNames())

	parts, ok := widgets.Attribute("parts")
	require.True(t, ok)
	target, err := widgets.Related(parts)
	require.NoError(t, err)
	require.Equal(t, "parts", target.Name)

	weight, _ := widgets.Attribute("weight")
	_, err = widgets.Related(weight)
	require.Error(t, err)
}
