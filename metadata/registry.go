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

import (
	"fmt"
	"sort"
	"sync"
)

var defaultRegistry = NewRegistry()

// Registry stores entity metadata. Entries are registered once at process
// start and read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewRegistry returns an empty metadata registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Entity)}
}

// Register validates and adds an entity. Cross-entity invariants (targets of
// relationships, m2m column references) are checked by Validate once all
// entities are registered.
func (r *Registry) Register(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("metadata: cannot register nil entity")
	}
	if err := entity.prepare(r); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entities[entity.Name]; exists {
		return fmt.Errorf("metadata: entity %q already registered", entity.Name)
	}
	r.entities[entity.Name] = entity
	return nil
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entity, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("metadata: entity %q is not registered", name)
	}
	return entity, nil
}

// Validate checks cross-entity invariants for every registered entity.
// Call it once after all registrations, typically during startup.
// The registry lock is released before the checks run: checkCrossReferences
// resolves relationship targets through Lookup, which takes the lock itself.
func (r *Registry) Validate() error {
	r.mu.RLock()
	entities := make([]*Entity, 0, len(r.entities))
	for _, entity := range r.entities {
		entities = append(entities, entity)
	}
	r.mu.RUnlock()
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	for _, entity := range entities {
		if err := entity.checkCrossReferences(); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds an entity to the default registry.
func Register(entity *Entity) error {
	return defaultRegistry.Register(entity)
}

// MustRegister adds an entity to the default registry and panics on error.
// Intended for init-time model declarations.
func MustRegister(entity *Entity) {
	if err := Register(entity); err != nil {
		panic(err)
	}
}

// Lookup returns an entity from the default registry.
func Lookup(name string) (*Entity, error) {
	return defaultRegistry.Lookup(name)
}

// Validate checks cross-entity invariants on the default registry.
func Validate() error {
	return defaultRegistry.Validate()
}
