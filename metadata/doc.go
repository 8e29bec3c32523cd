// Package metadata holds the entity metadata registry: per-entity tables,
// aliases, typed attributes, relationship wiring, and many-to-many filter
// configuration. The registry is built once at startup and consulted by the
// filter DSL, the repository, and the schema generator.
package metadata
