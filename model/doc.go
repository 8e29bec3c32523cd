// Package model provides base mixins for Bun models: integer primary key,
// database-maintained timestamps, and a soft-delete marker.
package model
