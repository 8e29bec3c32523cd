// Package repository provides a generic Bun-backed repository: immediate
// CRUD writes, batch operations, a composable statement pipeline
// (eager-load, annotate, order, filter, paginate), and a soft-delete
// variant.
package repository
