// Package filter implements the declarative `field__operator` filter DSL.
// A Filter string such as "author__name__exact" is parsed into a SQL
// predicate against entity metadata: the final segment selects a comparison
// operator, leading segments walk relationships via correlated EXISTS
// subqueries, and configured many-to-many mappings rewrite into existence
// predicates over their association entity. All parse errors are raised at
// transform time, never during query execution.
package filter
