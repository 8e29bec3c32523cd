// Package schema derives validation schemas from entity metadata: each
// storage type category maps to a field type with matching constraints, and
// relationship fields resolve through explicitly supplied nested schemas.
package schema
