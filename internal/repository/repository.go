// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, mongo) inside this directory.
package repository

import "errors"

// ErrNotFound is returned by implementations when no row matches an ID.
var ErrNotFound = errors.New("record not found")

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
