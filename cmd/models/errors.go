package models

import "errors"

// Storage collaborator errors. Store implementations translate driver
// failures into these so callers never branch on raw database error text.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)
