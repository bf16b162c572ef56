package domain

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewShapeID returns a globally unique shape identifier.
func NewShapeID() string {
	return uuid.New().String()
}

// NewClientID returns a sortable identifier for a client session.
func NewClientID() string {
	return ulid.Make().String()
}
