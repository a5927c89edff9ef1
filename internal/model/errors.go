package model

import (
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors for failure classes the transport layer maps to status codes.
var (
	// ErrConflict covers duplicate logins, duplicate pending assignments and
	// duplicate active path assignments.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTest is returned when scoring against a test whose max score
	// is zero or negative.
	ErrInvalidTest = errors.New("invalid test")
	// ErrUnauthenticated is returned on a credential mismatch at login. It is
	// a normal failure value, not a programming error.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// NotFoundError reports a missing referenced entity, naming its kind and id.
// IDs are strings because notifications use uuid ids while everything else
// uses integers.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NotFound builds a NotFoundError for the given entity kind and numeric id.
func NotFound(kind string, id int64) error {
	return &NotFoundError{Kind: kind, ID: strconv.FormatInt(id, 10)}
}

// NotFoundID builds a NotFoundError for an entity with a string id.
func NotFoundID(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
