package storage

import "errors"

// ErrSlugConflict is returned when a slug is already used by another project.
var ErrSlugConflict = errors.New("slug already in use")

// NotFoundError is returned when a project or mapping doesn't exist in the store.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "project"
	}
	if e.Key == "" {
		return kind + " not found"
	}

	return kind + " not found: " + e.Key
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
