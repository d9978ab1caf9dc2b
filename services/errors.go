package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers every missing-resource case: unknown group slug,
	// unknown username, missing post, or a post reached through the wrong
	// author segment. Callers get one generic signal and cannot tell which
	// sub-condition fired.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthor marks an edit attempt by someone other than the post's
	// author. The operation performs no mutation and still hands back the
	// unchanged post; the HTTP layer answers 200 with the original resource
	// so the refusal stays undisclosed.
	ErrNotAuthor = errors.New("caller is not the author")
)

// ValidationErrors maps field names to human-readable messages. A write
// operation that returns it has performed no mutation.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsAuthor reports whether the caller owns the post. Authorization is this
// single comparison; there is no role model behind it.
func IsAuthor(callerID uint, authorID uint) bool {
	return callerID == authorID
}
