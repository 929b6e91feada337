package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeID returns the canonical lowercase form of a user, post or
// request id. Every id is compared as a string after this, so two
// spellings of the same UUID never count as different rows.
func NormalizeID(id string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// NormalizeIDs normalizes every id in place and fails with
// ErrNotFound when any of them is not a UUID.
func NormalizeIDs(ids ...*string) error {
	for _, p := range ids {
		n, ok := NormalizeID(*p)
		if !ok {
			return ErrNotFound
		}
		*p = n
	}
	return nil
}
