package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by repositories when the requested row is absent
// or filtered out (inactive, wrong role, superseded).
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err represents a missing row, regardless
// of which layer produced it.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
