package tabulation

import (
	"fmt"
	"strings"
)

// StoreMode selects how Store treats an existing entry.
type StoreMode int

const (
	// ReuseIfPresent skips the write when a valid entry already exists.
	ReuseIfPresent StoreMode = iota
	// CreateOnly fails with ErrConflict when an entry exists.
	CreateOnly
	// Overwrite always replaces the stored entry.
	Overwrite
)

func (m StoreMode) String() string {
	switch m {
	case CreateOnly:
		return "create"
	case Overwrite:
		return "overwrite"
	case ReuseIfPresent:
		return "reuse"
	default:
		return fmt.Sprintf("StoreMode(%d)", int(m))
	}
}

// ParseStoreMode parses "create", "overwrite" or "reuse" (case-insensitive).
func ParseStoreMode(s string) (StoreMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create", "create-only", "createonly":
		return CreateOnly, nil
	case "overwrite":
		return Overwrite, nil
	case "reuse", "", "reuse-if-present":
		return ReuseIfPresent, nil
	}
	return 0, fmt.Errorf("unknown store mode %q (want create, overwrite or reuse)", s)
}
