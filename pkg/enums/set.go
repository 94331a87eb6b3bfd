package enums

import (
	"fmt"
	"slices"
	"strings"
)

// member reports whether v is one of the known values.
func member[T ~string](v T, known []T) bool {
	return slices.Contains(known, v)
}

// parse matches raw against known after trimming and lowercasing.
func parse[T ~string](kind, raw string, known []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if member(v, known) {
		return v, nil
	}
	return "", errInvalid(kind, raw)
}

func errInvalid(kind, raw string) error {
	return fmt.Errorf("invalid %s %q", kind, raw)
}
