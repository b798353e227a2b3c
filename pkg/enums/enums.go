// Package enums holds the string-backed enumerations shared by the API,
// the services and the database models.
package enums

import (
	"fmt"
	"slices"
)

type stringEnum interface{ ~string }

// lookup returns the member of set equal to the normalized raw value.
func lookup[E stringEnum](set []E, raw string, normalize func(string) string) (E, bool) {
	if normalize != nil {
		raw = normalize(raw)
	}
	i := slices.Index(set, E(raw))
	if i < 0 {
		var zero E
		return zero, false
	}
	return set[i], true
}

func parse[E stringEnum](kind string, set []E, raw string, normalize func(string) string) (E, error) {
	if v, ok := lookup(set, raw, normalize); ok {
		return v, nil
	}
	var zero E
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
