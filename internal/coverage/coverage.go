// Package coverage normalizes heterogeneous raw vendor coverage declarations
// into a canonical structure used by the matching engine.
package coverage

import (
	"context"
	"fmt"
	"strings"
)

// Type is the canonical coverage type.
type Type string

const (
	// TypeZip is retained for records that declared raw ZIP lists; the
	// normalizer resolves ZIPs to counties and infers a broader type, so it
	// only appears in data synced from older sources.
	TypeZip Type = "zip"
	// TypeCounty covers an explicit set of "County, ST" entries.
	TypeCounty Type = "county"
	// TypeState covers whole states.
	TypeState Type = "state"
	// TypeNational matches any location; both sets stay empty.
	TypeNational Type = "national"
	// TypeGlobal matches any location; both sets stay empty.
	TypeGlobal Type = "global"
)

// Coverage is the canonical normalized geographic service area for a vendor.
type Coverage struct {
	Type     Type     `json:"type"`
	Counties []string `json:"counties"` // "County, ST" entries, unique, insertion order
	States   []string `json:"states"`   // 2-letter codes, unique, insertion order
}

// IsWildcard reports whether the coverage matches every location.
func (c Coverage) IsWildcard() bool {
	return c.Type == TypeNational || c.Type == TypeGlobal
}

// Contains reports whether the given resolved location falls inside the
// coverage area. County comparison is exact string equality on the
// canonical "County, ST" form.
func (c Coverage) Contains(county, state string) bool {
	switch c.Type {
	case TypeNational, TypeGlobal:
		return true
	case TypeState:
		if state == "" {
			return false
		}
		for _, s := range c.States {
			if s == state {
				return true
			}
		}
		return false
	default:
		if county == "" || state == "" {
			return false
		}
		key := CountyKey(county, state)
		for _, entry := range c.Counties {
			if entry == key {
				return true
			}
		}
		return false
	}
}

// CountyKey builds the canonical "County, ST" entry for a resolved location.
func CountyKey(county, state string) string {
	return fmt.Sprintf("%s, %s", strings.TrimSpace(county), strings.ToUpper(strings.TrimSpace(state)))
}

// Result is the outcome of normalizing one raw declaration. Normalization
// never fails: unparseable input degrades to an empty county coverage with
// warnings attached.
type Result struct {
	Coverage Coverage
	Warnings []string
}

// Place is a resolved ZIP location.
type Place struct {
	County string
	State  string
}

// GeoLookup resolves a 5-digit ZIP to its county and state.
type GeoLookup interface {
	Resolve(ctx context.Context, zip string) (Place, error)
}
