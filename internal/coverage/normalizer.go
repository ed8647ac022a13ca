package coverage

import (
	"context"
	"fmt"
	"strings"
)

// Normalizer parses raw coverage declarations into canonical Coverage values.
// It is deterministic given identical input and geo lookup answers, which the
// reconciliation engine relies on for idempotency.
type Normalizer struct {
	geo   GeoLookup
	rules []rule
}

// NewNormalizer creates a normalizer backed by the given ZIP lookup.
func NewNormalizer(geo GeoLookup) *Normalizer {
	return &Normalizer{geo: geo, rules: defaultRules()}
}

// Normalize parses a raw coverage declaration. It never returns an error:
// unparseable input degrades to an empty county coverage with warnings.
func (n *Normalizer) Normalize(ctx context.Context, raw string) Result {
	for _, r := range n.rules {
		if r.match(raw) {
			return r.parse(ctx, n, raw)
		}
	}
	// Unreachable: the ZIP fallback rule always matches.
	return parseNone(ctx, n, raw)
}

// normalizeZips validates and dedupes ZIP tokens, resolves each through the
// geo lookup, and infers the final coverage type from state cardinality.
func (n *Normalizer) normalizeZips(ctx context.Context, raw string) Result {
	var warnings []string

	zips := make([]string, 0, 8)
	seen := make(map[string]bool)
	for _, token := range splitTokens(raw) {
		m := zipRe.FindStringSubmatch(token)
		if m == nil {
			warnings = append(warnings, fmt.Sprintf("unrecognized ZIP token %q skipped", token))
			continue
		}
		zip := m[1] // ZIP+4 truncated to the first 5 digits
		if seen[zip] {
			continue
		}
		seen[zip] = true
		zips = append(zips, zip)
	}

	counties := make([]string, 0, len(zips))
	states := make([]string, 0, 4)
	seenCounty := make(map[string]bool)
	seenState := make(map[string]bool)
	for _, zip := range zips {
		place, err := n.geo.Resolve(ctx, zip)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ZIP %s could not be resolved: %v", zip, err))
			continue
		}
		key := CountyKey(place.County, place.State)
		if !seenCounty[key] {
			seenCounty[key] = true
			counties = append(counties, key)
		}
		state := strings.ToUpper(strings.TrimSpace(place.State))
		if state != "" && !seenState[state] {
			seenState[state] = true
			states = append(states, state)
		}
	}

	return Result{Coverage: inferCoverage(counties, states), Warnings: warnings}
}

// inferCoverage derives the coverage type from state cardinality: more than
// three states is effectively national, two or three is state-level, one
// keeps the county detail.
func inferCoverage(counties, states []string) Coverage {
	switch {
	case len(states) > 3:
		return Coverage{Type: TypeNational, Counties: []string{}, States: []string{}}
	case len(states) >= 2:
		return Coverage{Type: TypeState, Counties: []string{}, States: states}
	default:
		return Coverage{Type: TypeCounty, Counties: counties, States: states}
	}
}

// parseStateList parses 2-letter state codes, deduping while preserving order.
func parseStateList(raw string) ([]string, []string) {
	var warnings []string
	states := make([]string, 0, 4)
	seen := make(map[string]bool)
	for _, token := range splitTokens(raw) {
		if !stateCodeRe.MatchString(token) {
			warnings = append(warnings, fmt.Sprintf("invalid state code %q skipped", token))
			continue
		}
		code := strings.ToUpper(token)
		if seen[code] {
			continue
		}
		seen[code] = true
		states = append(states, code)
	}
	return states, warnings
}

// parseCountyList parses explicit county declarations. Entries may carry a
// "County" suffix and an optional ", ST" state. Entries without a state are
// kept verbatim with a warning since they can never match a resolved lead.
func parseCountyList(raw string) (counties, states, warnings []string) {
	counties = make([]string, 0, 4)
	states = make([]string, 0, 4)
	seenCounty := make(map[string]bool)
	seenState := make(map[string]bool)

	addCounty := func(entry string) {
		if !seenCounty[entry] {
			seenCounty[entry] = true
			counties = append(counties, entry)
		}
	}

	for _, segment := range strings.Split(raw, ";") {
		tokens := strings.Split(segment, ",")
		for i := 0; i < len(tokens); {
			name := cleanCountyName(tokens[i])
			if name == "" {
				i++
				continue
			}
			if i+1 < len(tokens) && stateCodeRe.MatchString(strings.TrimSpace(tokens[i+1])) {
				state := strings.ToUpper(strings.TrimSpace(tokens[i+1]))
				addCounty(CountyKey(name, state))
				if !seenState[state] {
					seenState[state] = true
					states = append(states, state)
				}
				i += 2
				continue
			}
			addCounty(name)
			warnings = append(warnings, fmt.Sprintf("county %q has no state and cannot match leads", name))
			i++
		}
	}

	return counties, states, warnings
}

// cleanCountyName trims an entry and strips a trailing "County" suffix.
func cleanCountyName(token string) string {
	name := strings.TrimSpace(token)
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, " county") {
		name = strings.TrimSpace(name[:len(name)-len(" county")])
	}
	return name
}

// splitTokens splits a raw list on commas, semicolons, and whitespace.
func splitTokens(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}
