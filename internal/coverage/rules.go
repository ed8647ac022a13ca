package coverage

import (
	"context"
	"regexp"
	"strings"
)

// A rule pairs a format predicate with its parser. Rules are evaluated in
// priority order; the first match wins. Tag-prefixed formats come first and
// are authoritative, heuristics follow, and the ZIP fallback always matches.
type rule struct {
	name  string
	match func(raw string) bool
	parse func(ctx context.Context, n *Normalizer, raw string) Result
}

const (
	tagCounties = "COUNTIES:"
	tagStates   = "STATES:"
	tagZips     = "ZIP CODES:"
)

var (
	stateCodeRe = regexp.MustCompile(`^[A-Za-z]{2}$`)
	zipRe       = regexp.MustCompile(`^(\d{5})(?:-\d{4})?$`)
	// countyShapeRe matches a "Name, ST" segment such as "Miami-Dade, FL".
	countyShapeRe = regexp.MustCompile(`[A-Za-z][A-Za-z .'\-]*,\s*[A-Za-z]{2}\s*(;|$)`)
)

func defaultRules() []rule {
	return []rule{
		{name: "tag_counties", match: hasTag(tagCounties), parse: parseCountiesTag},
		{name: "tag_states", match: hasTag(tagStates), parse: parseStatesTag},
		{name: "tag_zips", match: hasTag(tagZips), parse: parseZipsTag},
		{name: "sentinel_global", match: isSentinel("GLOBAL"), parse: parseGlobal},
		{name: "sentinel_national", match: isSentinel("NATIONAL"), parse: parseNational},
		{name: "sentinel_none", match: isNoneSentinel, parse: parseNone},
		{name: "state_codes", match: allStateCodes, parse: parseStateCodes},
		{name: "county_shape", match: looksLikeCountyList, parse: parseCountyShape},
		{name: "zip_fallback", match: matchAlways, parse: parseZipFallback},
	}
}

func hasTag(tag string) func(string) bool {
	return func(raw string) bool {
		return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), tag)
	}
}

func isSentinel(word string) func(string) bool {
	return func(raw string) bool {
		return strings.EqualFold(strings.TrimSpace(raw), word)
	}
}

func isNoneSentinel(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || strings.EqualFold(trimmed, "NONE")
}

func matchAlways(string) bool { return true }

// allStateCodes reports whether every token is a bare 2-letter code.
func allStateCodes(raw string) bool {
	tokens := splitTokens(raw)
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if !stateCodeRe.MatchString(token) {
			return false
		}
	}
	return true
}

// looksLikeCountyList reports whether the declaration names counties either
// via a "County" suffix or via the "Name, ST" shape.
func looksLikeCountyList(raw string) bool {
	if strings.Contains(strings.ToLower(raw), "county") {
		return true
	}
	return countyShapeRe.MatchString(strings.TrimSpace(raw))
}

func stripTag(raw, tag string) string {
	trimmed := strings.TrimSpace(raw)
	return strings.TrimSpace(trimmed[len(tag):])
}

func parseCountiesTag(ctx context.Context, n *Normalizer, raw string) Result {
	counties, states, warnings := parseCountyList(stripTag(raw, tagCounties))
	return Result{
		Coverage: Coverage{Type: TypeCounty, Counties: counties, States: states},
		Warnings: warnings,
	}
}

func parseStatesTag(ctx context.Context, n *Normalizer, raw string) Result {
	states, warnings := parseStateList(stripTag(raw, tagStates))
	return Result{
		Coverage: Coverage{Type: TypeState, Counties: []string{}, States: states},
		Warnings: warnings,
	}
}

// parseZipsTag resolves the tagged ZIP list through the same code path as the
// bare fallback so equivalent declarations normalize identically.
func parseZipsTag(ctx context.Context, n *Normalizer, raw string) Result {
	return n.normalizeZips(ctx, stripTag(raw, tagZips))
}

func parseGlobal(context.Context, *Normalizer, string) Result {
	return Result{Coverage: Coverage{Type: TypeGlobal, Counties: []string{}, States: []string{}}}
}

func parseNational(context.Context, *Normalizer, string) Result {
	return Result{Coverage: Coverage{Type: TypeNational, Counties: []string{}, States: []string{}}}
}

func parseNone(context.Context, *Normalizer, string) Result {
	return Result{
		Coverage: Coverage{Type: TypeCounty, Counties: []string{}, States: []string{}},
		Warnings: []string{"no coverage declared"},
	}
}

func parseStateCodes(ctx context.Context, n *Normalizer, raw string) Result {
	states, warnings := parseStateList(raw)
	return Result{
		Coverage: Coverage{Type: TypeState, Counties: []string{}, States: states},
		Warnings: warnings,
	}
}

func parseCountyShape(ctx context.Context, n *Normalizer, raw string) Result {
	counties, states, warnings := parseCountyList(raw)
	return Result{
		Coverage: Coverage{Type: TypeCounty, Counties: counties, States: states},
		Warnings: warnings,
	}
}

func parseZipFallback(ctx context.Context, n *Normalizer, raw string) Result {
	return n.normalizeZips(ctx, raw)
}
