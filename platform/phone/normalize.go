// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Leads and vendors are US-market, so bare national numbers parse
// against the US region.
const defaultRegion = "US"

// NormalizeE164 canonicalizes a phone number to E.164 so lead and
// vendor contact fields compare cleanly during reconciliation. Input
// that fails to parse or validate is returned trimmed but otherwise
// untouched.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
