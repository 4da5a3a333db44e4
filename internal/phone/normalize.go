// Package phone converts user-entered phone strings into canonical E.164 numbers.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// HeuristicRegion is assumed for bare 10-digit numbers starting with 6-9
// when no default region is configured (regional mobile numbering).
const HeuristicRegion = "IN"

var regionalMobile = regexp.MustCompile(`^[6-9]\d{9}$`)

// Normalize returns the E.164 form of raw ("+<country><national>", no separators).
//
// Strategies, first success wins:
//  1. defaultRegion given: parse in that region, accept if valid for that region.
//  2. no defaultRegion and raw is a 10-digit number starting 6-9: parse in HeuristicRegion.
//  3. unscoped parse, which only succeeds when raw carries an explicit +country prefix.
//
// ok is false when no strategy yields a valid number. Normalize never panics and has no side effects.
func Normalize(raw, defaultRegion string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))

	if region != "" {
		if n, ok := parseFor(s, region); ok {
			return n, true
		}
	} else if regionalMobile.MatchString(digits(s)) {
		if n, ok := parseFor(s, HeuristicRegion); ok {
			return n, true
		}
	}

	num, err := phonenumbers.Parse(s, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

func parseFor(s, region string) (string, bool) {
	num, err := phonenumbers.Parse(s, region)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumberForRegion(num, region) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
