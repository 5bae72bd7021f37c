package main

import (
	"regexp"
	"strings"
)

// The two board families. The line only ever builds and pairs these; a
// serial that resolves to neither is rejected on auto-detect.
const (
	KindAM7 = "AM7"
	KindAU8 = "AU8"
)

type compiledKindRule struct {
	name         string
	prefixes     []*regexp.Regexp
	ledgerColumn string
}

// kindRules is installed by loadConfig; the first matching prefix wins.
var kindRules []compiledKindRule

func setKindRules(rules []KindRule) error {
	compiled := make([]compiledKindRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledKindRule{name: r.Name, ledgerColumn: r.LedgerColumn}
		for _, p := range r.Prefixes {
			re, err := regexp.Compile(p)
			if err != nil {
				return err
			}
			cr.prefixes = append(cr.prefixes, re)
		}
		compiled = append(compiled, cr)
	}
	kindRules = compiled
	return nil
}

// normalizeSerial uppercases and strips spaces and hyphens, matching the
// normalization applied on the consumption side so serials compare equal
// across both stores. Serials are stored verbatim; only comparisons use
// this form.
func normalizeSerial(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "-", "")
}

// inferKind maps a serial number to a kind, or "" if unresolved. Prefix
// rules are tried first; a substring check on the kind code is the fallback.
func inferKind(serial string) string {
	s := normalizeSerial(serial)
	for _, r := range kindRules {
		for _, re := range r.prefixes {
			if re.MatchString(s) {
				return r.name
			}
		}
	}
	if strings.Contains(s, KindAM7) {
		return KindAM7
	}
	if strings.Contains(s, KindAU8) {
		return KindAU8
	}
	return ""
}

// isValidKind reports whether k is one of the fixed enumerants.
func isValidKind(k string) bool {
	return k == KindAM7 || k == KindAU8
}

// ledgerColumnFor returns the consumption-ledger column for a kind.
func ledgerColumnFor(kind string) string {
	for _, r := range kindRules {
		if r.name == kind {
			return r.ledgerColumn
		}
	}
	return ""
}
