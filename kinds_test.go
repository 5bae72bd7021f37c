package main

import "testing"

func TestNormalizeSerial(t *testing.T) {
	cases := []struct{ in, want string }{
		{"10030034-001", "10030034001"},
		{"1003 0034 001", "10030034001"},
		{"am7-board-1", "AM7BOARD1"},
		{"ALREADY", "ALREADY"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeSerial(c.in); got != c.want {
			t.Errorf("normalizeSerial(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInferKind(t *testing.T) {
	setupTest(t)

	cases := []struct{ serial, want string }{
		{"10030034-0042", KindAM7},
		{"10030035-0042", KindAU8},
		{"1003 0034 7", KindAM7},
		{"XX-AM7-99", KindAM7},
		{"xx-au8-99", KindAU8},
		{"99999999", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := inferKind(c.serial); got != c.want {
			t.Errorf("inferKind(%q) = %q, want %q", c.serial, got, c.want)
		}
	}
}

func TestInferKindPrefixBeatsSubstring(t *testing.T) {
	setupTest(t)

	// Prefix rule decides even when the other kind's code appears later in
	// the serial.
	if got := inferKind("10030034-AU8"); got != KindAM7 {
		t.Errorf("expected prefix rule to win, got %q", got)
	}
}

func TestLedgerColumnFor(t *testing.T) {
	setupTest(t)

	if got := ledgerColumnFor(KindAM7); got != "am7" {
		t.Errorf("ledgerColumnFor(AM7) = %q", got)
	}
	if got := ledgerColumnFor(KindAU8); got != "au8" {
		t.Errorf("ledgerColumnFor(AU8) = %q", got)
	}
	if got := ledgerColumnFor("XYZ"); got != "" {
		t.Errorf("ledgerColumnFor(XYZ) = %q, want empty", got)
	}
}

func TestSetKindRulesRejectsBadPattern(t *testing.T) {
	err := setKindRules([]KindRule{{Name: KindAM7, Prefixes: []string{"("}, LedgerColumn: "am7"}})
	if err == nil {
		t.Fatal("expected error for invalid prefix pattern")
	}
	// Restore valid rules for other tests in this package.
	if err := setKindRules(defaultConfig().Kinds); err != nil {
		t.Fatalf("restore rules: %v", err)
	}
}
