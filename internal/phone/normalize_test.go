package phone

import "testing"

func TestNormalize_Table(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		region string
		want   string
		ok     bool
	}{
		{"explicit us", "+14155550123", "", "+14155550123", true},
		{"explicit with separators", "+1 (415) 555-0123", "", "+14155550123", true},
		{"surrounding whitespace", "  +12025550123 ", "", "+12025550123", true},
		{"heuristic regional mobile", "9876543210", "", "+919876543210", true},
		{"region scoped national", "(415) 555-0123", "US", "+14155550123", true},
		{"explicit prefix beats wrong region", "+14155550123", "IN", "+14155550123", true},
		{"lower-case region", "4155550123", "us", "+14155550123", true},
		{"national without region", "4155550123", "", "", false},
		{"garbage", "not-a-number", "", "", false},
		{"too short", "12345", "", "", false},
		{"empty", "", "", "", false},
		{"garbage with region", "call me maybe", "US", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.raw, tc.region)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("Normalize(%q, %q) = %q, %v; want %q, %v", tc.raw, tc.region, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, raw := range []string{"+14155550123", "+1 202 555 0123", "+919876543210"} {
		first, ok := Normalize(raw, "")
		if !ok {
			t.Fatalf("expected %q to normalize", raw)
		}
		second, ok := Normalize(first, "")
		if !ok || second != first {
			t.Fatalf("normalize not idempotent for %q: %q then %q", raw, first, second)
		}
	}
}

func TestNormalize_HeuristicMatchesExplicitRegion(t *testing.T) {
	for _, raw := range []string{"9876543210", "8123456789", "7012345678"} {
		implicit, okImplicit := Normalize(raw, "")
		explicit, okExplicit := Normalize(raw, HeuristicRegion)
		if okImplicit != okExplicit || implicit != explicit {
			t.Fatalf("%q: heuristic %q/%v differs from explicit %q/%v", raw, implicit, okImplicit, explicit, okExplicit)
		}
	}
}
