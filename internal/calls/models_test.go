package calls

import "testing"

func TestStatus_ValidAndTerminal(t *testing.T) {
	cases := []struct {
		s        Status
		valid    bool
		terminal bool
	}{
		{StatusPending, true, false},
		{StatusInProgress, true, false},
		{StatusCompleted, true, true},
		{StatusFailed, true, true},
		{Status("queued"), false, false},
		{Status(""), false, false},
	}
	for _, tc := range cases {
		if tc.s.Valid() != tc.valid {
			t.Fatalf("%q: valid=%v", tc.s, tc.s.Valid())
		}
		if tc.s.Terminal() != tc.terminal {
			t.Fatalf("%q: terminal=%v", tc.s, tc.s.Terminal())
		}
	}
}

func TestPatch_ApplyLeavesNilFieldsUntouched(t *testing.T) {
	a := CallAttempt{Phone: "+14155550123", Status: StatusInProgress, TelephonyCallID: "CA1", Error: "x"}
	p := Patch{Transcript: Ptr("user: hi"), Status: Ptr(StatusCompleted)}
	if p.Empty() {
		t.Fatalf("expected non-empty patch")
	}
	p.apply(&a)
	if a.Status != StatusCompleted || a.Transcript != "user: hi" {
		t.Fatalf("patch not applied: %+v", a)
	}
	if a.TelephonyCallID != "CA1" || a.Error != "x" {
		t.Fatalf("untouched fields changed: %+v", a)
	}
	if !(Patch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}
}

func TestProviderKey_Matches(t *testing.T) {
	a := CallAttempt{ID: "r1", TelephonyCallID: "CA1", AgentCallID: "v1"}
	if !(ProviderKey{AgentCallID: "v1"}).matches(a) {
		t.Fatalf("expected agent id match")
	}
	if !(ProviderKey{TelephonyCallID: "CA1", AgentCallID: "other"}).matches(a) {
		t.Fatalf("expected telephony id match")
	}
	if (ProviderKey{TelephonyCallID: "CA2"}).matches(a) {
		t.Fatalf("unexpected match")
	}
	if (ProviderKey{}).matches(CallAttempt{}) {
		t.Fatalf("empty key must never match")
	}
}
