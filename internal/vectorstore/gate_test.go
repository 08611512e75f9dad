package vectorstore

import (
	"testing"

	"go.uber.org/zap"
)

func TestGateCheck(t *testing.T) {
	cases := []struct {
		name      string
		expected  int
		tolerance int
		count     int
		want      GateDecision
	}{
		{"exact match", 100, 20, 100, GatePass},
		{"low edge of tolerance", 100, 20, 80, GatePass},
		{"high edge of tolerance", 100, 20, 120, GatePass},
		{"below tolerance blocks", 100, 20, 79, GateTooFew},
		{"above tolerance warns", 100, 20, 121, GateTooMany},
		{"zero tolerance exact only", 100, 0, 99, GateTooFew},
		{"disabled when expected is zero", 0, 20, 5000, GatePass},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate, err := NewGate(tc.expected, tc.tolerance, zap.NewNop())
			if err != nil {
				t.Fatalf("NewGate: %v", err)
			}
			if got := gate.Check(tc.count); got != tc.want {
				t.Fatalf("Check(%d) = %v, want %v", tc.count, got, tc.want)
			}
		})
	}
}

func TestNewGateRejectsBadInput(t *testing.T) {
	if _, err := NewGate(-1, 20, zap.NewNop()); err == nil {
		t.Fatalf("negative expected should be rejected")
	}
	if _, err := NewGate(100, 101, zap.NewNop()); err == nil {
		t.Fatalf("tolerance above 100 should be rejected")
	}
	if _, err := NewGate(100, -5, zap.NewNop()); err == nil {
		t.Fatalf("negative tolerance should be rejected")
	}
}

func TestGateDecisionString(t *testing.T) {
	if GatePass.String() != "pass" || GateTooFew.String() != "too_few" || GateTooMany.String() != "too_many" {
		t.Fatalf("unexpected decision strings")
	}
}
