package kcheck

import (
	"testing"
)

// RunTests runs every case of m as a subtest of t. Failures are reported
// through t with their location; skipped cases are skipped.
func RunTests(t *testing.T, m Matrix, opts ...Option) {
	t.Helper()
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	h := New(opts...)
	for _, tc := range m.Cases() {
		t.Run(tc.Name(), func(t *testing.T) {
			if tc.Spec.Skip {
				t.Skip("skipped in matrix")
			}
			res := h.RunCase(tc)
			for _, f := range res.Failures {
				t.Error(f.Error())
			}
			if res.TeardownErr != nil {
				t.Logf("teardown: %v", res.TeardownErr)
			}
		})
	}
}
