package uve

import "testing"

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"vrouter-1", "vrouter-1", true},
		{"vrouter-1", "vrouter-2", false},
		{"vrouter*", "vrouter-1", true},
		{"*-1", "vrouter-1", true},
		{"*-1", "vrouter-2", false},
		{"vr*er-1", "vrouter-1", true},
		{"*", "anything", true},
	}
	for _, c := range cases {
		if got := globMatch(c.pattern, c.s); got != c.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}
