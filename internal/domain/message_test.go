package domain

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"user", RoleUser, true},
		{" Assistant ", RoleAssistant, true},
		{"SYSTEM", RoleSystem, true},
		{"bot", Role("bot"), false},
		{"", Role(""), false},
	}
	for _, c := range cases {
		got, ok := ParseRole(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseRole(%q) = %q,%v; want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}
