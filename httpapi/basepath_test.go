package httpapi

import "testing"

func TestNormalizeBasePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"  ", ""},
		{"jellyj", "/jellyj"},
		{"/jellyj", "/jellyj"},
		{"/jellyj/", "/jellyj"},
		{"/ops/jellyj//", "/ops/jellyj"},
	}
	for _, tc := range cases {
		if got := normalizeBasePath(tc.in); got != tc.want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
