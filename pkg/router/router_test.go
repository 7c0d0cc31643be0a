package router

import "testing"

func TestParseBodyLimit(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"10M", 10 * 1024 * 1024},
		{"512K", 512 * 1024},
		{"1G", 1024 * 1024 * 1024},
		{"2048", 2048},
		{" 5m ", 5 * 1024 * 1024},
		{"", 10 * 1024 * 1024},
		{"garbage", 10 * 1024 * 1024},
		{"-1M", 10 * 1024 * 1024},
	}

	for _, tc := range cases {
		if got := parseBodyLimit(tc.in); got != tc.want {
			t.Errorf("parseBodyLimit(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
