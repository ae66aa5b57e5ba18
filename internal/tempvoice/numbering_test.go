package tempvoice

import "testing"

func TestFormatOrdinal(t *testing.T) {
	cases := []struct {
		style string
		n     int
		want  string
	}{
		{NumberingNumber, 1, "1"},
		{NumberingNumber, 42, "42"},
		{NumberingLetter, 1, "a"},
		{NumberingLetter, 2, "b"},
		{NumberingLetter, 26, "z"},
		{NumberingLetter, 27, "aa"},
		{NumberingLetter, 52, "az"},
		{NumberingLetter, 53, "ba"},
		{NumberingSuperscript, 12, "¹²"},
		{NumberingSubscript, 305, "₃₀₅"},
		{NumberingRoman, 4, "IV"},
		{NumberingRoman, 1987, "MCMLXXXVII"},
		{NumberingRoman, 3999, "MMMCMXCIX"},
		{NumberingRoman, 4000, "4000"},
		{"bogus", 7, "7"},
	}
	for _, tc := range cases {
		if got := FormatOrdinal(tc.style, tc.n); got != tc.want {
			t.Errorf("FormatOrdinal(%q, %d) = %q, want %q", tc.style, tc.n, got, tc.want)
		}
	}
}

func TestFormatOrdinalInjective(t *testing.T) {
	for _, style := range []string{NumberingNumber, NumberingLetter, NumberingSuperscript, NumberingSubscript, NumberingRoman} {
		seen := make(map[string]int)
		for n := 1; n <= 200; n++ {
			out := FormatOrdinal(style, n)
			if out == "" {
				t.Fatalf("%s: empty ordinal for %d", style, n)
			}
			if prev, ok := seen[out]; ok {
				t.Fatalf("%s: %d and %d both render %q", style, prev, n, out)
			}
			seen[out] = n
		}
	}
}
