package tempvoice

import "strconv"

const (
	NumberingNumber      = "number"
	NumberingLetter      = "letter"
	NumberingSuperscript = "superscript"
	NumberingSubscript   = "subscript"
	NumberingRoman       = "roman"
)

var (
	superscriptDigits = [...]rune{'⁰', '¹', '²', '³', '⁴', '⁵', '⁶', '⁷', '⁸', '⁹'}
	subscriptDigits   = [...]rune{'₀', '₁', '₂', '₃', '₄', '₅', '₆', '₇', '₈', '₉'}
)

// FormatOrdinal renders an ordinal in the given numbering style. Ordinals
// start at 1; unknown styles render as plain digits.
func FormatOrdinal(style string, n int) string {
	if n < 1 {
		n = 1
	}
	switch style {
	case NumberingLetter:
		return letterOrdinal(n)
	case NumberingSuperscript:
		return mapDigits(n, superscriptDigits)
	case NumberingSubscript:
		return mapDigits(n, subscriptDigits)
	case NumberingRoman:
		return romanOrdinal(n)
	default:
		return strconv.Itoa(n)
	}
}

// letterOrdinal is bijective base 26: 1 is "a", 26 is "z", 27 is "aa".
func letterOrdinal(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('a' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func mapDigits(n int, digits [10]rune) string {
	plain := strconv.Itoa(n)
	out := make([]rune, 0, len(plain))
	for _, digit := range plain {
		out = append(out, digits[digit-'0'])
	}
	return string(out)
}

var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// romanOrdinal covers 1 through 3999 and falls back to digits outside that
// range.
func romanOrdinal(n int) string {
	if n < 1 || n > 3999 {
		return strconv.Itoa(n)
	}
	var out []byte
	for _, entry := range romanValues {
		for n >= entry.value {
			out = append(out, entry.symbol...)
			n -= entry.value
		}
	}
	return string(out)
}
