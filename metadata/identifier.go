package metadata

import (
	"regexp"
	"strings"
)

var (
	doiRegex      = regexp.MustCompile(`^10\.\d{4,}/\S+$`)
	doiInURLRegex = regexp.MustCompile(`10\.\d{4,}/[^?#\s]+`)
	issnRegex     = regexp.MustCompile(`^\d{4}-\d{3}[\dX]$`)
	isbn10Regex   = regexp.MustCompile(`^\d{9}[\dX]$`)
	isbn13Regex   = regexp.MustCompile(`^97[89]\d{10}$`)
)

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// NormalizeDOI strips resolver and "doi:" prefixes and validates the result.
func NormalizeDOI(v string) (string, bool) {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	for _, p := range doiPrefixes {
		if strings.HasPrefix(lower, p) {
			v = strings.TrimSpace(v[len(p):])
			break
		}
	}
	if !doiRegex.MatchString(v) {
		return "", false
	}
	return v, true
}

// FindDOI returns the first DOI embedded in s, typically a URL path such as
// /doi/full/10.1111/j.1365-2958.2010.07.x.
func FindDOI(s string) (string, bool) {
	m := doiInURLRegex.FindString(s)
	if m == "" {
		return "", false
	}
	return NormalizeDOI(strings.TrimRight(m, "/."))
}

// NormalizeISSN upper-cases the check digit, inserts the hyphen when missing
// and verifies the mod-11 check digit.
func NormalizeISSN(v string) (string, bool) {
	v = strings.ToUpper(strings.Join(strings.Fields(v), ""))
	v = strings.TrimPrefix(v, "ISSN")
	v = strings.TrimPrefix(v, ":")
	if len(v) == 8 && !strings.Contains(v, "-") {
		v = v[:4] + "-" + v[4:]
	}
	if !issnRegex.MatchString(v) {
		return "", false
	}
	digits := v[:4] + v[5:]
	sum := 0
	for i := 0; i < 7; i++ {
		sum += int(digits[i]-'0') * (8 - i)
	}
	if checkChar((11-sum%11)%11) != digits[7] {
		return "", false
	}
	return v, true
}

// NormalizeISBN removes separators and validates an ISBN-10 or ISBN-13,
// check digit included.
func NormalizeISBN(v string) (string, bool) {
	v = strings.ToUpper(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "ISBN")
	v = strings.TrimPrefix(v, ":")
	v = strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, v)
	switch {
	case isbn10Regex.MatchString(v):
		sum := 0
		for i := 0; i < 9; i++ {
			sum += int(v[i]-'0') * (10 - i)
		}
		if checkChar((11-sum%11)%11) != v[9] {
			return "", false
		}
	case isbn13Regex.MatchString(v):
		sum := 0
		for i := 0; i < 12; i++ {
			d := int(v[i] - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		if byte('0'+(10-sum%10)%10) != v[12] {
			return "", false
		}
	default:
		return "", false
	}
	return v, true
}

// checkChar renders a mod-11 check value, 10 being X.
func checkChar(n int) byte {
	if n == 10 {
		return 'X'
	}
	return byte('0' + n)
}
