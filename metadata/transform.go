package metadata

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/lehigh-university-libraries/auplugins/mapping"
)

// Transform rewrites the values read for one cook-map rule.
type Transform func(values []string, rule mapping.Rule) []string

var transforms = map[string]Transform{
	"split": func(values []string, rule mapping.Rule) []string {
		var out []string
		for _, v := range values {
			out = append(out, strings.Split(v, rule.SplitDelimiter())...)
		}
		return out
	},
	"split_names": eachMulti(SplitNames),
	"trim":        each(strings.TrimSpace),
	"strip_html":  each(StripHTML),
	"lowercase":   each(strings.ToLower),
	"uppercase":   each(strings.ToUpper),
	"name":        each(NormalizeName),
	"date":        each(NormalizeDate),
	"year":        each(extractYear),
	"doi_url": each(func(v string) string {
		if doi, ok := NormalizeDOI(v); ok {
			return doi
		}
		return ""
	}),
}

func each(fn func(string) string) Transform {
	return func(values []string, _ mapping.Rule) []string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, fn(v))
		}
		return out
	}
}

func eachMulti(fn func(string) []string) Transform {
	return func(values []string, _ mapping.Rule) []string {
		var out []string
		for _, v := range values {
			out = append(out, fn(v)...)
		}
		return out
	}
}

// LookupTransform returns the named transform.
func LookupTransform(name string) (Transform, bool) {
	t, ok := transforms[name]
	return t, ok
}

// TransformNames splits a rule's comma-separated transform list.
func TransformNames(spec string) []string {
	var out []string
	for _, n := range strings.Split(spec, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// CheckCookMap reports rules naming unknown transforms. Unknown fields are
// allowed and treated as single-valued text.
func CheckCookMap(cm *mapping.CookMap) []error {
	var errs []error
	for i, r := range cm.Rules {
		for _, n := range TransformNames(r.Transform) {
			if _, ok := transforms[n]; !ok {
				errs = append(errs, fmt.Errorf("cook map %s rule %d (%s): unknown transform %q", cm.Name, i, r.Raw, n))
			}
		}
	}
	return errs
}

func applyTransforms(values []string, rule mapping.Rule) []string {
	for _, n := range TransformNames(rule.Transform) {
		t, ok := transforms[n]
		if !ok {
			slog.Warn("unknown transform", "transform", n, "raw", rule.Raw)
			continue
		}
		values = t(values, rule)
	}
	return values
}

var (
	yearOnlyRegex  = regexp.MustCompile(`^\d{4}$`)
	yearMonthRegex = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
	ymdRegex       = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	yearRegex      = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)
)

// NormalizeDate renders a date as ISO 8601 at the precision it was given:
// YYYY, YYYY-MM or YYYY-MM-DD. Unparsable values are returned trimmed.
func NormalizeDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || yearOnlyRegex.MatchString(v) {
		return v
	}
	if m := yearMonthRegex.FindStringSubmatch(v); m != nil {
		return m[1] + "-" + pad2(m[2])
	}
	if m := ymdRegex.FindStringSubmatch(v); m != nil {
		return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
	}
	t, err := dateparse.ParseAny(v)
	if err != nil {
		slog.Debug("unparsable date", "value", v, "error", err)
		return v
	}
	return t.Format("2006-01-02")
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func extractYear(v string) string {
	return yearRegex.FindString(v)
}
