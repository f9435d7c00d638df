package metadata

import (
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/auplugins/mapping"
)

// Cook maps raw through cm into a new record.
//
// Rules run in order. Values are transformed, then normalized by their
// field; identifier values that fail validation are dropped. A field's
// policy decides whether a rule replaces, keeps or appends to what earlier
// rules produced. Fallbacks run last. A raw value that a transform or a field
// rejects is logged at warn, never dropped silently.
func Cook(raw *RawBag, cm *mapping.CookMap) *Record {
	rec := NewRecord()
	if cm == nil || raw == nil {
		return rec
	}
	for _, rule := range cm.Rules {
		values := raw.Get(rule.Raw)
		if len(values) == 0 {
			continue
		}
		transformed := applyTransforms(append([]string(nil), values...), rule)
		for _, v := range blankedByTransform(values, transformed) {
			slog.Warn("metadata value lost in transform", "field", rule.Field, "raw", rule.Raw, "transform", rule.Transform, "value", v)
		}
		values = transformed

		f := fieldFor(rule.Field)
		var cooked []string
		for _, v := range values {
			nv, ok := f.Normalize(v)
			if !ok {
				if v != "" {
					slog.Warn("dropping invalid metadata value", "field", rule.Field, "raw", rule.Raw, "value", v)
				}
				continue
			}
			cooked = append(cooked, nv)
		}
		if len(cooked) == 0 {
			continue
		}

		switch policyFor(rule, f) {
		case mapping.PolicyAppend:
			if f.Multi {
				rec.Add(rule.Field, cooked...)
			} else if !rec.Has(rule.Field) {
				rec.Set(rule.Field, cooked[0])
			}
		case mapping.PolicyFirst:
			if rec.Has(rule.Field) {
				continue
			}
			if f.Multi {
				rec.SetAll(rule.Field, cooked)
			} else {
				rec.Set(rule.Field, cooked[0])
			}
		default:
			if f.Multi {
				rec.SetAll(rule.Field, cooked)
			} else {
				rec.Set(rule.Field, cooked[len(cooked)-1])
			}
		}
	}

	for _, fb := range cm.Fallbacks {
		if rec.Has(fb.Field) {
			continue
		}
		for _, from := range fb.From {
			if rec.Has(from) {
				rec.SetAll(fb.Field, rec.GetAll(from))
				break
			}
		}
	}
	return rec
}

// blankedByTransform returns the non-blank inputs whose transformed value is
// blank. Transforms that change the number of values are judged as a whole.
func blankedByTransform(in, out []string) []string {
	var lost []string
	if len(in) == len(out) {
		for i, v := range in {
			if strings.TrimSpace(v) != "" && strings.TrimSpace(out[i]) == "" {
				lost = append(lost, v)
			}
		}
		return lost
	}
	for _, v := range out {
		if strings.TrimSpace(v) != "" {
			return nil
		}
	}
	for _, v := range in {
		if strings.TrimSpace(v) != "" {
			lost = append(lost, v)
		}
	}
	return lost
}

func policyFor(rule mapping.Rule, f Field) string {
	if rule.Policy != "" {
		return rule.Policy
	}
	if f.Multi {
		return mapping.PolicyAppend
	}
	return mapping.PolicyReplace
}
