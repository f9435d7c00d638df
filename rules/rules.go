// Package rules provides declarative override rules for cooked metadata.
//
// Rules let a plugin adjust records without code: fill a missing publisher,
// force a normalized journal title, map article types onto a controlled list
// or drop a field the site fills with junk. For example, a record whose
// journal.title contains "Bloomsbury" but has no publisher gets
// publisher="Bloomsbury Publishing".
//
// Precedence: a value declared by the document wins over a rule unless the
// rule sets force. Rules run after publisher hooks.
package rules

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/auplugins/metadata"
)

// RuleSet contains the override rules of one plugin.
type RuleSet struct {
	// Name identifies this rule set
	Name string `yaml:"name" json:"name"`

	// Description documents what these rules are for
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Rules is the list of override rules
	Rules []Rule `yaml:"rules" json:"rules"`

	compileOnce sync.Once
	compileErrs []error
}

// Rule defines a single conditional override.
type Rule struct {
	// Name identifies this rule for debugging/logging
	Name string `yaml:"name" json:"name"`

	// Description documents what this rule does
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Priority determines rule evaluation order (higher = first). Default is 0.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`

	// When defines the conditions that must be met for this rule to apply
	When Condition `yaml:"when" json:"when"`

	// Then defines the changes to make when conditions are met
	Then Action `yaml:"then" json:"then"`

	// Stop ends evaluation after this rule applies
	Stop bool `yaml:"stop,omitempty" json:"stop,omitempty"`
}

// Condition defines when a rule should be applied.
type Condition struct {
	// Field is the record field to check (e.g., "publisher", "journal.title")
	Field string `yaml:"field,omitempty" json:"field,omitempty"`

	// Equals matches exact value
	Equals string `yaml:"equals,omitempty" json:"equals,omitempty"`

	// Contains matches if the field contains this substring
	Contains string `yaml:"contains,omitempty" json:"contains,omitempty"`

	// Matches is a regex pattern to match against
	Matches string `yaml:"matches,omitempty" json:"matches,omitempty"`

	// In matches if the field value is in this list
	In []string `yaml:"in,omitempty" json:"in,omitempty"`

	// Exists checks if the field has any value
	Exists *bool `yaml:"exists,omitempty" json:"exists,omitempty"`

	// All requires all sub-conditions to match (AND)
	All []Condition `yaml:"all,omitempty" json:"all,omitempty"`

	// Any requires at least one sub-condition to match (OR)
	Any []Condition `yaml:"any,omitempty" json:"any,omitempty"`

	// Not inverts the sub-condition
	Not *Condition `yaml:"not,omitempty" json:"not,omitempty"`

	re *regexp.Regexp
}

// Action defines what to change when a rule matches.
type Action struct {
	// SetField is the record field the action writes
	SetField string `yaml:"set_field,omitempty" json:"set_field,omitempty"`

	// SetValue is the value for SetField
	SetValue string `yaml:"set_value,omitempty" json:"set_value,omitempty"`

	// CopyFrom takes the value for SetField from another field
	CopyFrom string `yaml:"copy_from,omitempty" json:"copy_from,omitempty"`

	// MapValue rewrites the current value of SetField through a table
	MapValue map[string]string `yaml:"map_value,omitempty" json:"map_value,omitempty"`

	// Force replaces a value the document declared
	Force bool `yaml:"force,omitempty" json:"force,omitempty"`

	// Remove deletes SetField from the record
	Remove bool `yaml:"remove,omitempty" json:"remove,omitempty"`

	// Multiple actions can be combined
	Actions []Action `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Result holds the outcome of rule evaluation.
type Result struct {
	// Matched lists the names of the rules that applied, in order
	Matched []string

	// Changed lists the fields that were written or removed
	Changed []string
}

var _ metadata.Override = (*RuleSet)(nil)

// Apply implements metadata.Override.
func (rs *RuleSet) Apply(rec *metadata.Record) *metadata.Record {
	rs.Evaluate(rec)
	return rec
}

// Evaluate applies every matching rule to rec in priority order, then
// declaration order, and reports what happened. Conditions see the record
// as it stands when the rule is reached.
func (rs *RuleSet) Evaluate(rec *metadata.Record) *Result {
	rs.compile()
	result := &Result{}
	for _, rule := range rs.ordered() {
		if !rule.When.Evaluate(rec.Values()) {
			continue
		}
		result.Matched = append(result.Matched, rule.Name)
		rule.Then.Apply(rec, result)
		if rule.Stop {
			break
		}
	}
	return result
}

var neverMatch = regexp.MustCompile(`[^\x00-\x{10FFFF}]`)

// compile compiles every Matches pattern once. A pattern that fails to
// compile never matches.
func (rs *RuleSet) compile() []error {
	rs.compileOnce.Do(func() {
		for i := range rs.Rules {
			r := &rs.Rules[i]
			rs.compileErrs = append(rs.compileErrs, r.When.Compile(fmt.Sprintf("rule %d (%s)", i, r.Name))...)
		}
		for _, err := range rs.compileErrs {
			slog.Warn("override rule pattern does not compile", "ruleset", rs.Name, "error", err)
		}
	})
	return rs.compileErrs
}

// Compile compiles the Matches patterns of c and its sub-conditions. where
// prefixes the returned errors. Conditions inside a RuleSet are compiled by
// the set; a standalone condition that was never compiled compiles its
// pattern on each Evaluate.
func (c *Condition) Compile(where string) []error {
	var errs []error
	if c.Matches != "" {
		re, err := regexp.Compile(c.Matches)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
			re = neverMatch
		}
		c.re = re
	}
	for i := range c.All {
		errs = append(errs, c.All[i].Compile(where)...)
	}
	for i := range c.Any {
		errs = append(errs, c.Any[i].Compile(where)...)
	}
	if c.Not != nil {
		errs = append(errs, c.Not.Compile(where)...)
	}
	return errs
}

func (rs *RuleSet) ordered() []Rule {
	out := append([]Rule(nil), rs.Rules...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Evaluate checks if the condition matches the given field values.
func (c *Condition) Evaluate(fieldValues map[string]string) bool {
	// Handle composite conditions first
	if len(c.All) > 0 {
		for i := range c.All {
			if !c.All[i].Evaluate(fieldValues) {
				return false
			}
		}
		return true
	}

	if len(c.Any) > 0 {
		for i := range c.Any {
			if c.Any[i].Evaluate(fieldValues) {
				return true
			}
		}
		return false
	}

	if c.Not != nil {
		return !c.Not.Evaluate(fieldValues)
	}

	// No condition means always match
	if c.Field == "" {
		return true
	}

	value, exists := fieldValues[c.Field]

	if c.Exists != nil {
		return exists == *c.Exists
	}

	if !exists {
		return false
	}

	if c.Equals != "" {
		return strings.EqualFold(value, c.Equals)
	}

	if c.Contains != "" {
		return strings.Contains(strings.ToLower(value), strings.ToLower(c.Contains))
	}

	if c.Matches != "" {
		re := c.re
		if re == nil {
			var err error
			if re, err = regexp.Compile(c.Matches); err != nil {
				return false
			}
		}
		return re.MatchString(value)
	}

	if len(c.In) > 0 {
		for _, v := range c.In {
			if strings.EqualFold(value, v) {
				return true
			}
		}
		return false
	}

	// No specific condition, just check field exists
	return true
}

// Apply executes the action against rec.
func (a *Action) Apply(rec *metadata.Record, result *Result) {
	if a.SetField != "" {
		switch {
		case a.Remove:
			if rec.Has(a.SetField) {
				rec.Delete(a.SetField)
				result.Changed = append(result.Changed, a.SetField)
			}
		case len(a.MapValue) > 0:
			if mapped, ok := a.MapValue[rec.Get(a.SetField)]; ok {
				rec.Set(a.SetField, mapped)
				result.Changed = append(result.Changed, a.SetField)
			}
		default:
			value := a.SetValue
			if a.CopyFrom != "" {
				value = rec.Get(a.CopyFrom)
			}
			if value != "" && (a.Force || !rec.Has(a.SetField)) {
				rec.Set(a.SetField, value)
				result.Changed = append(result.Changed, a.SetField)
			}
		}
	}

	for _, sub := range a.Actions {
		sub.Apply(rec, result)
	}
}

// Validate reports malformed rules: bad regular expressions and actions
// without a target field. It compiles the rule set's patterns.
func (rs *RuleSet) Validate() []error {
	errs := append([]error(nil), rs.compile()...)
	for i := range rs.Rules {
		r := &rs.Rules[i]
		errs = append(errs, validateAction(fmt.Sprintf("rule %d (%s)", i, r.Name), &r.Then)...)
	}
	return errs
}

func validateAction(where string, a *Action) []error {
	var errs []error
	if a.SetField == "" && len(a.Actions) == 0 {
		errs = append(errs, fmt.Errorf("%s: action has no set_field", where))
	}
	for i := range a.Actions {
		errs = append(errs, validateAction(where, &a.Actions[i])...)
	}
	return errs
}

// LoadRuleSet loads a rule set from a YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return LoadRuleSetFromBytes(data)
}

// LoadRuleSetFromBytes loads a rule set from YAML bytes and reports the
// first malformed rule.
func LoadRuleSetFromBytes(data []byte) (*RuleSet, error) {
	rs := &RuleSet{}
	if err := yaml.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("parsing rules YAML: %w", err)
	}
	if errs := rs.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("rule set %s: %w", rs.Name, errs[0])
	}
	return rs, nil
}
