// Package rewrite holds the text transformations that turn CodeIgniter 3 sources
// into CodeIgniter 4 sources. Every transformation works on raw text; nothing here
// touches the file system.
package rewrite

import (
	"fmt"
	"regexp"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic describes a rule that could not do its job on a file, or a problem
// found in the rewritten output.
type Diagnostic struct {
	File     string   `json:"file,omitempty"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
}

func (d Diagnostic) String() string {
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	return fmt.Sprintf("%s [%s] %s: %s", loc, d.Severity, d.Rule, d.Message)
}

// Rule is one atomic transformation. Apply reports whether it changed anything.
// A rule with a non-empty Expect severity produces a diagnostic when it does not
// match; other rules are silent no-ops.
type Rule struct {
	Name   string
	Apply  func(src string) (string, bool)
	Expect Severity
	Hint   string
}

// Expected returns a copy of r that reports a non-match with the given severity.
func (r Rule) Expected(sev Severity, hint string) Rule {
	r.Expect = sev
	r.Hint = hint
	return r
}

// Regex builds a rule that replaces every match of pattern with repl.
// repl follows regexp.Expand syntax.
func Regex(name, pattern, repl string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{
		Name: name,
		Apply: func(src string) (string, bool) {
			if !re.MatchString(src) {
				return src, false
			}
			return re.ReplaceAllString(src, repl), true
		},
	}
}

// Chain applies rules in order.
type Chain struct {
	rules []Rule
}

func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: append([]Rule(nil), rules...)}
}

// Then returns a new chain with rules appended.
func (c *Chain) Then(rules ...Rule) *Chain {
	next := make([]Rule, 0, len(c.rules)+len(rules))
	next = append(next, c.rules...)
	next = append(next, rules...)
	return &Chain{rules: next}
}

// Names lists the rule names in application order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Apply runs every rule over src. A rule that does not match never stops the
// chain.
func (c *Chain) Apply(src string) (string, []Diagnostic) {
	var diags []Diagnostic
	for _, r := range c.rules {
		out, ok := r.Apply(src)
		if !ok {
			if r.Expect != "" {
				msg := r.Hint
				if msg == "" {
					msg = "pattern did not match"
				}
				diags = append(diags, Diagnostic{Rule: r.Name, Severity: r.Expect, Message: msg})
			}
			continue
		}
		src = out
	}
	return src, diags
}
