package rewrite

import "regexp"

var guardPattern = regexp.MustCompile(
	`(?m)^[ \t]*(?:` +
		`defined\(\s*['"]BASEPATH['"]\s*\)\s*(?i:or|\|\|)\s*(?:exit|die)(?:\s*\([^;]*\))?\s*;` +
		`|if\s*\(\s*!\s*defined\(\s*['"]BASEPATH['"]\s*\)\s*\)\s*(?:exit|die)(?:\s*\([^;]*\))?\s*;` +
		`)[ \t]*(?:\r?\n)?`)

// StripGuard removes the CI3 direct script access guard. Input without a guard is
// returned unchanged.
func StripGuard(src string) string {
	return guardPattern.ReplaceAllString(src, "")
}

func StripGuardRule() Rule {
	return Rule{
		Name: "strip-guard",
		Apply: func(src string) (string, bool) {
			out := StripGuard(src)
			return out, out != src
		},
	}
}
