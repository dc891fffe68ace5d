package rewrite

import (
	"regexp"
	"strings"
)

var (
	methodDecl        = regexp.MustCompile(`(?m)^([ \t]*)((?:(?:abstract|final|static|public|protected|private)[ \t]+)*)function([ \t]+&?[A-Za-z_]\w*[ \t]*\()`)
	doubledVisibility = regexp.MustCompile(`\b(public|protected|private)(?:[ \t]+(?:public|protected|private))+[ \t]+function\b`)
)

// NormalizeVisibility makes every method declared without a visibility keyword
// public. Only declarations starting a line are considered, so closures keep
// their form.
func NormalizeVisibility(src string) (string, bool) {
	changed := false
	out := methodDecl.ReplaceAllStringFunc(src, func(m string) string {
		sub := methodDecl.FindStringSubmatch(m)
		indent, mods, rest := sub[1], sub[2], sub[3]
		for _, f := range strings.Fields(mods) {
			switch f {
			case "public", "protected", "private":
				return m
			}
		}
		changed = true
		return indent + "public " + mods + "function" + rest
	})
	return out, changed
}

// CollapseVisibility turns `public public function` into `public function`.
func CollapseVisibility(src string) (string, bool) {
	if !doubledVisibility.MatchString(src) {
		return src, false
	}
	return doubledVisibility.ReplaceAllString(src, "$1 function"), true
}

func VisibilityRule() Rule {
	return Rule{Name: "method-visibility", Apply: NormalizeVisibility}
}

func CollapseVisibilityRule() Rule {
	return Rule{Name: "collapse-visibility", Apply: CollapseVisibility}
}
