package rewrite

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"ci3to4/internal/mapping"
)

const modelSuffix = "_model"

// DeriveModelName maps a CI3 model name to its CI4 class name: a trailing
// "_model" is dropped, snake_case becomes CamelCase and "Model" is appended.
//
//	user_profile_model -> UserProfileModel
//	Auth               -> AuthModel
func DeriveModelName(name string) string {
	base := name
	if len(base) >= len(modelSuffix) && strings.EqualFold(base[len(base)-len(modelSuffix):], modelSuffix) {
		base = base[:len(base)-len(modelSuffix)]
	}
	var b strings.Builder
	for _, part := range strings.Split(base, "_") {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	b.WriteString("Model")
	return b.String()
}

// ReferencedModels returns the legacy names from names that occur anywhere in
// src, compared case-insensitively.
func ReferencedModels(src string, names mapping.ModelNames) []string {
	lower := strings.ToLower(src)
	var found []string
	for _, old := range names.Keys() {
		if strings.Contains(lower, strings.ToLower(old)) {
			found = append(found, old)
		}
	}
	return found
}

// RewriteModelReferences removes the loader statement of every mapped model and
// turns `$this-><old>->` into `<new>::`. Model identifiers match
// case-insensitively; the rewrite is not scope-aware.
func RewriteModelReferences(src string, names mapping.ModelNames) (string, bool) {
	changed := false
	for _, old := range names.Keys() {
		q := regexp.QuoteMeta(old)
		stmt := `\$this->load->model\(\s*['"](?:[\w/]+/)?` + q + `['"][^;]*;`
		for _, re := range []*regexp.Regexp{
			regexp.MustCompile(`(?im)^[ \t]*` + stmt + `[ \t]*\r?\n`),
			regexp.MustCompile(`(?i)` + stmt),
		} {
			if re.MatchString(src) {
				src = re.ReplaceAllString(src, "")
				changed = true
			}
		}

		arrow := regexp.MustCompile(`(?i)\$this->` + q + `->`)
		if arrow.MatchString(src) {
			src = arrow.ReplaceAllLiteralString(src, names[old]+"::")
			changed = true
		}
	}
	return src, changed
}

func ModelReferencesRule(names mapping.ModelNames) Rule {
	return Rule{
		Name:  "model-references",
		Apply: func(src string) (string, bool) { return RewriteModelReferences(src, names) },
	}
}

// RewriteModelDeclaration renames `class <old> extends CI_Model` to
// `class <repl> extends Model`. Both names must match in the same statement.
func RewriteModelDeclaration(src, old, repl string) (string, bool) {
	re := regexp.MustCompile(`(?i)\bclass\s+` + regexp.QuoteMeta(old) + `\s+extends\s+CI_Model\b`)
	if !re.MatchString(src) {
		return src, false
	}
	return re.ReplaceAllLiteralString(src, "class "+repl+" extends Model"), true
}

func ModelDeclarationRule(old, repl string) Rule {
	return Rule{
		Name:  "model-declaration",
		Apply: func(src string) (string, bool) { return RewriteModelDeclaration(src, old, repl) },
	}.Expected(SeverityWarning, "expected `class "+old+" extends CI_Model`; declaration kept")
}
