package rewrite

import (
	"regexp"
	"strings"

	"ci3to4/internal/mapping"
)

// SubstituteMethods replaces every `$this-><old>` with `$this-><new>` for each
// mapping, in table order. Matching is plain substring replacement: a longer
// identifier that starts with an old path is rewritten as well.
func SubstituteMethods(src string, table []mapping.MethodMapping) (string, bool) {
	changed := false
	for _, m := range table {
		old := "$this->" + m.Old
		if !strings.Contains(src, old) {
			continue
		}
		src = strings.ReplaceAll(src, old, "$this->"+m.New)
		changed = true
	}
	return src, changed
}

func MethodsRule(table []mapping.MethodMapping) Rule {
	return Rule{
		Name:  "call-paths",
		Apply: func(src string) (string, bool) { return SubstituteMethods(src, table) },
	}
}

// LoaderRules rewrite the CI3 loader calls. The view rule with a trailing TRUE
// argument returns a string in CI3, so it becomes a plain view() call. Its
// arguments may not cross a statement boundary.
func LoaderRules() []Rule {
	return []Rule{
		Regex("load-view-string", `\$this->load->view\(([^;]*?),\s*(?i:true)\s*\)`, `view($1)`),
		Regex("load-view", `\$this->load->view\((.*?)\)\s*;`, `return view($1);`),
		Regex("load-model", `\$this->load->model\((.*?)\)\s*;`, `model($1);`),
		Regex("load-library", `\$this->load->library\((.*?)\)\s*;`, `service($1);`),
		Regex("load-helper", `\$this->load->helper\((.*?)\)\s*;`, `helper($1);`),
		Regex("load-database", `\$this->load->database\(\s*\)\s*;`, `$$this->db = \Config\Database::connect();`),
	}
}

var accessorPattern = regexp.MustCompile(`->(result_array|result|row_array|row|num_rows)\(`)

var accessorNames = map[string]string{
	"result":       "getResult",
	"result_array": "getResultArray",
	"row":          "getRow",
	"row_array":    "getRowArray",
	"num_rows":     "getNumRows",
}

// RenameAccessors turns result-set accessors into their CI4 names. Arguments are
// left in place.
func RenameAccessors(src string) (string, bool) {
	if !accessorPattern.MatchString(src) {
		return src, false
	}
	return accessorPattern.ReplaceAllStringFunc(src, func(m string) string {
		sub := accessorPattern.FindStringSubmatch(m)
		return "->" + accessorNames[sub[1]] + "("
	}), true
}

func AccessorRule() Rule {
	return Rule{Name: "result-accessors", Apply: RenameAccessors}
}

func SessionRules() []Rule {
	return []Rule{
		Regex("session-set", `\$this->session->set_userdata\((.*?)\)`, `session()->set($1)`),
		Regex("session-unset", `\$this->session->unset_userdata\((.*?)\)`, `session()->remove($1)`),
		Regex("session-get", `\$this->session->userdata\((.*?)\)`, `session()->get($1)`),
	}
}

// GenericRules is the CI3 syntax chain shared by controllers.
func GenericRules() []Rule {
	rules := []Rule{MethodsRule(mapping.Methods)}
	rules = append(rules, LoaderRules()...)
	rules = append(rules, AccessorRule())
	rules = append(rules, SessionRules()...)
	return rules
}

// RenameClasses rewrites CI3 class references on word boundaries.
func RenameClasses(src string, table []mapping.ClassMapping) (string, bool) {
	changed := false
	for _, m := range table {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(m.Old) + `\b`)
		if !re.MatchString(src) {
			continue
		}
		src = re.ReplaceAllLiteralString(src, m.New)
		changed = true
	}
	return src, changed
}

func ClassesRule(table []mapping.ClassMapping) Rule {
	return Rule{
		Name:  "class-references",
		Apply: func(src string) (string, bool) { return RenameClasses(src, table) },
	}
}

// BaseClassRule rewrites `extends old` to `extends repl`.
func BaseClassRule(old, repl string) Rule {
	return Regex("base-class", `\bextends\s+`+regexp.QuoteMeta(old)+`\b`, "extends "+repl).
		Expected(SeverityWarning, "class does not extend "+old)
}
