package rewrite

import (
	"regexp"
	"strings"
)

// InjectNamespace inserts `namespace ns;` as the second line, right after the
// opening tag. Sources that already declare a namespace are left alone.
func InjectNamespace(src, ns string) (string, bool) {
	lines := strings.Split(src, "\n")
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "namespace ") {
			return src, false
		}
	}
	decl := "namespace " + ns + ";"
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[0], decl)
	out = append(out, lines[1:]...)
	return strings.Join(out, "\n"), true
}

// InjectUse adds `use class;` below the namespace declaration. It needs a
// namespace line to anchor on, so it must run after InjectNamespace. Consecutive
// use statements are kept together.
func InjectUse(src, class string) (string, bool) {
	stmt := "use " + class + ";"
	lines := strings.Split(src, "\n")
	ns := -1
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if t == stmt {
			return src, false
		}
		if ns < 0 && strings.HasPrefix(t, "namespace") {
			ns = i
		}
	}
	if ns < 0 {
		return src, false
	}

	var insert []string
	at := ns + 1
	if at+1 < len(lines) && strings.TrimSpace(lines[at]) == "" && isUseLine(lines[at+1]) {
		at++
		for at < len(lines) && isUseLine(lines[at]) {
			at++
		}
		insert = []string{stmt}
	} else {
		insert = []string{"", stmt}
		if at < len(lines) && strings.TrimSpace(lines[at]) != "" {
			insert = append(insert, "")
		}
	}

	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n"), true
}

func isUseLine(l string) bool {
	return strings.HasPrefix(strings.TrimSpace(l), "use ")
}

func NamespaceRule(ns string) Rule {
	return Rule{
		Name:  "inject-namespace",
		Apply: func(src string) (string, bool) { return InjectNamespace(src, ns) },
	}.Expected(SeverityInfo, "file already declares a namespace")
}

func UseRule(class string) Rule {
	return Rule{
		Name:  "inject-use:" + class,
		Apply: func(src string) (string, bool) { return InjectUse(src, class) },
	}
}

// ModelProperties is the fixed block of CI4 model settings added to every
// migrated model.
var ModelProperties = []string{
	"    protected $table = '';",
	"    protected $primaryKey = 'id';",
	"    protected $useAutoIncrement = true;",
	"    protected $returnType = 'array';",
	"    protected $useSoftDeletes = false;",
	"    protected $allowedFields = [];",
	"    protected $useTimestamps = false;",
}

var (
	classOpening   = regexp.MustCompile(`(?m)^[ \t]*(?:(?:abstract|final)[ \t]+)?class[ \t]+\w+[^{]*\{`)
	primaryKeyProp = regexp.MustCompile(`\$primaryKey\b`)
)

// InjectModelProperties inserts ModelProperties right after the first class
// opening brace.
func InjectModelProperties(src string) (string, bool) {
	if primaryKeyProp.MatchString(src) {
		return src, false
	}
	loc := classOpening.FindStringIndex(src)
	if loc == nil {
		return src, false
	}
	block := "\n" + strings.Join(ModelProperties, "\n") + "\n"
	return src[:loc[1]] + block + src[loc[1]:], true
}

func ModelPropertiesRule() Rule {
	return Rule{
		Name:  "model-properties",
		Apply: InjectModelProperties,
	}.Expected(SeverityWarning, "class body not found or model properties already present")
}

// InjectAfterOpenTag inserts block after the first line. Sources already
// containing block are returned unchanged.
func InjectAfterOpenTag(src, block string) (string, bool) {
	if strings.Contains(src, block) {
		return src, false
	}
	i := strings.Index(src, "\n")
	if i < 0 {
		return src + "\n" + block, true
	}
	return src[:i+1] + block + src[i+1:], true
}
