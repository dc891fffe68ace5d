package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

// ConfigEntry is one recognized `$config['key'] = value;` assignment. Value is
// the right-hand side source text, never evaluated.
type ConfigEntry struct {
	Key   string
	Value string
}

func assignmentPattern(vars []string) *regexp.Regexp {
	names := []string{"config"}
	for _, v := range vars {
		if v != "" && v != "config" {
			names = append(names, regexp.QuoteMeta(v))
		}
	}
	return regexp.MustCompile(`(?m)^[ \t]*\$(?:` + strings.Join(names, "|") +
		`)\[[ \t]*['"]([A-Za-z_]\w*)['"][ \t]*\][ \t]*=[ \t]*(.+?)[ \t]*;[ \t]*(?://.*|#.*)?\r?$`)
}

// ExtractConfig scans for single-line assignments to $config, or to one of the
// extra array variables. Nested keys and values spanning lines are not
// recognized. A repeated key keeps its first position and its last value.
func ExtractConfig(src string, vars ...string) []ConfigEntry {
	var entries []ConfigEntry
	index := map[string]int{}
	for _, m := range assignmentPattern(vars).FindAllStringSubmatch(src, -1) {
		key, value := m[1], m[2]
		if i, ok := index[key]; ok {
			entries[i].Value = value
			continue
		}
		index[key] = len(entries)
		entries = append(entries, ConfigEntry{Key: key, Value: value})
	}
	return entries
}

// RenderConfigClass emits a CI4 config class with one public property per entry.
func RenderConfigClass(ns, class string, entries []ConfigEntry) string {
	var b strings.Builder
	b.WriteString("<?php\n\n")
	fmt.Fprintf(&b, "namespace %s;\n\n", ns)
	b.WriteString("use CodeIgniter\\Config\\BaseConfig;\n\n")
	fmt.Fprintf(&b, "class %s extends BaseConfig\n{\n", class)
	for _, e := range entries {
		fmt.Fprintf(&b, "    public $%s = %s;\n", e.Key, e.Value)
	}
	b.WriteString("}\n")
	return b.String()
}

// DatabaseKeys are the credentials copied from the legacy database config into
// the CI4 environment file.
var DatabaseKeys = []string{"hostname", "database", "username", "password"}

// ExtractDatabaseCredentials finds the quoted credential values of the legacy
// database config, either in array form (`'hostname' => 'x'`) or as
// `$db['default']['hostname'] = 'x';`. The first occurrence wins.
func ExtractDatabaseCredentials(src string) map[string]string {
	creds := map[string]string{}
	for _, key := range DatabaseKeys {
		q := regexp.QuoteMeta(key)
		for _, re := range []*regexp.Regexp{
			regexp.MustCompile(`['"]` + q + `['"]\s*=>\s*(?:'([^']*)'|"([^"]*)")`),
			regexp.MustCompile(`\$db\[\s*['"]\w+['"]\s*\]\[\s*['"]` + q + `['"]\s*\]\s*=\s*(?:'([^']*)'|"([^"]*)")\s*;`),
		} {
			if m := re.FindStringSubmatch(src); m != nil {
				creds[key] = m[1] + m[2]
				break
			}
		}
	}
	return creds
}

var autoloadHelpers = regexp.MustCompile(`\$autoload\[\s*['"]helper['"]\s*\]\s*=\s*(?:array\s*\(|\[)([^)\]]*)(?:\)|\])\s*;`)

// ExtractAutoloadHelpers returns the helper names listed in the legacy
// `$autoload['helper']` assignment.
func ExtractAutoloadHelpers(src string) []string {
	m := autoloadHelpers.FindStringSubmatch(src)
	if m == nil {
		return nil
	}
	var helpers []string
	for _, part := range strings.Split(m[1], ",") {
		name := strings.Trim(strings.TrimSpace(part), `'"`)
		if name != "" {
			helpers = append(helpers, name)
		}
	}
	return helpers
}
