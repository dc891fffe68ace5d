package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PSR4 is one namespace root registered with the CI4 autoloader.
type PSR4 struct {
	Namespace string
	Dir       string // directory below APPPATH
}

func (p PSR4) entry() string {
	return fmt.Sprintf("'%s' => APPPATH . '%s',", p.Namespace, p.Dir)
}

var (
	appNamespaceLine = regexp.MustCompile(`(?m)^([ \t]*)APP_NAMESPACE[ \t]*=>[ \t]*APPPATH\b.*$`)
	helpersProperty  = regexp.MustCompile(`(?m)^([ \t]*)public[ \t]+(?:array[ \t]+)?\$helpers[ \t]*=[ \t]*\[[^\]]*\][ \t]*;`)
)

// WriteAutoload registers entries and helpers in <target>/app/Config/Autoload.php.
// Entries already present are skipped; helpers replace the $helpers list when
// any are given. A missing file is generated. It returns what was changed.
func WriteAutoload(target string, entries []PSR4, helpers []string) ([]string, error) {
	path := filepath.Join(target, "app", "Config", "Autoload.php")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(renderAutoload(entries, helpers)), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return []string{"generated " + path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	src, changes := PatchAutoload(string(data), entries, helpers)
	if len(changes) == 0 {
		return nil, nil
	}
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return changes, nil
}

// PatchAutoload adds the PSR-4 entries below the APP_NAMESPACE line and sets
// the autoloaded helpers.
func PatchAutoload(src string, entries []PSR4, helpers []string) (string, []string) {
	var changes []string

	if m := appNamespaceLine.FindStringSubmatchIndex(src); m != nil {
		indent := src[m[2]:m[3]]
		var lines []string
		for _, e := range entries {
			if strings.Contains(src, "'"+e.Namespace+"'") {
				continue
			}
			lines = append(lines, indent+e.entry())
			changes = append(changes, "psr4 "+e.Namespace)
		}
		if len(lines) > 0 {
			src = src[:m[1]] + "\n" + strings.Join(lines, "\n") + src[m[1]:]
		}
	}

	if len(helpers) > 0 {
		if m := helpersProperty.FindStringSubmatchIndex(src); m != nil {
			decl := src[m[2]:m[3]] + "public $helpers = " + phpList(helpers) + ";"
			if src[m[0]:m[1]] != decl {
				src = src[:m[0]] + decl + src[m[1]:]
				changes = append(changes, "helpers "+strings.Join(helpers, ", "))
			}
		}
	}
	return src, changes
}

func phpList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func renderAutoload(entries []PSR4, helpers []string) string {
	var b strings.Builder
	b.WriteString("<?php\n\nnamespace Config;\n\nuse CodeIgniter\\Config\\AutoloadConfig;\n\n")
	b.WriteString("class Autoload extends AutoloadConfig\n{\n")
	b.WriteString("    public $psr4 = [\n        APP_NAMESPACE => APPPATH,\n")
	for _, e := range entries {
		b.WriteString("        " + e.entry() + "\n")
	}
	b.WriteString("    ];\n\n")
	b.WriteString("    public $classmap = [];\n\n")
	b.WriteString("    public $files = [];\n\n")
	fmt.Fprintf(&b, "    public $helpers = %s;\n", phpList(helpers))
	b.WriteString("}\n")
	return b.String()
}
