package migrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ci3to4/internal/crawler"
	"ci3to4/internal/mapping"
	"ci3to4/internal/rewrite"
)

// Models migrates application/models and returns the legacy → CI4 model name
// map that the controller migration depends on.
func (m *Migrator) Models(ctx context.Context) (mapping.ModelNames, *Result, error) {
	names := mapping.ModelNames{}
	res := &Result{Kind: KindModel}
	dir := m.legacyDir(KindModel)

	err := crawler.NewCrawler(false, ".php").Scan(dir, func(rel string) error {
		old := strings.TrimSuffix(rel, filepath.Ext(rel))
		repl := rewrite.DeriveModelName(old)
		names[old] = repl

		src := filepath.Join(dir, rel)
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", src, err)
		}

		chain := rewrite.NewChain(
			rewrite.StripGuardRule(),
			rewrite.NamespaceRule(m.ns.Models),
			rewrite.ModelDeclarationRule(old, repl),
			rewrite.UseRule(`CodeIgniter\Model`),
			rewrite.CollapseVisibilityRule(),
			rewrite.VisibilityRule(),
			rewrite.ModelPropertiesRule(),
			rewrite.AccessorRule(),
			// The declaration rule owns CI_Model; a declaration it rejects stays as written.
			rewrite.ClassesRule(mapping.ClassesExcept("CI_Model")),
		)
		out, diags := chain.Apply(string(data))
		diags = m.explainDeclaration(ctx, data, diags)

		return m.emit(ctx, res, src, filepath.Join(m.targetDir(KindModel), repl+".php"), out, diags)
	})
	if err != nil {
		return nil, nil, err
	}
	return names, res, nil
}

// explainDeclaration adds the declaration actually found in the legacy source to
// a failed model-declaration diagnostic.
func (m *Migrator) explainDeclaration(ctx context.Context, src []byte, diags []rewrite.Diagnostic) []rewrite.Diagnostic {
	for i, d := range diags {
		if d.Rule != "model-declaration" {
			continue
		}
		classes, err := m.checker.Classes(ctx, src)
		if err != nil || len(classes) == 0 {
			diags[i].Message += "; no class declaration found"
			continue
		}
		c := classes[0]
		found := "class " + c.Name
		if c.Base != "" {
			found += " extends " + c.Base
		}
		diags[i].Message += "; found `" + found + "`"
		diags[i].Line = c.Line
	}
	return diags
}
