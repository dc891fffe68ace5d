package migrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ci3to4/internal/crawler"
	"ci3to4/internal/mapping"
	"ci3to4/internal/rewrite"
)

const baseController = `App\Controllers\BaseController`

// Controllers migrates application/controllers. names must hold every migrated
// model: loader statements and property calls are resolved against it.
func (m *Migrator) Controllers(ctx context.Context, names mapping.ModelNames) (*Result, error) {
	res := &Result{Kind: KindController}
	dir := m.legacyDir(KindController)

	err := crawler.NewCrawler(true, ".php").Scan(dir, func(rel string) error {
		src := filepath.Join(dir, rel)
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", src, err)
		}
		text := rewrite.StripGuard(string(data))

		rules := []rewrite.Rule{
			rewrite.NamespaceRule(m.ns.Controllers),
			rewrite.UseRule(baseController),
		}
		for _, old := range rewrite.ReferencedModels(text, names) {
			rules = append(rules, rewrite.UseRule(m.ns.Models+`\`+names[old]))
		}
		rules = append(rules,
			rewrite.BaseClassRule("CI_Controller", "BaseController"),
			rewrite.VisibilityRule(),
			rewrite.ModelReferencesRule(names),
		)
		rules = append(rules, rewrite.GenericRules()...)
		rules = append(rules, rewrite.ClassesRule(mapping.Classes))

		out, diags := rewrite.NewChain(rules...).Apply(text)
		return m.emit(ctx, res, src, filepath.Join(m.targetDir(KindController), rel), out, diags)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
