package migrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ci3to4/internal/mapping"
	"ci3to4/internal/rewrite"
)

// Config turns config.php, database.php and autoload.php into generated config
// classes. Missing files are skipped.
func (m *Migrator) Config(ctx context.Context) (*Result, error) {
	res := &Result{Kind: KindConfig}
	for _, cs := range mapping.ConfigSources {
		src := filepath.Join(m.legacyDir(KindConfig), cs.File)
		if !fileExists(src) {
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src, err)
		}

		entries := rewrite.ExtractConfig(rewrite.StripGuard(string(data)), cs.Var)
		var diags []rewrite.Diagnostic
		if len(entries) == 0 {
			diags = append(diags, rewrite.Diagnostic{
				Rule:     "config-extract",
				Severity: rewrite.SeverityInfo,
				Message:  "no single-line assignments recognized; " + cs.Class + " is empty",
			})
		}
		out := rewrite.RenderConfigClass(m.ns.Config, cs.Class, entries)
		if err := m.emit(ctx, res, src, filepath.Join(m.targetDir(KindConfig), cs.Class+".php"), out, diags); err != nil {
			return nil, err
		}
	}
	return res, nil
}
