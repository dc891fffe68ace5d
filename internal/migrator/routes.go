package migrator

import (
	"context"
	"path/filepath"

	"ci3to4/internal/mapping"
	"ci3to4/internal/rewrite"
)

// Routes rewrites application/config/routes.php into app/Config/Routes.php.
func (m *Migrator) Routes(ctx context.Context) (*Result, error) {
	res := &Result{Kind: KindRoute}
	src := filepath.Join(m.legacyDir(KindRoute), mapping.RoutesFile)
	if !fileExists(src) {
		return res, nil
	}

	chain := rewrite.NewChain(
		rewrite.StripGuardRule(),
		rewrite.RoutesRule(),
		rewrite.TranslateDashesRule(),
		rewrite.RoutesHeaderRule(),
	)
	if err := m.process(ctx, res, src, filepath.Join(m.targetDir(KindRoute), "Routes.php"), chain); err != nil {
		return nil, err
	}
	return res, nil
}
