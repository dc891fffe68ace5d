package migrator

import (
	"context"
	"path/filepath"

	"ci3to4/internal/crawler"
	"ci3to4/internal/rewrite"
)

// Views migrates every file under application/views, keeping subdirectories.
func (m *Migrator) Views(ctx context.Context) (*Result, error) {
	res := &Result{Kind: KindView}
	dir := m.legacyDir(KindView)
	chain := rewrite.NewChain(rewrite.ViewRules()...)

	err := crawler.NewCrawler(true).Scan(dir, func(rel string) error {
		return m.process(ctx, res, filepath.Join(dir, rel), filepath.Join(m.targetDir(KindView), rel), chain)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
