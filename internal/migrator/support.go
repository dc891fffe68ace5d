package migrator

import (
	"context"
	"path/filepath"

	"ci3to4/internal/crawler"
	"ci3to4/internal/rewrite"
)

// Helpers copies application/helpers into the helpers namespace.
func (m *Migrator) Helpers(ctx context.Context) (*Result, error) {
	return m.namespaced(ctx, KindHelper, m.ns.Helpers)
}

// Libraries copies application/libraries into the libraries namespace.
func (m *Migrator) Libraries(ctx context.Context) (*Result, error) {
	return m.namespaced(ctx, KindLibrary, m.ns.Libraries)
}

// namespaced strips the guard and adds a namespace; nothing else is rewritten.
func (m *Migrator) namespaced(ctx context.Context, kind Kind, ns string) (*Result, error) {
	res := &Result{Kind: kind}
	dir := m.legacyDir(kind)
	chain := rewrite.NewChain(rewrite.StripGuardRule(), rewrite.NamespaceRule(ns))

	err := crawler.NewCrawler(false, ".php").Scan(dir, func(rel string) error {
		return m.process(ctx, res, filepath.Join(dir, rel), filepath.Join(m.targetDir(kind), rel), chain)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
