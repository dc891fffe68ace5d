package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("<?php\n"), 0644))
	}
}

func TestCrawler_Scan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"Welcome.php",
		"index.html",
		"Blog.PHP",
		"admin/Dashboard.php",
		".git/config.php",
	)

	collect := func(c *Crawler) []string {
		var got []string
		require.NoError(t, c.Scan(root, func(rel string) error {
			got = append(got, filepath.ToSlash(rel))
			return nil
		}))
		return got
	}

	t.Run("top level php", func(t *testing.T) {
		assert.Equal(t, []string{"Blog.PHP", "Welcome.php"}, collect(NewCrawler(false, ".php")))
	})

	t.Run("recursive any file", func(t *testing.T) {
		assert.Equal(t, []string{"Blog.PHP", "Welcome.php", "admin/Dashboard.php", "index.html"}, collect(NewCrawler(true)))
	})

	t.Run("missing directory", func(t *testing.T) {
		called := false
		err := NewCrawler(true).Scan(filepath.Join(root, "nope"), func(string) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("callback error stops scan", func(t *testing.T) {
		calls := 0
		err := NewCrawler(false, ".php").Scan(root, func(string) error {
			calls++
			return os.ErrPermission
		})
		assert.ErrorIs(t, err, os.ErrPermission)
		assert.Equal(t, 1, calls)
	})
}
