package crawler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Crawler enumerates the source files of one legacy directory.
type Crawler struct {
	extensions []string
	ignored    []string
	recursive  bool
}

// NewCrawler creates a crawler matching files with one of the given extensions
// (all files when none are given).
func NewCrawler(recursive bool, extensions ...string) *Crawler {
	return &Crawler{
		extensions: extensions,
		ignored:    []string{".git", ".svn", "node_modules"},
		recursive:  recursive,
	}
}

// Scan walks dir and calls onFile with each matching path relative to dir, in
// lexical order. A missing dir is not an error. The first error returned by
// onFile stops the scan.
func (c *Crawler) Scan(dir string, onFile func(rel string) error) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == dir {
				return nil
			}
			if !c.recursive {
				return filepath.SkipDir
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !c.matches(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(files)
	for _, rel := range files {
		if err := onFile(rel); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) matches(name string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	for _, ext := range c.extensions {
		if strings.EqualFold(filepath.Ext(name), ext) {
			return true
		}
	}
	return false
}
