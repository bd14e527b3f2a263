// Package scanner finds problem documents under a directory tree.
// It respects .gdfignore files with gitignore-style patterns.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	DefaultExcludes []string // Directory names never descended into
	IgnoreFileName  string   // Name of the ignore file (default: .gdfignore)
	Extensions      []string // File extensions to report, including the dot
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:      true,
		IgnoreFileName:  ".gdfignore",
		DefaultExcludes: []string{".git", "node_modules", "vendor"},
		Extensions:      []string{".yaml", ".yml"},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan walks root and returns the paths of the matching files in lexical
// order. Ignore files apply to the directory holding them and below.
func (s *Scanner) Scan(root string) ([]string, error) {
	patterns, err := s.loadIgnorePatterns(root)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return skip(d)
		}
		if d.IsDir() {
			if slices.Contains(s.opts.DefaultExcludes, d.Name()) || ignored(patterns, rel, true) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnorePatterns(path)
			if err != nil {
				return fmt.Errorf("loading ignore patterns: %w", err)
			}
			for _, p := range nested {
				patterns = append(patterns, p.under(rel))
			}
			return nil
		}
		if !d.Type().IsRegular() || ignored(patterns, rel, false) {
			return nil
		}
		if slices.Contains(s.opts.Extensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return files, nil
}

func skip(d fs.DirEntry) error {
	if d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

// under rebases a pattern read from the ignore file of directory dir.
func (p IgnorePattern) under(dir string) IgnorePattern {
	if p.anchored {
		p.segments = append(strings.Split(dir, "/"), p.segments...)
		return p
	}
	p.anchored = true
	p.segments = append(append(strings.Split(dir, "/"), "**"), p.segments...)
	return p
}

// loadIgnorePatterns reads the ignore file of dir, if any.
func (s *Scanner) loadIgnorePatterns(dir string) ([]IgnorePattern, error) {
	if s.opts.IgnoreFileName == "" {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if p, ok := ParseIgnorePattern(sc.Text()); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns, sc.Err()
}

// Expand replaces every directory among paths by the problem files found
// under it. Plain files are kept as given.
func Expand(paths []string, opts Options) ([]string, error) {
	var out []string
	s := New(opts)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := s.Scan(p)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}
