package internal

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sansecio/yardedupe/parser"
)

// Discover walks dirs and returns the YARA files below them (.yar or .yara,
// in any case), sorted and without duplicates.
func Discover(dirs ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("input directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("input directory %s: not a directory", dir)
		}

		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isRuleFile(path) || seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isRuleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yar", ".yara":
		return true
	}
	return false
}

// ReadSources reads every file in paths. Each source is named by the file's
// canonical absolute path; invalid UTF-8 is replaced.
func ReadSources(paths []string) ([]parser.Source, error) {
	sources := make([]parser.Source, 0, len(paths))
	for _, path := range paths {
		canonical, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
			canonical = resolved
		}
		data, err := os.ReadFile(canonical)
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		sources = append(sources, parser.Source{
			Path: canonical,
			Text: strings.ToValidUTF8(string(data), "\uFFFD"),
		})
	}
	return sources, nil
}
