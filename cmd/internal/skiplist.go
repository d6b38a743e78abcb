package internal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/sansecio/yardedupe/merge"
)

// SkipList excludes rules by exact name or by pattern. It implements
// merge.SkipList.
type SkipList struct {
	names    merge.NameSet
	patterns []*regexp.Regexp
}

var _ merge.SkipList = (*SkipList)(nil)

// ParseSkipList reads one entry per line. Blank lines and lines starting
// with # are ignored. A line of the form /pattern/ is a regular expression
// matched against rule names; anything else is an exact name.
func ParseSkipList(r io.Reader) (*SkipList, error) {
	s := &SkipList{names: merge.Names()}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) > 2 && strings.HasPrefix(line, "/") && strings.HasSuffix(line, "/") {
			re, err := regexp.Compile(line[1 : len(line)-1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			s.patterns = append(s.patterns, re)
			continue
		}
		s.names[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSkipList reads a skip list from path.
func LoadSkipList(path string) (*SkipList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening skip list: %w", err)
	}
	defer f.Close()

	s, err := ParseSkipList(f)
	if err != nil {
		return nil, fmt.Errorf("skip list %s: %w", path, err)
	}
	return s, nil
}

func (s *SkipList) Skip(name string) bool {
	if s.names.Skip(name) {
		return true
	}
	for _, re := range s.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct names plus the number of patterns.
func (s *SkipList) Len() int {
	return s.names.Len() + len(s.patterns)
}
