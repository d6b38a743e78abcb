package parser

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sansecio/yardedupe/ast"
	"golang.org/x/sync/errgroup"
)

// Source is one rule file to parse: its provenance and its text.
type Source struct {
	Path string
	Text string
}

// FileError reports a file that failed to parse. The file contributes
// nothing to the results.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchOptions configures ParseAll.
type BatchOptions struct {
	// Workers bounds the number of files parsed at once. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int

	// Progress, if set, is called once per source after it was parsed,
	// possibly from several goroutines at once.
	Progress func(path string)
}

// ParseAll parses sources in parallel. Rule sets come back in source order;
// failed sources are reported as FileErrors and left out of the rule sets.
// A cancelled ctx stops sources that have not started yet; they are reported
// with the context's error.
func ParseAll(ctx context.Context, p *Parser, sources []Source, opts BatchOptions) ([]*ast.RuleSet, []*FileError) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type result struct {
		rs  *ast.RuleSet
		err error
	}
	results := make([]result, len(sources))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			rs, err := p.ParseNamed(src.Path, src.Text)
			results[i] = result{rs: rs, err: err}
			if opts.Progress != nil {
				opts.Progress(src.Path)
			}
			return nil
		})
	}
	_ = g.Wait()

	sets := make([]*ast.RuleSet, 0, len(sources))
	var failed []*FileError
	for i, r := range results {
		if r.err != nil {
			failed = append(failed, &FileError{Path: sources[i].Path, Err: r.err})
			continue
		}
		sets = append(sets, r.rs)
	}
	return sets, failed
}
