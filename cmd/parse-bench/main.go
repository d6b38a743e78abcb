package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sansecio/yardedupe/cmd/internal"
	"github.com/sansecio/yardedupe/merge"
	"github.com/sansecio/yardedupe/parser"
)

var (
	dir        = flag.String("dir", ".", "directory with yara rule files")
	workers    = flag.Int("workers", 0, "parallel parse workers (0 = one per CPU)")
	rounds     = flag.Int("n", 3, "number of rounds per mode")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file (profiles the parallel rounds only)")
)

func main() {
	flag.Parse()
	if *rounds < 1 {
		*rounds = 1
	}

	paths, err := internal.Discover(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering rule files: %v\n", err)
		os.Exit(1)
	}
	sources, err := internal.ReadSources(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading rule files: %v\n", err)
		os.Exit(1)
	}

	var size int
	for _, src := range sources {
		size += len(src.Text)
	}
	fmt.Printf("Benchmarking parsing of %d files (%d bytes) in %s\n\n", len(sources), size, *dir)

	p := parser.New()

	start := time.Now()
	var failed int
	for i := 0; i < *rounds; i++ {
		failed = 0
		for _, src := range sources {
			if _, err := p.ParseNamed(src.Path, src.Text); err != nil {
				failed++
			}
		}
	}
	sequential := time.Since(start) / time.Duration(*rounds)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating profile: %v\n", err)
			os.Exit(1)
		}
		pprof.StartCPUProfile(f)
	}

	start = time.Now()
	var failedAll []*parser.FileError
	var corpus *merge.Corpus
	for i := 0; i < *rounds; i++ {
		rs, errs := parser.ParseAll(context.Background(), p, sources, parser.BatchOptions{Workers: *workers})
		failedAll = errs
		corpus, _ = merge.Merge(rs, merge.Options{})
	}
	parallel := time.Since(start) / time.Duration(*rounds)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}

	fmt.Printf("sequential: %v (%d files failed)\n", sequential, failed)
	fmt.Printf("parallel:   %v (%d files failed, %d rules merged)\n", parallel, len(failedAll), len(corpus.Rules))
	fmt.Printf("\nsequential/parallel ratio: %.2fx\n", float64(sequential)/float64(parallel))
}
