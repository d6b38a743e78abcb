package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/sansecio/yardedupe/ast"
	"github.com/sansecio/yardedupe/cmd/internal"
	"github.com/sansecio/yardedupe/merge"
	"github.com/sansecio/yardedupe/parser"
)

const usage = `usage: yardedupe <command> [flags]

commands:
  dedupe   merge rule files into one deduplicated, ordered corpus
  inspect  print the rules of one file with their references
  compile  compile a rule file with libyara
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("yardedupe failed")
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}

	switch args[0] {
	case "dedupe":
		return runDedupe(ctx, args[1:], stderr)
	case "inspect":
		return runInspect(args[1:], stdout, stderr)
	case "compile":
		return runCompile(args[1:], stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runDedupe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := internal.DedupeFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := internal.LoadConfig(fs)
	if err != nil {
		return err
	}
	if err := internal.ConfigureLogger(cfg.LogLevel, cfg.LogFormat, stderr); err != nil {
		return err
	}

	opts := merge.Options{Order: cfg.Order}
	if cfg.SkipRules != "" {
		skip, err := internal.LoadSkipList(cfg.SkipRules)
		if err != nil {
			return err
		}
		opts.Skip = skip
		log.Debug().Int("entries", skip.Len()).Str("file", cfg.SkipRules).Msg("loaded skip list")
	}

	paths, err := internal.Discover(cfg.InputDirs...)
	if err != nil {
		return err
	}
	sources, err := internal.ReadSources(paths)
	if err != nil {
		return err
	}
	log.Info().Int("files", len(sources)).Strs("dirs", cfg.InputDirs).Msg("discovered rule files")

	bar := progressbar.NewOptions(len(sources),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetDescription("examining"),
		progressbar.OptionClearOnFinish(),
	)
	sets, failed := parser.ParseAll(ctx, parser.New(), sources, parser.BatchOptions{
		Workers:  cfg.Workers,
		Progress: func(string) { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, fe := range failed {
		log.Warn().Str("file", fe.Path).Err(fe.Err).Msg("skipping file that failed to parse")
	}

	corpus, stats := merge.Merge(sets, opts)
	log.Info().EmbedObject(stats).Str("order", cfg.Order.String()).Msg("merged rules")
	if len(stats.Cycles) > 0 {
		log.Warn().Int("cycles", len(stats.Cycles)).Msg("rule references form cycles, order is best effort")
	}

	if err := writeCorpus(cfg.OutputFile, corpus); err != nil {
		return err
	}
	log.Info().Str("file", cfg.OutputFile).Int("rules", len(corpus.Rules)).Msg("wrote corpus")

	if cfg.Report != "" {
		if err := internal.NewReport(cfg.OutputFile, cfg.Order, stats, failed).Write(cfg.Report); err != nil {
			return err
		}
		log.Debug().Str("file", cfg.Report).Msg("wrote report")
	}
	return nil
}

func writeCorpus(path string, corpus *merge.Corpus) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing output: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err := corpus.WriteTo(w); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func runInspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	render := fs.Bool("render", false, "print the rendered rules after the summary")
	only := fs.String("rule", "", "only inspect the rule with this name")
	metaKey := fs.String("meta", "", "also print this meta value of each rule")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: yardedupe inspect [-render] [-rule NAME] [-meta KEY] <yara-file>")
	}
	filename := fs.Arg(0)

	rs, err := parser.New().ParseFile(filename)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}

	rules := rs.Rules
	if *only != "" {
		r := rs.Rule(*only)
		if r == nil {
			return fmt.Errorf("no rule %q in %s", *only, filename)
		}
		rules = []*ast.Rule{r}
	}

	fmt.Fprintf(stdout, "Parsed %d rules from %s\n", len(rs.Rules), filename)
	for _, r := range rules {
		fmt.Fprintf(stdout, "  - %s (strings: %d, meta: %d, refs: [%s]",
			r.Name, len(r.Body.Strings), len(r.Body.Meta), strings.Join(ast.SortedRefs(r.Body.Condition), ", "))
		if *metaKey != "" {
			if v, ok := r.Body.Meta.Get(*metaKey); ok {
				fmt.Fprintf(stdout, ", %s: %s", *metaKey, v)
			}
		}
		fmt.Fprintln(stdout, ")")
	}
	if *render {
		fmt.Fprintln(stdout)
		for _, r := range rules {
			fmt.Fprintln(stdout, r)
		}
	}
	return nil
}

func runCompile(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: yardedupe compile <yara-file>")
	}
	if err := internal.ConfigureLogger(internal.DefaultLogLevel, internal.DefaultLogFormat, stderr); err != nil {
		return err
	}

	path := fs.Arg(0)
	out := internal.CompiledName(path)
	n, err := internal.CompileRules(path, out)
	if err != nil {
		return err
	}
	log.Info().Str("file", out).Int("rules", n).Msg("compiled rules")
	return nil
}
