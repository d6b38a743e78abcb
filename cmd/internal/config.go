package internal

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/sansecio/yardedupe/merge"
)

// Configuration keys.
const (
	KeyInputDirs  = "input_dirs"
	KeyOutputFile = "output_file"
	KeySkipRules  = "skip_rules"
	KeyOrder      = "order"
	KeyWorkers    = "workers"
	KeyReport     = "report"
	KeyLogLevel   = "log.level"
	KeyLogFormat  = "log.format"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Config holds the settings of a dedupe run.
type Config struct {
	InputDirs  []string
	OutputFile string
	SkipRules  string
	Order      merge.Order
	Workers    int
	Report     string
	LogLevel   string
	LogFormat  string
}

// flagKeys maps dedupe flag names to configuration keys.
var flagKeys = map[string]string{
	"i":           KeyInputDirs,
	"input-dir":   KeyInputDirs,
	"o":           KeyOutputFile,
	"output-file": KeyOutputFile,
	"skip-rules":  KeySkipRules,
	"order":       KeyOrder,
	"workers":     KeyWorkers,
	"report":      KeyReport,
	"log-level":   KeyLogLevel,
	"log-format":  KeyLogFormat,
}

// stringList is a flag.Value collecting every occurrence of a flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (s *stringList) Get() any { return []string(*s) }

// DedupeFlagSet returns the flag set of the dedupe command. Usage and
// parse errors go to output.
func DedupeFlagSet(output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("dedupe", flag.ContinueOnError)
	fs.SetOutput(output)

	dirs := &stringList{}
	fs.Var(dirs, "i", "directory containing yara rule files (repeatable)")
	fs.Var(dirs, "input-dir", "directory containing yara rule files (repeatable)")
	out := fs.String("o", "", "output file for the deduplicated rules")
	fs.StringVar(out, "output-file", "", "output file for the deduplicated rules")
	fs.String("skip-rules", "", "file listing rules to skip")
	fs.String("order", merge.ByReferrers.String(), "rule order: referrers or topological")
	fs.Int("workers", 0, "number of files parsed in parallel (0 = one per CPU)")
	fs.String("report", "", "write a yaml report of the run to this file")
	fs.String("log-level", DefaultLogLevel, "log level")
	fs.String("log-format", DefaultLogFormat, "log format: console or json")
	fs.String("config", "", "path to configuration file")
	return fs
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyOrder, merge.ByReferrers.String())
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)

	v.SetEnvPrefix("YARDEDUPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		v.SetConfigName("yardedupe")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.yardedupe")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// LoadConfig merges the flags set in fs over the environment, the config
// file and the defaults, and validates the result. fs must have been parsed.
func LoadConfig(fs *flag.FlagSet) (*Config, error) {
	v := newViper()

	var configFile string
	if f := fs.Lookup("config"); f != nil {
		configFile = f.Value.String()
	}
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if g, ok := f.Value.(flag.Getter); ok {
			v.Set(key, g.Get())
			return
		}
		v.Set(key, f.Value.String())
	})

	order, err := merge.ParseOrder(v.GetString(KeyOrder))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputDirs:  v.GetStringSlice(KeyInputDirs),
		OutputFile: v.GetString(KeyOutputFile),
		SkipRules:  v.GetString(KeySkipRules),
		Order:      order,
		Workers:    v.GetInt(KeyWorkers),
		Report:     v.GetString(KeyReport),
		LogLevel:   v.GetString(KeyLogLevel),
		LogFormat:  v.GetString(KeyLogFormat),
	}
	if len(cfg.InputDirs) == 0 {
		return nil, errors.New("no input directory given")
	}
	if cfg.OutputFile == "" {
		return nil, errors.New("no output file given")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid worker count %d", cfg.Workers)
	}
	return cfg, nil
}
