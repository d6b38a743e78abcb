package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sansecio/yardedupe/merge"
	"github.com/sansecio/yardedupe/parser"
)

// Report summarizes a dedupe run.
type Report struct {
	Output string       `yaml:"output"`
	Order  string       `yaml:"order"`
	Stats  merge.Stats  `yaml:"stats"`
	Failed []FailedFile `yaml:"failed,omitempty"`
}

// FailedFile is a file left out of the corpus because it did not parse.
type FailedFile struct {
	Path  string `yaml:"path"`
	Error string `yaml:"error"`
}

func NewReport(output string, order merge.Order, stats merge.Stats, failed []*parser.FileError) *Report {
	r := &Report{Output: output, Order: order.String(), Stats: stats}
	for _, fe := range failed {
		r.Failed = append(r.Failed, FailedFile{Path: fe.Path, Error: fe.Err.Error()})
	}
	return r
}

// Write stores the report as yaml at path.
func (r *Report) Write(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
