//go:build yara

package internal

import (
	"fmt"
	"os"
	"strings"

	yara "github.com/hillu/go-yara/v4"
)

// CompileRules compiles the YARA source at path with libyara and saves the
// compiled rules to out. It returns the number of compiled rules.
func CompileRules(path, out string) (int, error) {
	compiler, err := yara.NewCompiler()
	if err != nil {
		return 0, err
	}
	defer compiler.Destroy()

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := compiler.AddFile(f, ""); err != nil {
		return 0, compileError(err, compiler.Errors)
	}

	rules, err := compiler.GetRules()
	if err != nil {
		return 0, fmt.Errorf("compiling rules: %w", err)
	}
	defer rules.Destroy()

	if err := rules.Save(out); err != nil {
		return 0, fmt.Errorf("saving compiled rules: %w", err)
	}
	return len(rules.GetRules()), nil
}

func compileError(err error, msgs []yara.CompilerMessage) error {
	if len(msgs) == 0 {
		return fmt.Errorf("adding rules: %w", err)
	}
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = fmt.Sprintf("%s:%d: %s", m.Filename, m.Line, m.Text)
	}
	return fmt.Errorf("adding rules: %w\n%s", err, strings.Join(lines, "\n"))
}
