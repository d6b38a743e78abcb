package merge

import (
	"errors"
	"fmt"
	"io"

	"github.com/sansecio/yardedupe/ast"
)

// ErrResidual is returned when a rule's condition still holds unparsed text.
var ErrResidual = errors.New("condition contains unparsed text")

// WriteTo writes the corpus as YARA source: one import line per module, a
// blank line, then every rule followed by a blank line. Nothing is written
// if any rule holds a residual condition.
func (c *Corpus) WriteTo(w io.Writer) (int64, error) {
	for _, r := range c.Rules {
		if ast.HasResidual(r.Body.Condition) {
			return 0, fmt.Errorf("rule %q: %w", r.Name, ErrResidual)
		}
	}

	var n int64
	write := func(s string) error {
		m, err := io.WriteString(w, s)
		n += int64(m)
		return err
	}

	for _, imp := range c.Imports {
		if err := write("import " + imp + "\n"); err != nil {
			return n, err
		}
	}
	if err := write("\n"); err != nil {
		return n, err
	}
	for _, r := range c.Rules {
		if err := write(r.String() + "\n"); err != nil {
			return n, err
		}
	}
	return n, nil
}
