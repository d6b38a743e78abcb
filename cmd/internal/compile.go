//go:build !yara

package internal

import "errors"

// ErrNoYara is returned by CompileRules in builds without libyara.
var ErrNoYara = errors.New("built without libyara support, rebuild with -tags yara")

// CompileRules needs libyara; see the yara build tag.
func CompileRules(path, out string) (int, error) {
	return 0, ErrNoYara
}
