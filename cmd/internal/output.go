package internal

import "path/filepath"

// CompiledName returns the file compiled rules for path are saved to: the
// same directory, with the base name prefixed by "compiled_".
func CompiledName(path string) string {
	return filepath.Join(filepath.Dir(path), "compiled_"+filepath.Base(path))
}
