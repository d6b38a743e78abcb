package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sansecio/yardedupe/cmd/internal"
	"github.com/sansecio/yardedupe/parser"
)

func writeRules(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestDedupe(t *testing.T) {
	in := t.TempDir()
	writeRules(t, in, map[string]string{
		"a.yar": `import "pe"
rule util { condition: true }
rule a { condition: util }
`,
		"sub/b.yara": `rule b { strings: $s = "x" condition: $s and util }
rule noisy { condition: false }
`,
		"bad.yar":   `rule { condition: true }`,
		"notes.txt": `rule ignored { condition: true }`,
	})
	skip := filepath.Join(t.TempDir(), "skip.txt")
	require.NoError(t, os.WriteFile(skip, []byte("# generated\nnoisy\n"), 0o644))

	outDir := t.TempDir()
	out := filepath.Join(outDir, "all.yar")
	report := filepath.Join(outDir, "report.yaml")

	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"dedupe", "-i", in, "-o", out, "--skip-rules", skip,
		"--report", report, "--log-format", "json",
	}, &bytes.Buffer{}, &stderr)
	require.NoError(t, err, stderr.String())

	text, err := os.ReadFile(out)
	require.NoError(t, err)
	rs, err := parser.New().Parse(string(text))
	require.NoError(t, err, string(text))

	var names []string
	for _, r := range rs.Rules {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"util", "a", "b"}, names)
	assert.Equal(t, `"pe"`, rs.Imports[0].Value)
	assert.Contains(t, stderr.String(), "skipping file that failed to parse")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var rep internal.Report
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.Equal(t, "referrers", rep.Order)
	assert.Equal(t, 2, rep.Stats.Files)
	assert.Equal(t, 4, rep.Stats.Total)
	assert.Equal(t, 3, rep.Stats.Kept)
	assert.Equal(t, 1, rep.Stats.Skipped)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "bad.yar", filepath.Base(rep.Failed[0].Path))
}

func TestDedupeMissingOutput(t *testing.T) {
	err := run(context.Background(), []string{"dedupe", "-i", t.TempDir()}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.EqualError(t, err, "no output file given")
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.yar")
	writeRules(t, dir, map[string]string{"r.yar": `rule base { condition: true }
rule top {
	meta:
		author = "x"
	strings:
		$a = "a"
		$b = "b"
	condition:
		any of them and base and (pe.is_dll() or other)
}
`})

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"inspect", path}, &stdout, &bytes.Buffer{}))
	assert.Equal(t, "Parsed 2 rules from "+path+"\n"+
		"  - base (strings: 0, meta: 0, refs: [])\n"+
		"  - top (strings: 2, meta: 1, refs: [base, other])\n", stdout.String())

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"inspect", "-render", path}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "rule base {\n")
}

func TestInspectRuleAndMeta(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.yar")
	writeRules(t, dir, map[string]string{"r.yar": `rule base { meta: author = "ann" condition: true }
rule top { condition: base }
`})

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"inspect", "-rule", "base", "-meta", "author", path}, &stdout, &bytes.Buffer{}))
	assert.Equal(t, "Parsed 2 rules from "+path+"\n"+
		"  - base (strings: 0, meta: 1, refs: [], author: \"ann\")\n", stdout.String())

	err := run(context.Background(), []string{"inspect", "-rule", "missing", path}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.EqualError(t, err, `no rule "missing" in `+path)
}

func TestInspectErrors(t *testing.T) {
	assert.Error(t, run(context.Background(), []string{"inspect"}, &bytes.Buffer{}, &bytes.Buffer{}))
	assert.Error(t, run(context.Background(), []string{"inspect", filepath.Join(t.TempDir(), "missing.yar")}, &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"scan"}, &bytes.Buffer{}, &stderr)
	assert.EqualError(t, err, `unknown command "scan"`)
	assert.Contains(t, stderr.String(), "usage: yardedupe")
}

func TestHelp(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"help"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "dedupe")
}
