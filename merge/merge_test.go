package merge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sansecio/yardedupe/ast"
	"github.com/sansecio/yardedupe/parser"
)

func parseSet(t *testing.T, path, src string) *ast.RuleSet {
	t.Helper()
	rs, err := parser.New().ParseNamed(path, src)
	require.NoError(t, err)
	return rs
}

func rule(name string, cond ast.Expr) *ast.Rule {
	return &ast.Rule{Name: name, Body: ast.RuleBody{Condition: cond}}
}

func ref(name string) ast.Expr { return ast.RuleRef{Name: name} }

func names(rules []*ast.Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	return out
}

func TestMergeEndToEnd(t *testing.T) {
	first := parseSet(t, "/rules/a.yar", `
import "pe"
rule util { condition: true }
rule a { condition: util and pe.is_dll() }
`)
	second := parseSet(t, "/rules/b.yar", `
import "pe"
import "math"
rule b { condition: util and a }
`)

	corpus, stats := Merge([]*ast.RuleSet{second, first}, Options{})

	assert.Equal(t, []string{"util", "a", "b"}, names(corpus.Rules))
	assert.Equal(t, []string{"a", "b"}, corpus.Rule("util").Referrers)
	assert.Equal(t, []string{"b"}, corpus.Rule("a").Referrers)
	assert.Empty(t, corpus.Rule("b").Referrers)
	assert.Equal(t, []string{`"math"`, `"pe"`}, corpus.Imports)

	assert.Equal(t, Stats{Files: 2, Total: 3, Kept: 3, KeptPercent: 100}, stats)
}

func TestMergeSelfReference(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("x", ast.Or{Left: ref("x"), Right: ref("y")}),
		rule("y", ast.Boolean{Value: true}),
	}}

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{})

	assert.Empty(t, corpus.Rule("x").Referrers)
	assert.Equal(t, []string{"x"}, corpus.Rule("y").Referrers)
	assert.Zero(t, stats.Dangling)
}

func TestMergeSkipList(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("A", ast.Boolean{Value: true}),
		rule("B", ast.Boolean{Value: true}),
		rule("C", ast.Boolean{Value: true}),
	}}

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{Skip: Names("B", "Z")})

	assert.ElementsMatch(t, []string{"A", "C"}, names(corpus.Rules))
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 66, stats.KeptPercent)
	assert.Equal(t, 2, stats.SkipListSize)
}

func TestMergeSkippedRuleIsDangling(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("keep", ref("gone")),
		rule("gone", ast.Boolean{Value: true}),
	}}

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{Skip: Names("gone")})

	assert.Equal(t, []string{"keep"}, names(corpus.Rules))
	assert.Equal(t, 1, stats.Dangling)
}

func TestMergeDuplicatesLastWriteWins(t *testing.T) {
	b := &ast.RuleSet{Path: "b.yar", Rules: []*ast.Rule{rule("dup", ast.Boolean{Value: false})}}
	a := &ast.RuleSet{Path: "a.yar", Rules: []*ast.Rule{
		rule("dup", ast.Boolean{Value: true}),
		rule("other", ast.Boolean{Value: true}),
	}}

	corpus, stats := Merge([]*ast.RuleSet{b, a}, Options{})

	require.Equal(t, []string{"dup", "other"}, names(corpus.Rules))
	assert.Equal(t, ast.Boolean{Value: false}, corpus.Rules[0].Body.Condition)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Kept)
}

func TestMergeCountsInFileDuplicates(t *testing.T) {
	rs, err := parser.New().ParseNamed("a.yar", `
rule dup { condition: true }
rule other { condition: true }
rule dup { condition: false }
`)
	require.NoError(t, err)

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{})

	require.Equal(t, []string{"dup", "other"}, names(corpus.Rules))
	assert.Equal(t, ast.Boolean{Value: false}, corpus.Rules[0].Body.Condition)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 66, stats.KeptPercent)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	util := rule("util", ast.Boolean{Value: true})
	user := rule("user", ref("util"))
	rs := &ast.RuleSet{Rules: []*ast.Rule{util, user}}

	corpus, _ := Merge([]*ast.RuleSet{rs}, Options{})

	assert.Nil(t, util.Referrers)
	assert.Equal(t, []string{"user"}, corpus.Rule("util").Referrers)
	assert.NotSame(t, util, corpus.Rule("util"))
	assert.Equal(t, []*ast.Rule{util, user}, rs.Rules)
}

func TestMergeOrderingMonotonic(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("leaf1", ast.And{Left: ref("hub"), Right: ref("mid")}),
		rule("leaf2", ast.And{Left: ref("hub"), Right: ref("mid")}),
		rule("leaf3", ref("hub")),
		rule("mid", ref("hub")),
		rule("hub", ast.Boolean{Value: true}),
		rule("lonely", ref("missing")),
	}}

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{})

	for i := 1; i < len(corpus.Rules); i++ {
		assert.GreaterOrEqual(t, len(corpus.Rules[i-1].Referrers), len(corpus.Rules[i].Referrers),
			"%s before %s", corpus.Rules[i-1].Name, corpus.Rules[i].Name)
	}
	assert.Equal(t, []string{"hub", "mid", "leaf1", "leaf2", "leaf3", "lonely"}, names(corpus.Rules))
	assert.Equal(t, 1, stats.Dangling)
}

func TestMergeTopological(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("a", ast.Boolean{Value: true}),
		rule("b", ref("a")),
		rule("c", ref("b")),
		rule("d", ref("b")),
		rule("e", ref("b")),
	}}

	heuristic, _ := Merge([]*ast.RuleSet{rs}, Options{Order: ByReferrers})
	assert.Equal(t, []string{"b", "a", "c", "d", "e"}, names(heuristic.Rules))

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{Order: Topological})
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names(corpus.Rules))
	assert.Empty(t, stats.Cycles)
}

func TestMergeTopologicalCycle(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("r", ref("p")),
		rule("q", ref("p")),
		rule("p", ref("q")),
		rule("solo", ast.Boolean{Value: true}),
	}}

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{Order: Topological})

	assert.Equal(t, []string{"solo", "p", "q", "r"}, names(corpus.Rules))
	assert.Equal(t, [][]string{{"p", "q"}}, stats.Cycles)
}

func TestMergeTopologicalRuleUsingCycle(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("a", ref("p")),
		rule("p", ref("q")),
		rule("q", ref("p")),
	}}

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{Order: Topological})

	assert.Equal(t, []string{"p", "q", "a"}, names(corpus.Rules))
	assert.Equal(t, [][]string{{"p", "q"}}, stats.Cycles)
}

func TestMergeTopologicalCycleUsingCycle(t *testing.T) {
	rs := &ast.RuleSet{Rules: []*ast.Rule{
		rule("a1", ast.And{Left: ref("a2"), Right: ref("p")}),
		rule("a2", ref("a1")),
		rule("p", ref("q")),
		rule("q", ref("p")),
	}}

	corpus, stats := Merge([]*ast.RuleSet{rs}, Options{Order: Topological})

	assert.Equal(t, []string{"p", "q", "a1", "a2"}, names(corpus.Rules))
	assert.Equal(t, [][]string{{"a1", "a2"}, {"p", "q"}}, stats.Cycles)
}

func TestMergeEmpty(t *testing.T) {
	corpus, stats := Merge(nil, Options{})
	assert.Empty(t, corpus.Rules)
	assert.Empty(t, corpus.Imports)
	assert.Zero(t, stats.KeptPercent)
}

func TestParseOrder(t *testing.T) {
	for _, o := range []Order{ByReferrers, Topological} {
		got, err := ParseOrder(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	_, err := ParseOrder("random")
	assert.Error(t, err)
}

func TestCorpusWriteTo(t *testing.T) {
	corpus := &Corpus{
		Imports: []string{`"math"`, `"pe"`},
		Rules: []*ast.Rule{
			rule("a", ast.Boolean{Value: true}),
			{Private: true, Name: "b", Body: ast.RuleBody{Condition: ref("a")}},
		},
	}

	var buf bytes.Buffer
	n, err := corpus.WriteTo(&buf)
	require.NoError(t, err)

	want := "import \"math\"\nimport \"pe\"\n\n" +
		"rule a {\ncondition:\n\ttrue\n}\n\n" +
		"private rule b {\ncondition:\n\ta\n}\n\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, int64(len(want)), n)

	reparsed, err := parser.New().Parse(buf.String())
	require.NoError(t, err)
	assert.Len(t, reparsed.Rules, 2)
}

func TestCorpusWriteToRejectsResidual(t *testing.T) {
	corpus := &Corpus{Rules: []*ast.Rule{
		rule("ok", ast.Boolean{Value: true}),
		rule("bad", ast.And{Left: ref("ok"), Right: ast.None{Text: "???"}}),
	}}

	var buf bytes.Buffer
	_, err := corpus.WriteTo(&buf)
	assert.True(t, errors.Is(err, ErrResidual))
	assert.Zero(t, buf.Len())
}

func TestStatsMarshalZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	stats := Stats{Files: 1, Total: 4, Kept: 3, KeptPercent: 75, Cycles: [][]string{{"p", "q"}}}

	logger.Info().EmbedObject(stats).Msg("merged")

	out := buf.String()
	assert.Contains(t, out, `"kept":3`)
	assert.Contains(t, out, `"kept_percent":75`)
	assert.Contains(t, out, `"cycles":["p, q"]`)
}
