// Package parser provides a YARA rule parser using participle.
package parser

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/sansecio/yardedupe/ast"
)

// grammarLookahead bounds how far an alternative may advance before a
// failure stops the parse instead of trying the next alternative.
const grammarLookahead = 128

// Parser parses YARA rules. It holds no per-parse state and is safe for
// concurrent use.
type Parser struct {
	file      *participle.Parser[file]
	condition *participle.Parser[conditionRoot]
}

// New creates a new YARA parser.
func New() *Parser {
	return &Parser{
		file: participle.MustBuild[file](
			participle.Lexer(ruleLexer),
			participle.UseLookahead(grammarLookahead),
		),
		condition: participle.MustBuild[conditionRoot](
			participle.Lexer(conditionLexer),
			participle.UseLookahead(grammarLookahead),
		),
	}
}

// Parse parses YARA rules from a string.
func (p *Parser) Parse(input string) (*ast.RuleSet, error) {
	return p.ParseNamed("", input)
}

// ParseNamed parses YARA rules from a string and records path as the
// provenance of the returned rule set. The whole input must parse.
func (p *Parser) ParseNamed(path, input string) (*ast.RuleSet, error) {
	f, err := p.file.ParseString(path, input)
	if err != nil {
		return nil, err
	}
	rs, err := convertFile(f)
	if err != nil {
		return nil, err
	}
	rs.Path = path
	return rs, nil
}

// ParseFile parses YARA rules from a file. The rule set's Path is the
// canonical absolute path of filename.
func (p *Parser) ParseFile(filename string) (*ast.RuleSet, error) {
	path, err := canonicalPath(filename)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return p.ParseNamed(path, string(content))
}

// ParseCondition parses a single condition expression.
func (p *Parser) ParseCondition(input string) (ast.Expr, error) {
	c, err := p.condition.ParseString("", input)
	if err != nil {
		return nil, err
	}
	return convertBool(c.Expr)
}

func canonicalPath(filename string) (string, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func convertFile(f *file) (*ast.RuleSet, error) {
	rs := &ast.RuleSet{}
	index := make(map[string]int)
	for _, item := range f.Items {
		switch {
		case item.Import != nil:
			rs.Imports = append(rs.Imports, ast.Import{Value: *item.Import})
		case item.Include != nil:
			rs.Includes = append(rs.Includes, ast.Include{Value: unquote(*item.Include)})
		case item.Rule != nil:
			rule, err := convertRule(item.Rule)
			if err != nil {
				return nil, err
			}
			if i, ok := index[rule.Name]; ok {
				rs.Rules[i] = rule
				rs.Replaced++
				continue
			}
			index[rule.Name] = len(rs.Rules)
			rs.Rules = append(rs.Rules, rule)
		}
	}
	return rs, nil
}

func convertRule(r *ruleGrammar) (*ast.Rule, error) {
	rule := &ast.Rule{
		Private: r.Private,
		Global:  r.Global,
		Name:    r.Name,
		Tags:    r.Tags,
	}

	if r.Meta != nil {
		for _, m := range r.Meta.Entries {
			value, err := convertMetaValue(m)
			if err != nil {
				return nil, fmt.Errorf("rule %q: meta %q: %w", r.Name, m.Key, err)
			}
			rule.Body.Meta.Set(m.Key, value)
		}
	}

	if r.Strings != nil {
		for _, s := range r.Strings.Defs {
			value, err := convertStringValue(s)
			if err != nil {
				return nil, fmt.Errorf("rule %q: string %s: %w", r.Name, s.Name, err)
			}
			rule.Body.Strings = append(rule.Body.Strings, ast.StringDef{Name: s.Name, Value: value})
		}
	}

	cond, err := convertBool(r.Condition)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	rule.Body.Condition = cond

	return rule, nil
}

// convertMetaValue renders a meta value: numbers as hex, booleans in lower
// case and strings with their quotes.
func convertMetaValue(m *metaEntryGrammar) (string, error) {
	switch {
	case m.Number != nil:
		v, err := parseInt(*m.Number)
		if err != nil {
			return "", err
		}
		if m.Negative {
			return fmt.Sprintf("-0x%02x", v), nil
		}
		return fmt.Sprintf("0x%02x", v), nil
	case m.Bool != nil:
		return strings.ToLower(*m.Bool), nil
	case m.Text != nil:
		return renderText(m.Text)
	}
	return "", fmt.Errorf("empty meta value")
}

func convertStringValue(s *stringDefGrammar) (string, error) {
	switch {
	case s.Hex != nil:
		return *s.Hex, nil
	case s.Text != nil:
		return renderText(s.Text)
	case s.Regex != nil:
		return renderRegex(s.Regex)
	}
	return "", fmt.Errorf("empty string value")
}

func renderText(t *textValue) (string, error) {
	return withModifiers(t.Text, t.Modifiers)
}

func renderRegex(r *regexValue) (string, error) {
	return withModifiers(r.Pattern, r.Modifiers)
}

// withModifiers appends the rendered modifiers to a literal, separated by
// single spaces.
func withModifiers(literal string, mods []*modifierGrammar) (string, error) {
	if len(mods) == 0 {
		return literal, nil
	}
	parts := make([]string, 0, len(mods)+1)
	parts = append(parts, literal)
	for _, m := range mods {
		s, err := renderModifier(m)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), nil
}

func renderModifier(m *modifierGrammar) (string, error) {
	if m.Low == nil {
		return m.Name, nil
	}
	if m.Name != "xor" {
		return "", fmt.Errorf("modifier %s takes no range", m.Name)
	}
	if m.High == nil {
		return "", fmt.Errorf("xor range without upper bound")
	}
	low, err := parseInt(*m.Low)
	if err != nil {
		return "", err
	}
	high, err := parseInt(*m.High)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("xor(%d-%d)", low, high), nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func parseInt(s string) (int64, error) {
	var (
		v   int64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("parsing number %q: %w", s, err)
	}
	return v, nil
}

func parseSize(s string) (uint64, error) {
	unit := uint64(1024)
	if strings.HasSuffix(s, "MB") {
		unit = 1024 * 1024
	}
	n, err := strconv.ParseUint(s[:len(s)-2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing size %q: %w", s, err)
	}
	if n > math.MaxUint64/unit {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n * unit, nil
}

// Condition conversion functions

func convertBool(e *boolExpr) (ast.Expr, error) {
	if e == nil {
		return nil, fmt.Errorf("empty condition")
	}
	left, err := convertRel(e.Left)
	if err != nil {
		return nil, err
	}
	for _, tail := range e.Right {
		right, err := convertRel(tail.Right)
		if err != nil {
			return nil, err
		}
		if tail.Op == "and" {
			left = ast.And{Left: left, Right: right}
		} else {
			left = ast.Or{Left: left, Right: right}
		}
	}
	return left, nil
}

func convertRel(e *relExpr) (ast.Expr, error) {
	left, err := convertArith(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Right == nil {
		return left, nil
	}
	right, err := convertArith(e.Right)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "at":
		return ast.At{Left: left, Right: right}, nil
	case "of":
		return ast.Of{Left: left, Right: right}, nil
	case "in":
		return ast.In{Left: left, Right: right}, nil
	}
	return ast.Cmp{Op: e.Op, Left: left, Right: right}, nil
}

func convertArith(e *arithExpr) (ast.Expr, error) {
	left, err := convertAtom(e.Left)
	if err != nil {
		return nil, err
	}
	for _, tail := range e.Right {
		right, err := convertAtom(tail.Right)
		if err != nil {
			return nil, err
		}
		left = ast.Arithm{Op: tail.Op, Left: left, Right: right}
	}
	return left, nil
}

func convertAtom(a *atom) (ast.Expr, error) {
	switch {
	case a.Reserved != nil:
		return ast.Reserved{Keyword: *a.Reserved}, nil

	case a.ForOf != nil:
		return convertForOf(a.ForOf)

	case a.ForIn != nil:
		return convertForIn(a.ForIn)

	case a.Not != nil:
		operand, err := convertAtom(a.Not)
		if err != nil {
			return nil, err
		}
		return ast.Not{Operand: operand}, nil

	case a.Import != nil:
		path, err := renderImportRef(a.Import)
		if err != nil {
			return nil, err
		}
		return ast.ImportRef{Path: path}, nil

	case a.Bytes != nil:
		offset, err := convertBool(a.Bytes.Offset)
		if err != nil {
			return nil, err
		}
		return ast.BytesWithOffset{Accessor: a.Bytes.Accessor, Offset: offset}, nil

	case a.Mask != nil:
		return ast.StringRefMask{Name: *a.Mask}, nil

	case a.Regex != nil:
		text, err := renderRegex(a.Regex)
		if err != nil {
			return nil, err
		}
		return ast.Regex{Text: text}, nil

	case a.Text != nil:
		text, err := renderText(a.Text)
		if err != nil {
			return nil, err
		}
		return ast.ConstString{Text: text}, nil

	case a.Offset != nil:
		text := a.Offset.Name
		if a.Offset.Index != nil {
			index, err := convertBool(a.Offset.Index)
			if err != nil {
				return nil, err
			}
			text += "[" + index.String() + "]"
		}
		return ast.StringCount{Text: text}, nil

	case a.Count != nil:
		return ast.StringCount{Text: *a.Count}, nil

	case a.StringID != nil:
		return ast.StringRef{Name: *a.StringID}, nil

	case a.Bool != nil:
		return ast.Boolean{Value: strings.EqualFold(*a.Bool, "true")}, nil

	case a.RuleRef != nil:
		return ast.RuleRef{Name: *a.RuleRef}, nil

	case a.Size != nil:
		v, err := parseSize(*a.Size)
		if err != nil {
			return nil, err
		}
		return ast.Size{Value: v}, nil

	case a.Number != nil:
		v, err := parseInt(*a.Number)
		if err != nil {
			return nil, err
		}
		return ast.Number{Value: v}, nil

	case a.Group != nil:
		return convertGroup(a.Group)
	}

	return nil, fmt.Errorf("unknown atom type")
}

func convertForOf(f *forOfExpr) (ast.Expr, error) {
	quantifier, err := convertArith(f.Quantifier)
	if err != nil {
		return nil, err
	}
	set, err := convertBool(f.Set)
	if err != nil {
		return nil, err
	}
	body, err := convertBool(f.Body)
	if err != nil {
		return nil, err
	}
	return ast.ForOf{Quantifier: quantifier, Set: set, Body: body}, nil
}

func convertForIn(f *forInExpr) (ast.Expr, error) {
	quantifier, err := convertBool(f.Quantifier)
	if err != nil {
		return nil, err
	}
	iterable, err := convertBool(f.Iterable)
	if err != nil {
		return nil, err
	}
	body, err := convertBool(f.Body)
	if err != nil {
		return nil, err
	}
	return ast.ForIn{Quantifier: quantifier, Var: f.Var, Iterable: iterable, Body: body}, nil
}

func convertGroup(g *groupExpr) (ast.Expr, error) {
	first, err := convertBool(g.First)
	if err != nil {
		return nil, err
	}
	switch {
	case g.High != nil:
		high, err := convertBool(g.High)
		if err != nil {
			return nil, err
		}
		return ast.Range{Low: first, High: high}, nil
	case len(g.Rest) > 0:
		items := make([]ast.Expr, 0, len(g.Rest)+1)
		items = append(items, first)
		for _, r := range g.Rest {
			item, err := convertBool(r)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return ast.Set{Items: items}, nil
	}
	return first, nil
}

// renderImportRef folds a dotted module reference, with its call arguments
// and indexes, back into text.
func renderImportRef(r *importRef) (string, error) {
	var sb strings.Builder
	sb.WriteString(r.Head)
	for _, seg := range r.Segments {
		sb.WriteString(".")
		sb.WriteString(seg.Name)
		if seg.Call != nil {
			args := make([]string, len(seg.Call.Args))
			for i, arg := range seg.Call.Args {
				e, err := convertBool(arg)
				if err != nil {
					return "", err
				}
				args[i] = e.String()
			}
			sb.WriteString("(" + strings.Join(args, ", ") + ")")
		}
		if seg.Index != nil {
			e, err := convertBool(seg.Index)
			if err != nil {
				return "", err
			}
			sb.WriteString("[" + e.String() + "]")
		}
	}
	return sb.String(), nil
}
