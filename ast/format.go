package ast

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	kilobyte = 1024
	megabyte = 1024 * 1024
)

// operand renders e as the child of a binary node. Binary children are
// parenthesized so that the rendered text parses back into the same tree.
func operand(e Expr) string {
	switch e.(type) {
	case nil:
		return ""
	case And, Or, At, Of, In, Cmp, Arithm:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func infix(left Expr, op string, right Expr) string {
	return operand(left) + " " + op + " " + operand(right)
}

func (e And) String() string    { return infix(e.Left, "and", e.Right) }
func (e Or) String() string     { return infix(e.Left, "or", e.Right) }
func (e At) String() string     { return infix(e.Left, "at", e.Right) }
func (e Of) String() string     { return infix(e.Left, "of", e.Right) }
func (e In) String() string     { return infix(e.Left, "in", e.Right) }
func (e Cmp) String() string    { return infix(e.Left, e.Op, e.Right) }
func (e Arithm) String() string { return infix(e.Left, e.Op, e.Right) }

func (e Range) String() string {
	return "(" + e.Low.String() + " .. " + e.High.String() + ")"
}

func (e Set) String() string {
	items := make([]string, len(e.Items))
	for i, item := range e.Items {
		if mask, ok := item.(StringRefMask); ok {
			items[i] = mask.Name
			continue
		}
		items[i] = item.String()
	}
	return "(" + strings.Join(items, ", ") + ")"
}

func (e Not) String() string { return "not " + operand(e.Operand) }

func (e ImportRef) String() string     { return e.Path }
func (e StringRef) String() string     { return e.Name }
func (e StringRefMask) String() string { return "(" + e.Name + ")" }
func (e StringCount) String() string   { return e.Text }
func (e RuleRef) String() string       { return e.Name }
func (e Reserved) String() string      { return e.Keyword }
func (e ConstString) String() string   { return e.Text }
func (e Regex) String() string         { return e.Text }
func (e Number) String() string        { return strconv.FormatInt(e.Value, 10) }
func (e Boolean) String() string       { return strconv.FormatBool(e.Value) }
func (e None) String() string          { return "none (" + e.Text + ")" }

func (e BytesWithOffset) String() string {
	return e.Accessor + "(" + e.Offset.String() + ")"
}

// String renders the size in the largest unit that divides it evenly.
func (e Size) String() string {
	if e.Value != 0 && e.Value%megabyte == 0 {
		return strconv.FormatUint(e.Value/megabyte, 10) + "MB"
	}
	return strconv.FormatUint(e.Value/kilobyte, 10) + "KB"
}

func (e ForIn) String() string {
	return fmt.Sprintf("for %s %s in %s : (%s)", operand(e.Quantifier), e.Var, operand(e.Iterable), e.Body)
}

func (e ForOf) String() string {
	return fmt.Sprintf("for %s of %s : (%s)", operand(e.Quantifier), operand(e.Set), e.Body)
}

// String renders the body sections, one entry per line.
func (b RuleBody) String() string {
	var sb strings.Builder
	if len(b.Meta) > 0 {
		sb.WriteString("meta:\n")
		for _, m := range b.Meta {
			fmt.Fprintf(&sb, "\t%s = %s\n", m.Key, m.Value)
		}
	}
	if len(b.Strings) > 0 {
		sb.WriteString("strings:\n")
		for _, s := range b.Strings {
			fmt.Fprintf(&sb, "\t%s = %s\n", s.Name, s.Value)
		}
	}
	sb.WriteString("condition:\n\t")
	if b.Condition != nil {
		sb.WriteString(b.Condition.String())
	}
	sb.WriteString("\n")
	return sb.String()
}

// String renders the rule as YARA source, terminated by a newline.
func (r *Rule) String() string {
	var sb strings.Builder
	if r.Private {
		sb.WriteString("private ")
	}
	if r.Global {
		sb.WriteString("global ")
	}
	sb.WriteString("rule ")
	sb.WriteString(r.Name)
	if len(r.Tags) > 0 {
		sb.WriteString(":")
		sb.WriteString(strings.Join(r.Tags, " "))
	}
	sb.WriteString(" {\n")
	sb.WriteString(r.Body.String())
	sb.WriteString("}\n")
	return sb.String()
}

// String renders the whole file: imports, includes, then rules.
func (rs *RuleSet) String() string {
	var sb strings.Builder
	for _, imp := range rs.Imports {
		fmt.Fprintf(&sb, "import %s\n", imp.Value)
	}
	for _, inc := range rs.Includes {
		fmt.Fprintf(&sb, "include \"%s\"\n", inc.Value)
	}
	if len(rs.Imports)+len(rs.Includes) > 0 {
		sb.WriteString("\n")
	}
	for _, r := range rs.Rules {
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
