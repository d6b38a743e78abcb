package ast

// Expr represents a condition expression node.
//
// The set of implementations is closed: every node kind is declared in this
// file. Composite nodes own their children, so a condition is always a tree.
type Expr interface {
	exprNode()
	String() string
}

// And represents "a and b".
type And struct {
	Left  Expr
	Right Expr
}

func (And) exprNode() {}

// Or represents "a or b".
type Or struct {
	Left  Expr
	Right Expr
}

func (Or) exprNode() {}

// At represents a positional match like "$foo at 0".
type At struct {
	Left  Expr
	Right Expr
}

func (At) exprNode() {}

// Of represents a quantifier over a set like "any of them".
type Of struct {
	Left  Expr
	Right Expr
}

func (Of) exprNode() {}

// In represents a containment test like "$foo in (0..100)".
type In struct {
	Left  Expr
	Right Expr
}

func (In) exprNode() {}

// Range represents an inclusive range "(low .. high)".
type Range struct {
	Low  Expr
	High Expr
}

func (Range) exprNode() {}

// Cmp represents a relational or string-match comparison.
type Cmp struct {
	Op    string // ==, !=, >, <, >=, <=, contains, icontains, matches
	Left  Expr
	Right Expr
}

func (Cmp) exprNode() {}

// Arithm represents an arithmetic or bitwise operation.
type Arithm struct {
	Op    string // + - * / & | % >> <<
	Left  Expr
	Right Expr
}

func (Arithm) exprNode() {}

// Set represents a parenthesized comma list like "($a, $b*)".
type Set struct {
	Items []Expr
}

func (Set) exprNode() {}

// Not represents a negation.
type Not struct {
	Operand Expr
}

func (Not) exprNode() {}

// ImportRef represents a module attribute access like "pe.sections[0].name".
// Call arguments and index expressions are folded into Path.
type ImportRef struct {
	Path string
}

func (ImportRef) exprNode() {}

// StringRef represents a string variable reference like $foo.
type StringRef struct {
	Name string
}

func (StringRef) exprNode() {}

// StringRefMask represents a wildcard string reference like $foo*.
type StringRefMask struct {
	Name string // includes the trailing *
}

func (StringRefMask) exprNode() {}

// StringCount represents "#foo", "@foo" or "@foo[expr]".
type StringCount struct {
	Text string
}

func (StringCount) exprNode() {}

// RuleRef references another rule by name. The name is not resolved.
type RuleRef struct {
	Name string
}

func (RuleRef) exprNode() {}

// BytesWithOffset represents a memory accessor like uint32be(0).
type BytesWithOffset struct {
	Accessor string
	Offset   Expr
}

func (BytesWithOffset) exprNode() {}

// Reserved represents one of all, any, them, filesize, filepath, entrypoint.
type Reserved struct {
	Keyword string
}

func (Reserved) exprNode() {}

// ConstString is a quoted string literal, modifiers included.
type ConstString struct {
	Text string
}

func (ConstString) exprNode() {}

// Regex is a regex literal with its flags and modifiers.
type Regex struct {
	Text string
}

func (Regex) exprNode() {}

// Number is an integer literal (decimal or hex).
type Number struct {
	Value int64
}

func (Number) exprNode() {}

// Size is a size literal like 300KB, stored in bytes.
type Size struct {
	Value uint64
}

func (Size) exprNode() {}

// Boolean is a true/false literal.
type Boolean struct {
	Value bool
}

func (Boolean) exprNode() {}

// None marks text that could not be parsed. It never comes out of the parser
// and must not be rendered into a corpus.
type None struct {
	Text string
}

func (None) exprNode() {}

// ForIn represents "for <quantifier> <var> in <iterable> : (<body>)".
type ForIn struct {
	Quantifier Expr
	Var        string
	Iterable   Expr
	Body       Expr
}

func (ForIn) exprNode() {}

// ForOf represents "for <quantifier> of <set> : (<body>)".
type ForOf struct {
	Quantifier Expr
	Set        Expr
	Body       Expr
}

func (ForOf) exprNode() {}
