package parser

// Grammar structs for participle parser.
// These define the YARA grammar using struct tags.

type file struct {
	Items []*itemGrammar `parser:"@@+"`
}

type itemGrammar struct {
	Import  *string      `parser:"  'import' @String"`
	Include *string      `parser:"| 'include' @String"`
	Rule    *ruleGrammar `parser:"| @@"`
}

type ruleGrammar struct {
	Private   bool            `parser:"@'private'?"`
	Global    bool            `parser:"@'global'?"`
	Name      string          `parser:"'rule' @Ident"`
	Tags      []string        `parser:"( ':' @Ident+ )?"`
	Meta      *metaSection    `parser:"'{' @@?"`
	Strings   *stringsSection `parser:"@@?"`
	Condition *boolExpr       `parser:"'condition' ':' @@ '}'"`
}

type metaSection struct {
	Entries []*metaEntryGrammar `parser:"'meta' ':' @@+"`
}

type metaEntryGrammar struct {
	Key      string     `parser:"@Ident '='"`
	Negative bool       `parser:"( @'-'?"`
	Number   *string    `parser:"  @(Hex | Int)"`
	Bool     *string    `parser:"| @Bool"`
	Text     *textValue `parser:"| @@ )"`
}

type stringsSection struct {
	Defs []*stringDefGrammar `parser:"'strings' ':' @@+"`
}

type stringDefGrammar struct {
	Name  string      `parser:"@StringID '='"`
	Hex   *string     `parser:"( @HexString"`
	Text  *textValue  `parser:"| @@"`
	Regex *regexValue `parser:"| @@ )"`
}

type textValue struct {
	Text      string             `parser:"@String"`
	Modifiers []*modifierGrammar `parser:"@@*"`
}

type regexValue struct {
	Pattern   string             `parser:"@Regex"`
	Modifiers []*modifierGrammar `parser:"@@*"`
}

type modifierGrammar struct {
	Name string  `parser:"@('nocase' | 'wide' | 'ascii' | 'fullword' | 'private' | 'base64wide' | 'base64' | 'xor')"`
	Low  *string `parser:"( '(' @(Hex | Int)"`
	High *string `parser:"  '-' @(Hex | Int) ')' )?"`
}

type conditionRoot struct {
	Expr *boolExpr `parser:"@@"`
}

// Condition expression grammar, loosest binding first:
// and/or < relational < arithmetic < atom. Each layer folds left.

type boolExpr struct {
	Left  *relExpr    `parser:"@@"`
	Right []*boolTail `parser:"@@*"`
}

type boolTail struct {
	Op    string   `parser:"@('and' | 'or')"`
	Right *relExpr `parser:"@@"`
}

// relExpr applies at most one relational operator.
type relExpr struct {
	Left  *arithExpr `parser:"@@"`
	Op    string     `parser:"( @('of' | 'in' | 'at' | '==' | '!=' | 'contains' | 'icontains' | 'matches' | '>=' | '<=' | '>' | '<')"`
	Right *arithExpr `parser:"  @@ )?"`
}

type arithExpr struct {
	Left  *atom        `parser:"@@"`
	Right []*arithTail `parser:"@@*"`
}

type arithTail struct {
	Op    string `parser:"@('+' | '-' | '*' | '/' | '&' | '|' | '%' | '>>' | '<<')"`
	Right *atom  `parser:"@@"`
}

type atom struct {
	Reserved *string        `parser:"  @('all' | 'filesize' | 'filepath' | 'entrypoint' | 'any' | 'them')"`
	ForOf    *forOfExpr     `parser:"| @@"`
	ForIn    *forInExpr     `parser:"| @@"`
	Not      *atom          `parser:"| 'not' @@"`
	Import   *importRef     `parser:"| @@"`
	Bytes    *bytesAccessor `parser:"| @@"`
	Mask     *string        `parser:"| @StringMask"`
	Regex    *regexValue    `parser:"| @@"`
	Text     *textValue     `parser:"| @@"`
	Offset   *offsetRef     `parser:"| @@"`
	Count    *string        `parser:"| @Count"`
	StringID *string        `parser:"| @StringID"`
	Bool     *string        `parser:"| @Bool"`
	RuleRef  *string        `parser:"| @Ident"`
	Size     *string        `parser:"| @Size"`
	Number   *string        `parser:"| @(Hex | Int)"`
	Group    *groupExpr     `parser:"| @@"`
}

type forOfExpr struct {
	Quantifier *arithExpr `parser:"'for' @@"`
	Set        *boolExpr  `parser:"'of' @@"`
	Body       *boolExpr  `parser:"':' '(' @@ ')'"`
}

type forInExpr struct {
	Quantifier *boolExpr `parser:"'for' @@"`
	Var        string    `parser:"@Ident 'in'"`
	Iterable   *boolExpr `parser:"@@"`
	Body       *boolExpr `parser:"':' '(' @@ ')'"`
}

type importRef struct {
	Head     string           `parser:"@Ident"`
	Segments []*importSegment `parser:"@@+"`
}

type importSegment struct {
	Name  string    `parser:"'.' @(Ident | Keyword)"`
	Call  *callArgs `parser:"@@?"`
	Index *boolExpr `parser:"( '[' @@ ']' )?"`
}

type callArgs struct {
	Open bool        `parser:"@'('"`
	Args []*boolExpr `parser:"( @@ ( ',' @@ )* )? ')'"`
}

type bytesAccessor struct {
	Accessor string    `parser:"@('int8be' | 'int8' | 'int16be' | 'int16' | 'int32be' | 'int32' | 'uint8be' | 'uint8' | 'uint16be' | 'uint16' | 'uint32be' | 'uint32')"`
	Offset   *boolExpr `parser:"'(' @@ ')'"`
}

type offsetRef struct {
	Name  string    `parser:"@Offset"`
	Index *boolExpr `parser:"( '[' @@ ']' )?"`
}

// groupExpr covers a range "(a .. b)", a set "(a, b, ...)" and a plain
// parenthesized expression "(a)".
type groupExpr struct {
	First *boolExpr   `parser:"'(' @@"`
	High  *boolExpr   `parser:"( '..' @@"`
	Rest  []*boolExpr `parser:"| ( ',' @@ )+ )? ')'"`
}
