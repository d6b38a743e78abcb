package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token types produced by yaraLexer.
const (
	identToken lexer.TokenType = -(iota + 2)
	keywordToken
	boolToken
	intToken
	hexToken
	sizeToken
	stringToken
	regexToken
	hexStringToken
	stringIDToken
	stringMaskToken
	countToken
	offsetToken
	punctToken
)

var symbols = map[string]lexer.TokenType{
	"EOF":        lexer.EOF,
	"Ident":      identToken,
	"Keyword":    keywordToken,
	"Bool":       boolToken,
	"Int":        intToken,
	"Hex":        hexToken,
	"Size":       sizeToken,
	"String":     stringToken,
	"Regex":      regexToken,
	"HexString":  hexStringToken,
	"StringID":   stringIDToken,
	"StringMask": stringMaskToken,
	"Count":      countToken,
	"Offset":     offsetToken,
	"Punct":      punctToken,
}

// conditionKeywords are lexed as Keyword tokens inside a condition so they can
// never be mistaken for rule references.
var conditionKeywords = map[string]bool{
	"and": true, "or": true, "not": true,
	"at": true, "of": true, "in": true, "for": true,
	"all": true, "any": true, "them": true,
	"filesize": true, "filepath": true, "entrypoint": true,
	"contains": true, "icontains": true, "matches": true,
}

// Keywords after which a value (not an operator) follows.
var operandKeywords = map[string]bool{
	"them": true, "filesize": true, "filepath": true, "entrypoint": true,
	"all": true, "any": true,
}

var multiCharPuncts = []string{"..", "==", "!=", ">=", "<=", ">>", "<<"}

const singleCharPuncts = "()[]{},:=.+-*/&|%<>~\\"

// Lexer modes
const (
	modeRoot = iota
	modeRuleBody
	modeCondition
)

// definition implements lexer.Definition for YARA source.
type definition struct {
	startMode int
}

var (
	ruleLexer      = &definition{startMode: modeRoot}
	conditionLexer = &definition{startMode: modeCondition}
)

func (d *definition) Symbols() map[string]lexer.TokenType {
	return symbols
}

func (d *definition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return d.LexString(filename, string(data))
}

func (d *definition) LexBytes(filename string, input []byte) (lexer.Lexer, error) {
	return d.LexString(filename, string(input))
}

func (d *definition) LexString(filename string, input string) (lexer.Lexer, error) {
	return newLexer(filename, input, d.startMode), nil
}

type yaraLexer struct {
	filename  string
	input     string
	pos       int
	line      int
	lineStart int
	mode      int
	prev      lexer.Token
}

func newLexer(filename, input string, mode int) *yaraLexer {
	return &yaraLexer{
		filename: filename,
		input:    input,
		line:     1,
		mode:     mode,
	}
}

func (l *yaraLexer) Next() (lexer.Token, error) {
	if err := l.skipSpace(); err != nil {
		return lexer.Token{}, err
	}
	pos := l.position()
	if l.pos >= len(l.input) {
		return lexer.Token{Type: lexer.EOF, Pos: pos}, nil
	}

	typ, value, err := l.lexToken()
	if err != nil {
		return lexer.Token{}, err
	}
	tok := lexer.Token{Type: typ, Value: value, Pos: pos}
	l.transition(tok)
	l.prev = tok
	return tok, nil
}

func (l *yaraLexer) position() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.pos,
		Line:     l.line,
		Column:   l.pos - l.lineStart + 1,
	}
}

func (l *yaraLexer) errorf(format string, args ...any) error {
	pos := l.position()
	return fmt.Errorf("%s:%d:%d: %s", pos.Filename, pos.Line, pos.Column, fmt.Sprintf(format, args...))
}

func (l *yaraLexer) advance(n int) string {
	start := l.pos
	end := min(l.pos+n, len(l.input))
	for i := start; i < end; i++ {
		if l.input[i] == '\n' {
			l.line++
			l.lineStart = i + 1
		}
	}
	l.pos = end
	return l.input[start:end]
}

// transition updates the lexer mode after emitting tok.
func (l *yaraLexer) transition(tok lexer.Token) {
	if tok.Type != punctToken {
		return
	}
	switch tok.Value {
	case "{":
		if l.mode == modeRoot {
			l.mode = modeRuleBody
		}
	case "}":
		l.mode = modeRoot
	case ":":
		if l.mode == modeRuleBody && l.prev.Type == identToken && l.prev.Value == "condition" {
			l.mode = modeCondition
		}
	}
}

// skipSpace consumes any mixture of whitespace, line and block comments.
func (l *yaraLexer) skipSpace() error {
	for l.pos < len(l.input) {
		switch {
		case isSpace(l.input[l.pos]):
			l.advance(1)
		case strings.HasPrefix(l.input[l.pos:], "//"):
			end := strings.IndexByte(l.input[l.pos:], '\n')
			if end < 0 {
				end = len(l.input) - l.pos
			}
			l.advance(end)
		case strings.HasPrefix(l.input[l.pos:], "/*"):
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf("unterminated block comment")
			}
			l.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (l *yaraLexer) peekAt(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *yaraLexer) lexToken() (lexer.TokenType, string, error) {
	ch := l.peekAt(0)

	switch {
	case ch == '"':
		s, err := l.readQuoted('"')
		return stringToken, s, err
	case ch == '/':
		if l.regexAllowed() {
			s, err := l.readRegex()
			return regexToken, s, err
		}
	case ch == '{':
		if l.mode == modeRuleBody && l.prevIs("=") {
			s, err := l.readHexString()
			return hexStringToken, s, err
		}
	case ch == '$':
		name := l.readSigil()
		if l.peekAt(0) == '*' {
			return stringMaskToken, name + l.advance(1), nil
		}
		return stringIDToken, name, nil
	case ch == '#':
		return countToken, l.readSigil(), nil
	case ch == '@':
		return offsetToken, l.readSigil(), nil
	case isDigit(ch):
		return l.readNumber()
	case isAlpha(ch) || ch == '_':
		word := l.readIdent()
		return l.classifyWord(word), word, nil
	}

	for _, p := range multiCharPuncts {
		if strings.HasPrefix(l.input[l.pos:], p) {
			return punctToken, l.advance(len(p)), nil
		}
	}
	if strings.IndexByte(singleCharPuncts, ch) >= 0 {
		return punctToken, l.advance(1), nil
	}
	return 0, "", l.errorf("unexpected character %q", ch)
}

func (l *yaraLexer) prevIs(punct string) bool {
	return l.prev.Type == punctToken && l.prev.Value == punct
}

// regexAllowed reports whether a '/' starts a regex literal rather than a
// division, which depends on whether the previous token ends an operand.
func (l *yaraLexer) regexAllowed() bool {
	if l.mode != modeCondition {
		return true
	}
	switch l.prev.Type {
	case punctToken:
		return l.prev.Value != ")" && l.prev.Value != "]"
	case keywordToken:
		return !operandKeywords[l.prev.Value]
	case 0:
		return true
	}
	return false
}

func (l *yaraLexer) classifyWord(word string) lexer.TokenType {
	if strings.EqualFold(word, "true") || strings.EqualFold(word, "false") {
		return boolToken
	}
	if l.mode == modeCondition && conditionKeywords[word] {
		return keywordToken
	}
	return identToken
}

func (l *yaraLexer) readIdent() string {
	n := 0
	for l.pos+n < len(l.input) && (l.input[l.pos+n] == '_' || isAlnum(l.input[l.pos+n])) {
		n++
	}
	return l.advance(n)
}

// readSigil reads a $, # or @ prefixed identifier. The name may be empty.
func (l *yaraLexer) readSigil() string {
	n := 1
	for l.pos+n < len(l.input) && (l.input[l.pos+n] == '_' || isAlnum(l.input[l.pos+n])) {
		n++
	}
	return l.advance(n)
}

// readQuoted reads a delimited literal. A backslash escapes the following
// character; both are kept verbatim.
func (l *yaraLexer) readQuoted(delim byte) (string, error) {
	n := 1
	for l.pos+n < len(l.input) {
		switch l.input[l.pos+n] {
		case '\\':
			n += 2
			continue
		case delim:
			return l.advance(n + 1), nil
		}
		n++
	}
	return "", l.errorf("unterminated literal starting with %q", delim)
}

func (l *yaraLexer) readRegex() (string, error) {
	s, err := l.readQuoted('/')
	if err != nil {
		return "", err
	}
	n := 0
	for l.pos+n < len(l.input) && (l.input[l.pos+n] == 'i' || l.input[l.pos+n] == 's') {
		n++
	}
	return s + l.advance(n), nil
}

// readHexString reads an opaque hex pattern up to the first closing brace.
func (l *yaraLexer) readHexString() (string, error) {
	end := strings.IndexByte(l.input[l.pos:], '}')
	if end < 0 {
		return "", l.errorf("unterminated hex string")
	}
	return l.advance(end + 1), nil
}

// readNumber reads a hex number, a decimal number or a size literal.
func (l *yaraLexer) readNumber() (lexer.TokenType, string, error) {
	if l.peekAt(0) == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		n := 2
		for l.pos+n < len(l.input) && isHexDigit(l.input[l.pos+n]) {
			n++
		}
		if n == 2 {
			return 0, "", l.errorf("hex number without digits")
		}
		return hexToken, l.advance(n), nil
	}
	n := 0
	for l.pos+n < len(l.input) && isDigit(l.input[l.pos+n]) {
		n++
	}
	if rest := l.input[l.pos+n:]; strings.HasPrefix(rest, "KB") || strings.HasPrefix(rest, "MB") {
		return sizeToken, l.advance(n + 2), nil
	}
	return intToken, l.advance(n), nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
