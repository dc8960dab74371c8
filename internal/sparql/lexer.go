// Package sparql evaluates a read-only subset of SPARQL SELECT queries against
// an in-memory graph: PREFIX declarations, SELECT [DISTINCT], basic graph
// patterns with the ';' and ',' shorthands, ORDER BY, LIMIT and OFFSET.
package sparql

import (
	"fmt"
	"strings"
)

// SyntaxError reports a query that could not be parsed.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sparql: syntax error at offset %d: %s", e.Offset, e.Msg)
}

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokBlank
	tokVar
	tokString
	tokLangTag
	tokDatatypeMark
	tokNumber
	tokWord
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of query"
	}
	return fmt.Sprintf("%q", t.text)
}

type lexer struct {
	src string
	pos int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	var tokens []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func syntaxErrorf(pos int, format string, args ...any) error {
	return &SyntaxError{Offset: pos, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.pos++
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := lx.src[lx.pos]
	switch {
	case c == '<':
		end := strings.IndexByte(lx.src[lx.pos+1:], '>')
		if end < 0 {
			return token{}, syntaxErrorf(start, "unterminated IRI")
		}
		iri := lx.src[lx.pos+1 : lx.pos+1+end]
		if strings.ContainsAny(iri, " \t\n\"{}") {
			return token{}, syntaxErrorf(start, "invalid character in IRI")
		}
		lx.pos += end + 2
		return token{kind: tokIRI, text: iri, pos: start}, nil

	case c == '?' || c == '$':
		lx.pos++
		name := lx.scan(isNameChar)
		if name == "" {
			return token{}, syntaxErrorf(start, "empty variable name")
		}
		return token{kind: tokVar, text: name, pos: start}, nil

	case c == '"' || c == '\'':
		return lx.scanString(c)

	case c == '@':
		lx.pos++
		lang := lx.scan(func(b byte) bool { return isAlnum(b) || b == '-' })
		if lang == "" {
			return token{}, syntaxErrorf(start, "empty language tag")
		}
		return token{kind: tokLangTag, text: lang, pos: start}, nil

	case c == '^':
		if strings.HasPrefix(lx.src[lx.pos:], "^^") {
			lx.pos += 2
			return token{kind: tokDatatypeMark, text: "^^", pos: start}, nil
		}
		return token{}, syntaxErrorf(start, "unexpected '^'")

	case c == '_' && strings.HasPrefix(lx.src[lx.pos:], "_:"):
		lx.pos += 2
		label := lx.scan(isNameChar)
		if label == "" {
			return token{}, syntaxErrorf(start, "empty blank node label")
		}
		return token{kind: tokBlank, text: label, pos: start}, nil

	case isDigit(c) || ((c == '+' || c == '-') && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		return lx.scanNumber(), nil

	case strings.IndexByte("{}.;,*()", c) >= 0:
		lx.pos++
		return token{kind: tokPunct, text: string(c), pos: start}, nil

	case isAlpha(c) || c == ':':
		word := lx.scan(func(b byte) bool { return isNameChar(b) || b == ':' || b == '.' || b == '-' || b == '%' })
		// A trailing '.' terminates the triple, it is not part of the name.
		for strings.HasSuffix(word, ".") {
			word = word[:len(word)-1]
			lx.pos--
		}
		if strings.Contains(word, ":") {
			return token{kind: tokPName, text: word, pos: start}, nil
		}
		return token{kind: tokWord, text: word, pos: start}, nil
	}

	return token{}, syntaxErrorf(start, "unexpected character %q", c)
}

func (lx *lexer) scan(accept func(byte) bool) string {
	start := lx.pos
	for lx.pos < len(lx.src) && accept(lx.src[lx.pos]) {
		lx.pos++
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) scanNumber() token {
	start := lx.pos
	if c := lx.src[lx.pos]; c == '+' || c == '-' {
		lx.pos++
	}
	lx.scan(isDigit)
	if lx.pos+1 < len(lx.src) && lx.src[lx.pos] == '.' && isDigit(lx.src[lx.pos+1]) {
		lx.pos++
		lx.scan(isDigit)
	}
	return token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start}
}

func (lx *lexer) scanString(quote byte) (token, error) {
	start := lx.pos
	lx.pos++

	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case quote:
			lx.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case '\\':
			if lx.pos+1 >= len(lx.src) {
				return token{}, syntaxErrorf(lx.pos, "unterminated escape")
			}
			esc := lx.src[lx.pos+1]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\'', '\\':
				sb.WriteByte(esc)
			default:
				return token{}, syntaxErrorf(lx.pos, "invalid escape \\%c", esc)
			}
			lx.pos += 2
		case '\n':
			return token{}, syntaxErrorf(lx.pos, "newline in string")
		default:
			sb.WriteByte(c)
			lx.pos++
		}
	}
	return token{}, syntaxErrorf(start, "unterminated string")
}

func isDigit(b byte) bool    { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool    { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isAlnum(b byte) bool    { return isAlpha(b) || isDigit(b) }
func isNameChar(b byte) bool { return isAlnum(b) || b == '_' || b >= 0x80 }
