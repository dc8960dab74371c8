package sparql

import (
	"strconv"
	"strings"

	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/vocab"
)

// Node is a pattern position: either a variable or a concrete term.
type Node struct {
	Var  string
	Term graph.Term
}

// IsVar reports whether n is a variable.
func (n Node) IsVar() bool { return n.Var != "" }

// Pattern is one triple pattern.
type Pattern struct {
	Subject, Predicate, Object Node
}

// OrderKey sorts solutions by the value bound to Var.
type OrderKey struct {
	Var        string
	Descending bool
}

// Query is a parsed SELECT query.
type Query struct {
	Prefixes map[string]string
	Distinct bool
	// Vars is the projection; empty means SELECT *.
	Vars     []string
	Patterns []Pattern
	OrderBy  []OrderKey
	Limit    int // -1 when absent
	Offset   int
}

// Projection returns the projected variables. For SELECT * these are the
// named variables of the patterns in order of first appearance.
func (q *Query) Projection() []string {
	if len(q.Vars) > 0 {
		return q.Vars
	}
	seen := map[string]bool{}
	var vars []string
	for _, p := range q.Patterns {
		for _, n := range []Node{p.Subject, p.Predicate, p.Object} {
			if n.IsVar() && !isBlankVar(n.Var) && !seen[n.Var] {
				seen[n.Var] = true
				vars = append(vars, n.Var)
			}
		}
	}
	return vars
}

// Blank nodes in a query act as variables that are never projected.
const blankVarPrefix = "_:"

func isBlankVar(name string) bool { return strings.HasPrefix(name, blankVarPrefix) }

type parser struct {
	tokens []token
	pos    int
	query  *Query
}

// Parse parses a SELECT query.
func Parse(text string) (*Query, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{
		tokens: tokens,
		query:  &Query{Prefixes: map[string]string{}, Limit: -1},
	}
	if err := p.parseQuery(); err != nil {
		return nil, err
	}
	return p.query, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return syntaxErrorf(tok.pos, format, args...)
}

func (p *parser) isKeyword(kw string) bool {
	tok := p.peek()
	return tok.kind == tokWord && strings.EqualFold(tok.text, kw)
}

func (p *parser) isPunct(s string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == s
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.errorf(p.peek(), "expected %s, found %s", kw, p.peek())
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf(p.peek(), "expected %q, found %s", s, p.peek())
	}
	p.advance()
	return nil
}

func (p *parser) parseQuery() error {
	for p.isKeyword("PREFIX") {
		p.advance()
		name := p.advance()
		if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
			return p.errorf(name, "expected prefix name, found %s", name)
		}
		iri := p.advance()
		if iri.kind != tokIRI {
			return p.errorf(iri, "expected IRI, found %s", iri)
		}
		p.query.Prefixes[strings.TrimSuffix(name.text, ":")] = iri.text
	}

	if err := p.expectKeyword("SELECT"); err != nil {
		return err
	}
	if p.isKeyword("DISTINCT") {
		p.advance()
		p.query.Distinct = true
	}
	if p.isPunct("*") {
		p.advance()
	} else {
		for p.peek().kind == tokVar {
			p.query.Vars = append(p.query.Vars, p.advance().text)
		}
		if len(p.query.Vars) == 0 {
			return p.errorf(p.peek(), "expected variables or '*', found %s", p.peek())
		}
	}

	if p.isKeyword("WHERE") {
		p.advance()
	}
	if err := p.parseGroup(); err != nil {
		return err
	}
	if err := p.parseModifiers(); err != nil {
		return err
	}

	if tok := p.peek(); tok.kind != tokEOF {
		return p.errorf(tok, "unexpected %s after query", tok)
	}
	return nil
}

func (p *parser) parseGroup() error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}
	for !p.isPunct("}") {
		if p.peek().kind == tokEOF {
			return p.errorf(p.peek(), "unterminated group pattern")
		}
		if err := p.parseTriples(); err != nil {
			return err
		}
		if p.isPunct(".") {
			p.advance()
			continue
		}
		if !p.isPunct("}") {
			return p.errorf(p.peek(), "expected '.' or '}', found %s", p.peek())
		}
	}
	p.advance()
	return nil
}

func (p *parser) parseTriples() error {
	subject, err := p.parseNode(false)
	if err != nil {
		return err
	}
	for {
		verb, err := p.parseVerb()
		if err != nil {
			return err
		}
		for {
			object, err := p.parseNode(true)
			if err != nil {
				return err
			}
			p.query.Patterns = append(p.query.Patterns, Pattern{Subject: subject, Predicate: verb, Object: object})
			if !p.isPunct(",") {
				break
			}
			p.advance()
		}
		if !p.isPunct(";") {
			return nil
		}
		for p.isPunct(";") {
			p.advance()
		}
		// A trailing ';' may close the property list.
		if p.isPunct(".") || p.isPunct("}") {
			return nil
		}
	}
}

func (p *parser) parseVerb() (Node, error) {
	tok := p.peek()
	if tok.kind == tokWord && tok.text == "a" {
		p.advance()
		return Node{Term: graph.IRI(vocab.RDFType)}, nil
	}
	switch tok.kind {
	case tokVar, tokIRI, tokPName:
		return p.parseNode(false)
	}
	return Node{}, p.errorf(tok, "expected predicate, found %s", tok)
}

func (p *parser) parseNode(allowLiteral bool) (Node, error) {
	tok := p.advance()
	switch tok.kind {
	case tokVar:
		return Node{Var: tok.text}, nil
	case tokBlank:
		return Node{Var: blankVarPrefix + tok.text}, nil
	case tokIRI:
		return Node{Term: graph.IRI(tok.text)}, nil
	case tokPName:
		iri, err := p.expand(tok)
		if err != nil {
			return Node{}, err
		}
		return Node{Term: graph.IRI(iri)}, nil
	}

	if !allowLiteral {
		return Node{}, p.errorf(tok, "expected variable or IRI, found %s", tok)
	}

	switch tok.kind {
	case tokString:
		return p.parseLiteralSuffix(tok.text)
	case tokNumber:
		if strings.Contains(tok.text, ".") {
			return Node{Term: graph.TypedLiteral(tok.text, vocab.XSDDecimal)}, nil
		}
		if _, err := strconv.ParseInt(tok.text, 10, 64); err != nil {
			return Node{}, p.errorf(tok, "invalid integer %s", tok)
		}
		return Node{Term: graph.TypedLiteral(tok.text, vocab.XSDInteger)}, nil
	case tokWord:
		switch tok.text {
		case "true", "false":
			return Node{Term: graph.TypedLiteral(tok.text, vocab.XSDBoolean)}, nil
		}
	}
	return Node{}, p.errorf(tok, "expected term, found %s", tok)
}

func (p *parser) parseLiteralSuffix(value string) (Node, error) {
	switch p.peek().kind {
	case tokLangTag:
		return Node{Term: graph.LangLiteral(value, p.advance().text)}, nil
	case tokDatatypeMark:
		p.advance()
		dt := p.advance()
		switch dt.kind {
		case tokIRI:
			return Node{Term: graph.TypedLiteral(value, dt.text)}, nil
		case tokPName:
			iri, err := p.expand(dt)
			if err != nil {
				return Node{}, err
			}
			return Node{Term: graph.TypedLiteral(value, iri)}, nil
		}
		return Node{}, p.errorf(dt, "expected datatype IRI, found %s", dt)
	}
	return Node{Term: graph.Literal(value)}, nil
}

func (p *parser) expand(tok token) (string, error) {
	prefix, local, _ := strings.Cut(tok.text, ":")
	ns, ok := p.query.Prefixes[prefix]
	if !ok {
		return "", p.errorf(tok, "undeclared prefix %q", prefix)
	}
	return ns + local, nil
}

func (p *parser) parseModifiers() error {
	for {
		switch {
		case p.isKeyword("ORDER"):
			p.advance()
			if err := p.expectKeyword("BY"); err != nil {
				return err
			}
			if err := p.parseOrderKeys(); err != nil {
				return err
			}
		case p.isKeyword("LIMIT"):
			p.advance()
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			p.query.Limit = n
		case p.isKeyword("OFFSET"):
			p.advance()
			n, err := p.parseCount()
			if err != nil {
				return err
			}
			p.query.Offset = n
		default:
			return nil
		}
	}
}

func (p *parser) parseOrderKeys() error {
	start := len(p.query.OrderBy)
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokVar:
			p.advance()
			p.query.OrderBy = append(p.query.OrderBy, OrderKey{Var: tok.text})
		case p.isKeyword("ASC") || p.isKeyword("DESC"):
			desc := strings.EqualFold(p.advance().text, "DESC")
			if err := p.expectPunct("("); err != nil {
				return err
			}
			v := p.advance()
			if v.kind != tokVar {
				return p.errorf(v, "expected variable, found %s", v)
			}
			if err := p.expectPunct(")"); err != nil {
				return err
			}
			p.query.OrderBy = append(p.query.OrderBy, OrderKey{Var: v.text, Descending: desc})
		default:
			if len(p.query.OrderBy) == start {
				return p.errorf(tok, "expected order condition, found %s", tok)
			}
			return nil
		}
	}
}

func (p *parser) parseCount() (int, error) {
	tok := p.advance()
	if tok.kind != tokNumber {
		return 0, p.errorf(tok, "expected number, found %s", tok)
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil || n < 0 {
		return 0, p.errorf(tok, "invalid count %s", tok)
	}
	return n, nil
}
