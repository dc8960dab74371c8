package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/vkb-graph/backend/internal/vocab"
)

// Kind distinguishes named references, anonymous nodes and literals.
type Kind uint8

const (
	KindIRI Kind = iota + 1
	KindBlank
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is one position of a Statement. Terms are comparable and used as map keys.
type Term struct {
	Kind     Kind   `json:"kind" msgpack:"kind"`
	Value    string `json:"value" msgpack:"value"`
	Datatype string `json:"datatype,omitempty" msgpack:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty" msgpack:"lang,omitempty"`
}

// blankNamespace seeds the name-based UUIDs used as anonymous node labels.
var blankNamespace = uuid.MustParse("5b0f5c8e-8a64-4c3c-9d53-6b1f0e2a7d11")

// IRI returns a named reference.
func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// Blank returns an anonymous node with the given label.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// BlankFor returns an anonymous node whose label is derived from key, so the
// same key always yields the same node.
func BlankFor(key string) Term {
	id := uuid.NewSHA1(blankNamespace, []byte(key))
	return Blank("n" + strings.ReplaceAll(id.String(), "-", ""))
}

// Literal returns a plain string literal.
func Literal(v string) Term {
	return Term{Kind: KindLiteral, Value: v, Datatype: vocab.XSDString}
}

// TypedLiteral returns a literal with an explicit datatype. An empty datatype means xsd:string.
func TypedLiteral(v, datatype string) Term {
	if datatype == "" {
		datatype = vocab.XSDString
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

// Decimal returns an xsd:decimal literal in plain (non-exponent) notation.
func Decimal(f float64) Term {
	return TypedLiteral(strconv.FormatFloat(f, 'f', -1, 64), vocab.XSDDecimal)
}

func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// Float parses the term's value as a number.
func (t Term) Float() (float64, bool) {
	if t.Kind != KindLiteral {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String renders the term in N-Triples notation.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		s := `"` + EscapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" && t.Datatype != vocab.XSDString {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	default:
		return fmt.Sprintf("?%s", t.Value)
	}
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// EscapeLiteral escapes a lexical value for use between double quotes.
func EscapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

// Statement is one (subject, predicate, object) fact.
type Statement struct {
	Subject   Term `json:"subject" msgpack:"subject"`
	Predicate Term `json:"predicate" msgpack:"predicate"`
	Object    Term `json:"object" msgpack:"object"`
}

// NewStatement is a shorthand for a Statement with an IRI predicate.
func NewStatement(s Term, p string, o Term) Statement {
	return Statement{Subject: s, Predicate: IRI(p), Object: o}
}

func (s Statement) String() string {
	return s.Subject.String() + " " + s.Predicate.String() + " " + s.Object.String() + " ."
}
