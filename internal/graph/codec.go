package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/knakk/rdf"
	"github.com/vkb-graph/backend/internal/vocab"
)

// Format is a triple serialization format.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
)

// FormatInfo provides metadata about a serialization format.
type FormatInfo struct {
	Name      Format
	MIMEType  string
	Extension string
}

// Formats lists the supported serialization formats.
var Formats = map[Format]FormatInfo{
	FormatTurtle:   {Name: FormatTurtle, MIMEType: "text/turtle", Extension: ".ttl"},
	FormatNTriples: {Name: FormatNTriples, MIMEType: "application/n-triples", Extension: ".nt"},
}

// ErrUnknownFormat is returned for files whose extension maps to no format.
var ErrUnknownFormat = errors.New("unknown serialization format")

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, info := range Formats {
		if info.Extension == ext {
			return info.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
}

func (f Format) rdfFormat() (rdf.Format, error) {
	switch f {
	case FormatTurtle:
		return rdf.Turtle, nil
	case FormatNTriples:
		return rdf.NTriples, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// Decode reads a serialized statement collection.
func Decode(r io.Reader, f Format) (*Graph, error) {
	rf, err := f.rdfFormat()
	if err != nil {
		return nil, err
	}

	g := New()
	dec := rdf.NewTripleDecoder(r, rf)
	for {
		tr, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f, err)
		}
		st, err := fromRDF(tr)
		if err != nil {
			return nil, err
		}
		g.Add(st)
	}
	return g, nil
}

func fromRDF(tr rdf.Triple) (Statement, error) {
	s, err := termFromRDF(tr.Subj)
	if err != nil {
		return Statement{}, err
	}
	p, err := termFromRDF(tr.Pred)
	if err != nil {
		return Statement{}, err
	}
	o, err := termFromRDF(tr.Obj)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Subject: s, Predicate: p, Object: o}, nil
}

func termFromRDF(t rdf.Term) (Term, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return IRI(v.String()), nil
	case rdf.Blank:
		return Blank(strings.TrimPrefix(v.String(), "_:")), nil
	case rdf.Literal:
		if lang := v.Lang(); lang != "" {
			return LangLiteral(v.String(), lang), nil
		}
		return TypedLiteral(v.String(), v.DataType.String()), nil
	}
	return Term{}, fmt.Errorf("unsupported term %T", t)
}

// ParseFile loads a graph from a .ttl or .nt file.
func ParseFile(path string) (*Graph, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Decode(bufio.NewReader(file), f)
}

// WriteFile serializes g to path, choosing the format from the extension.
func WriteFile(path string, g *Graph, prefixes map[string]string) error {
	f, err := FormatForPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	if err := Encode(w, g, f, prefixes); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode serializes g in format f. Prefixes are only used by Turtle.
func Encode(w io.Writer, g *Graph, f Format, prefixes map[string]string) error {
	switch f {
	case FormatTurtle:
		tw := NewTurtleWriter(w, prefixes)
		return tw.WriteGraph(g)
	case FormatNTriples:
		for _, st := range g.Statements() {
			if _, err := io.WriteString(w, st.String()+"\n"); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// localNameRegex limits prefixed names to the conservative subset every Turtle reader accepts.
var localNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TurtleWriter writes a graph as Turtle, grouping statements per subject.
type TurtleWriter struct {
	w        io.Writer
	prefixes map[string]string
	err      error
}

// NewTurtleWriter creates a writer using the given prefix bindings (prefix -> namespace).
func NewTurtleWriter(w io.Writer, prefixes map[string]string) *TurtleWriter {
	if prefixes == nil {
		prefixes = vocab.Prefixes
	}
	return &TurtleWriter{w: w, prefixes: prefixes}
}

func (tw *TurtleWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

// WriteGraph writes the prefix block followed by one block per subject.
func (tw *TurtleWriter) WriteGraph(g *Graph) error {
	keys := make([]string, 0, len(tw.prefixes))
	for k := range tw.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, prefix := range keys {
		tw.printf("@prefix %s: <%s> .\n", prefix, tw.prefixes[prefix])
	}
	tw.printf("\n")

	sts := g.Statements()
	for i := 0; i < len(sts); {
		subject := sts[i].Subject
		j := i
		for j < len(sts) && sts[j].Subject == subject {
			j++
		}
		tw.printf("%s\n", tw.term(subject))
		for k := i; k < j; k++ {
			terminator := " ;"
			if k == j-1 {
				terminator = " ."
			}
			tw.printf("    %s %s%s\n", tw.predicate(sts[k].Predicate), tw.term(sts[k].Object), terminator)
		}
		tw.printf("\n")
		i = j
	}
	return tw.err
}

func (tw *TurtleWriter) predicate(t Term) string {
	if t.Kind == KindIRI && t.Value == vocab.RDFType {
		return "a"
	}
	return tw.term(t)
}

func (tw *TurtleWriter) term(t Term) string {
	if t.Kind != KindIRI {
		return t.String()
	}
	best := ""
	for prefix, ns := range tw.prefixes {
		if !strings.HasPrefix(t.Value, ns) {
			continue
		}
		local := strings.TrimPrefix(t.Value, ns)
		if !localNameRegex.MatchString(local) {
			continue
		}
		name := prefix + ":" + local
		if best == "" || len(name) < len(best) || (len(name) == len(best) && name < best) {
			best = name
		}
	}
	if best != "" {
		return best
	}
	return t.String()
}
