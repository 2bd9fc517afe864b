package template

import (
	"fmt"
	"regexp"
	"strings"
)

type NodeKind int

const (
	KindLiteral NodeKind = iota
	KindVarRef
	KindInsert
	KindLoop
)

// Node is one tagged-variant element of a parsed template. Which
// fields are meaningful depends on Kind.
type Node struct {
	Kind NodeKind
	Line int

	// KindLiteral
	Text string

	// KindVarRef: a dotted name such as "queue.subnet".
	Name string

	// KindInsert: both arguments may themselves contain variable
	// references, so they are kept as inline node sequences and
	// resolved at render time.
	Source      []Node
	Destination []Node

	// KindLoop
	Alias      string
	Collection string
	Body       []Node
}

// Template is an immutable parsed template, consumed read-only by the
// renderer.
type Template struct {
	Name  string
	Nodes []Node
}

var (
	insertSyntax  = regexp.MustCompile(`^insert +'(.*?)' +in +'(.*?)'$`)
	forSyntax     = regexp.MustCompile(`^for +([^ ]+) +in +([^ ]+)$`)
	refSyntax     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	aliasSyntax   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	endForKeyword = "end_for"
)

// Parse tokenizes template text into a node sequence. It is pure and
// deterministic: no I/O, no state outside the returned tree.
func Parse(name, text string) (*Template, error) {
	p := &parser{name: name, text: text, line: 1}

	nodes, closed, err := p.parseBody(false)
	if err != nil {
		return nil, err
	}

	if closed {
		return nil, p.syntaxError(p.line, "%q without a matching for", endForKeyword)
	}

	return &Template{Name: name, Nodes: nodes}, nil
}

type parser struct {
	name string
	text string
	pos  int
	line int
}

// parseBody scans nodes until end of input or, when inLoop is set,
// until the balancing end_for directive. The boolean result reports
// whether an end_for closed the body.
func (p *parser) parseBody(inLoop bool) ([]Node, bool, error) {
	var nodes []Node

	for p.pos < len(p.text) {
		varIdx := strings.Index(p.text[p.pos:], "{{")
		dirIdx := strings.Index(p.text[p.pos:], "{%")

		next, isDirective := varIdx, false
		if next < 0 || (dirIdx >= 0 && dirIdx < next) {
			next, isDirective = dirIdx, true
		}

		if next < 0 {
			nodes = append(nodes, Node{Kind: KindLiteral, Line: p.line, Text: p.text[p.pos:]})
			p.consume(len(p.text) - p.pos)
			break
		}

		if next > 0 {
			nodes = append(nodes, Node{Kind: KindLiteral, Line: p.line, Text: p.text[p.pos : p.pos+next]})
			p.consume(next)
		}

		if !isDirective {
			node, err := p.parseVarRef()
			if err != nil {
				return nil, false, err
			}

			nodes = append(nodes, node)
			continue
		}

		tag, tagLine, err := p.parseTag()
		if err != nil {
			return nil, false, err
		}

		switch {
		case tag == endForKeyword:
			if !inLoop {
				return nil, false, p.syntaxError(tagLine, "%q without a matching for", endForKeyword)
			}

			return nodes, true, nil

		case forSyntax.MatchString(tag):
			match := forSyntax.FindStringSubmatch(tag)
			alias, collection := match[1], match[2]

			if !aliasSyntax.MatchString(alias) {
				return nil, false, p.syntaxError(tagLine, "invalid loop alias %q", alias)
			}
			if !refSyntax.MatchString(collection) {
				return nil, false, p.syntaxError(tagLine, "invalid loop collection %q", collection)
			}

			body, closed, err := p.parseBody(true)
			if err != nil {
				return nil, false, err
			}
			if !closed {
				return nil, false, p.syntaxError(tagLine, "for %s in %s without a matching %s", alias, collection, endForKeyword)
			}

			nodes = append(nodes, Node{
				Kind:       KindLoop,
				Line:       tagLine,
				Alias:      alias,
				Collection: collection,
				Body:       body,
			})

		case insertSyntax.MatchString(tag):
			match := insertSyntax.FindStringSubmatch(tag)

			source, err := p.parseInline(match[1], tagLine)
			if err != nil {
				return nil, false, err
			}
			if len(source) == 0 {
				return nil, false, p.syntaxError(tagLine, "insert directive with an empty source")
			}

			destination, err := p.parseInline(match[2], tagLine)
			if err != nil {
				return nil, false, err
			}
			if len(destination) == 0 {
				return nil, false, p.syntaxError(tagLine, "insert directive with an empty destination")
			}

			nodes = append(nodes, Node{
				Kind:        KindInsert,
				Line:        tagLine,
				Source:      source,
				Destination: destination,
			})

		case strings.HasPrefix(tag, "insert"):
			return nil, false, p.syntaxError(tagLine, "malformed insert directive %q (expected insert '<template>' in '<path>')", tag)

		case strings.HasPrefix(tag, "for"):
			return nil, false, p.syntaxError(tagLine, "malformed for directive %q (expected for <alias> in <collection>)", tag)

		default:
			return nil, false, p.syntaxError(tagLine, "unknown directive %q", tag)
		}
	}

	return nodes, false, nil
}

func (p *parser) parseVarRef() (Node, error) {
	line := p.line

	end := strings.Index(p.text[p.pos:], "}}")
	if end < 0 {
		return Node{}, p.syntaxError(line, "unclosed {{")
	}

	name := strings.TrimSpace(p.text[p.pos+2 : p.pos+end])
	if !refSyntax.MatchString(name) {
		return Node{}, p.syntaxError(line, "invalid variable reference %q", name)
	}

	p.consume(end + 2)

	return Node{Kind: KindVarRef, Line: line, Name: name}, nil
}

func (p *parser) parseTag() (string, int, error) {
	line := p.line

	end := strings.Index(p.text[p.pos:], "%}")
	if end < 0 {
		return "", line, p.syntaxError(line, "unclosed {%%")
	}

	tag := strings.TrimSpace(p.text[p.pos+2 : p.pos+end])
	p.consume(end + 2)

	return tag, line, nil
}

// parseInline parses a directive argument that may contain variable
// references but no nested directives.
func (p *parser) parseInline(text string, line int) ([]Node, error) {
	if strings.Contains(text, "{%") {
		return nil, p.syntaxError(line, "directive not allowed inside an insert argument")
	}

	var nodes []Node
	pos := 0

	for pos < len(text) {
		next := strings.Index(text[pos:], "{{")
		if next < 0 {
			nodes = append(nodes, Node{Kind: KindLiteral, Line: line, Text: text[pos:]})
			break
		}

		if next > 0 {
			nodes = append(nodes, Node{Kind: KindLiteral, Line: line, Text: text[pos : pos+next]})
			pos += next
		}

		end := strings.Index(text[pos:], "}}")
		if end < 0 {
			return nil, p.syntaxError(line, "unclosed {{ in insert argument")
		}

		name := strings.TrimSpace(text[pos+2 : pos+end])
		if !refSyntax.MatchString(name) {
			return nil, p.syntaxError(line, "invalid variable reference %q in insert argument", name)
		}

		nodes = append(nodes, Node{Kind: KindVarRef, Line: line, Name: name})
		pos += end + 2
	}

	return nodes, nil
}

func (p *parser) consume(n int) {
	p.line += strings.Count(p.text[p.pos:p.pos+n], "\n")
	p.pos += n
}

func (p *parser) syntaxError(line int, format string, args ...any) error {
	return fmt.Errorf("template %q, line %d: %s: %w",
		p.name, line, fmt.Sprintf(format, args...), ErrTemplateSyntax)
}
