package template

import (
	"bytes"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"

	"github.com/virtual-hpc/hpcctl/internal/models"
)

// Loader resolves a sub-template name (as written in an insert
// directive) to its raw text.
type Loader interface {
	Load(name string) (string, error)
}

// Result is the outcome of one render pass: the primary output plus
// every artifact produced by insertion directives, in the order the
// insertions were reached.
type Result struct {
	Output  []byte
	Inserts []models.Artifact
}

// Renderer expands parsed templates against a context. Parsed
// sub-templates are cached; the cache is immutable after insert, so a
// single Renderer is safe to share between concurrent render passes.
type Renderer struct {
	loader Loader

	mu    sync.Mutex
	cache map[string]*Template
}

func NewRenderer(loader Loader) *Renderer {
	return &Renderer{loader: loader, cache: make(map[string]*Template)}
}

// Render walks the node tree against the context. The same (template,
// context) pair always renders byte-for-byte identically: iteration
// follows collection order and nothing else feeds the output.
func (r *Renderer) Render(tpl *Template, ctx *Context) (*Result, error) {
	state := &renderState{renderer: r, byPath: make(map[string]int)}

	buf := &bytes.Buffer{}
	if err := state.renderNodes(tpl, tpl.Nodes, ctx, buf); err != nil {
		return nil, err
	}

	return &Result{Output: buf.Bytes(), Inserts: state.inserts}, nil
}

type renderState struct {
	renderer *Renderer
	inserts  []models.Artifact
	byPath   map[string]int
	chain    []string
}

func (s *renderState) renderNodes(tpl *Template, nodes []Node, ctx *Context, buf *bytes.Buffer) error {
	for _, node := range nodes {
		switch node.Kind {
		case KindLiteral:
			buf.WriteString(node.Text)

		case KindVarRef:
			value, err := ctx.Resolve(node.Name)
			if err != nil {
				return fmt.Errorf("template %q, line %d: %w", tpl.Name, node.Line, err)
			}

			text, err := formatValue(value)
			if err != nil {
				return fmt.Errorf("template %q, line %d: name %q: %w", tpl.Name, node.Line, node.Name, err)
			}

			buf.WriteString(text)

		case KindLoop:
			if err := s.renderLoop(tpl, node, ctx, buf); err != nil {
				return err
			}

		case KindInsert:
			if err := s.renderInsert(tpl, node, ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *renderState) renderLoop(tpl *Template, node Node, ctx *Context, buf *bytes.Buffer) error {
	value, err := ctx.Resolve(node.Collection)
	if err != nil {
		return fmt.Errorf("template %q, line %d: %w", tpl.Name, node.Line, err)
	}

	records, ok := value.([]Frame)
	if !ok {
		return fmt.Errorf("template %q, line %d: name %q does not resolve to a sequence: %w",
			tpl.Name, node.Line, node.Collection, ErrUnresolvedName)
	}

	for _, record := range records {
		child := ctx.Push(Frame{node.Alias: record})

		if err := s.renderNodes(tpl, node.Body, child, buf); err != nil {
			return err
		}
	}

	return nil
}

// renderInsert renders the referenced sub-template against the same
// context and registers the output as an artifact at the resolved
// destination. Nothing is substituted at the insertion site.
func (s *renderState) renderInsert(tpl *Template, node Node, ctx *Context) error {
	source, err := s.renderInline(tpl, node.Source, ctx)
	if err != nil {
		return err
	}

	destination, err := s.renderInline(tpl, node.Destination, ctx)
	if err != nil {
		return err
	}

	if slices.Contains(s.chain, source) {
		return fmt.Errorf("template %q, line %d: recursive insertion of %q: %w",
			tpl.Name, node.Line, source, ErrTemplateSyntax)
	}

	sub, err := s.renderer.parse(source)
	if err != nil {
		return fmt.Errorf("template %q, line %d: %w", tpl.Name, node.Line, err)
	}

	s.chain = append(s.chain, source)
	defer func() { s.chain = s.chain[:len(s.chain)-1] }()

	buf := &bytes.Buffer{}
	if err := s.renderNodes(sub, sub.Nodes, ctx, buf); err != nil {
		return err
	}

	return s.register(tpl, node, destination, buf.Bytes())
}

func (s *renderState) renderInline(tpl *Template, nodes []Node, ctx *Context) (string, error) {
	buf := &bytes.Buffer{}
	if err := s.renderNodes(tpl, nodes, ctx, buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *renderState) register(tpl *Template, node Node, destination string, content []byte) error {
	if idx, ok := s.byPath[destination]; ok {
		if !bytes.Equal(s.inserts[idx].Content, content) {
			return fmt.Errorf("template %q, line %d: destination %q already produced with different content: %w",
				tpl.Name, node.Line, destination, ErrInsertionConflict)
		}

		return nil
	}

	s.byPath[destination] = len(s.inserts)
	s.inserts = append(s.inserts, models.Artifact{DestinationPath: destination, Content: content})

	return nil
}

func (r *Renderer) parse(name string) (*Template, error) {
	r.mu.Lock()
	cached, ok := r.cache[name]
	r.mu.Unlock()

	if ok {
		return cached, nil
	}

	text, err := r.loader.Load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %q: %w", name, err)
	}

	tpl, err := Parse(name, text)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[name] = tpl
	r.mu.Unlock()

	return tpl, nil
}

// formatValue converts a scalar to its canonical text form: integers
// as decimal, addresses as dotted quads, subnets in CIDR notation.
func formatValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case net.IP:
		return v.String(), nil
	case net.IPNet:
		return v.String(), nil
	case *net.IPNet:
		return v.String(), nil
	default:
		return "", fmt.Errorf("value of type %T has no text form: %w", value, ErrUnresolvedName)
	}
}
