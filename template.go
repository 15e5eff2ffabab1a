package fsbackend

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

///////////////////////////////////////////////////////////////////////////////
// AST DEFINITIONS
///////////////////////////////////////////////////////////////////////////////

// Node is the interface for all path template nodes.
type Node interface {
	// Eval evaluates the node with the given variables and returns string output.
	Eval(vars map[string]string) (string, error)
}

// TextNode represents a static text segment.
type TextNode struct {
	Text string
}

func (t *TextNode) Eval(_ map[string]string) (string, error) {
	return t.Text, nil
}

// Formatter represents a single formatter in the chain.
type Formatter struct {
	Name string
	Arg  string
}

// PlaceholderNode represents: {{name | formatter:arg | ...}}
type PlaceholderNode struct {
	Name       string
	Formatters []Formatter
}

func (p *PlaceholderNode) Eval(vars map[string]string) (string, error) {
	value, ok := vars[p.Name]
	if !ok {
		return "", fmt.Errorf("variable not found: %s", p.Name)
	}

	var err error
	for _, f := range p.Formatters {
		value, err = applyRegisteredFormatter(value, f.Name, f.Arg)
		if err != nil {
			return "", err
		}
	}
	return value, nil
}

// TemplateAST is a whole parsed path template.
type TemplateAST []Node

func (t TemplateAST) Eval(vars map[string]string) (string, error) {
	var sb strings.Builder
	for _, node := range t {
		s, err := node.Eval(vars)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// Variables lists the placeholder names used by the template, in order of appearance.
func (t TemplateAST) Variables() []string {
	var names []string
	for _, node := range t {
		if ph, ok := node.(*PlaceholderNode); ok {
			names = append(names, ph.Name)
		}
	}
	return names
}

///////////////////////////////////////////////////////////////////////////////
// AST CACHE
///////////////////////////////////////////////////////////////////////////////

var (
	astCache   = map[string]TemplateAST{}
	cacheMutex sync.RWMutex
)

// RenderTemplate substitutes vars into a path template such as
// "/locales/{{lng}}/{{ns}}.json". Parsed templates are cached.
func RenderTemplate(tpl string, vars map[string]string) (string, error) {
	cacheMutex.RLock()
	ast, ok := astCache[tpl]
	cacheMutex.RUnlock()

	if !ok {
		var err error
		ast, err = ParseTemplate(tpl)
		if err != nil {
			return "", err
		}
		cacheMutex.Lock()
		astCache[tpl] = ast
		cacheMutex.Unlock()
	}

	return ast.Eval(vars)
}

// Interpolator turns a path template and its variables into a concrete path.
type Interpolator interface {
	Interpolate(tpl string, vars map[string]string) (string, error)
}

// InterpolatorFunc adapts a plain function to the Interpolator interface.
type InterpolatorFunc func(tpl string, vars map[string]string) (string, error)

func (f InterpolatorFunc) Interpolate(tpl string, vars map[string]string) (string, error) {
	return f(tpl, vars)
}

// DefaultInterpolator renders templates with RenderTemplate.
var DefaultInterpolator Interpolator = InterpolatorFunc(RenderTemplate)

///////////////////////////////////////////////////////////////////////////////
// TEMPLATE PARSER
///////////////////////////////////////////////////////////////////////////////

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// ParseTemplate parses tpl into an AST. Text outside "{{ }}" is kept verbatim;
// an unclosed "{{" is an error since a path with a stray delimiter is never intended.
func ParseTemplate(tpl string) (TemplateAST, error) {
	var nodes TemplateAST
	rest := tpl
	offset := 0

	for rest != "" {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			nodes = append(nodes, &TextNode{Text: rest})
			break
		}
		if start > 0 {
			nodes = append(nodes, &TextNode{Text: rest[:start]})
		}

		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			return nil, fmt.Errorf("unclosed placeholder starting at position %d", offset+start)
		}

		raw := rest[start+len(openDelim) : start+len(openDelim)+end]
		ph, err := parsePlaceholder(raw)
		if err != nil {
			return nil, fmt.Errorf("placeholder at position %d: %w", offset+start, err)
		}
		nodes = append(nodes, ph)

		consumed := start + len(openDelim) + end + len(closeDelim)
		rest = rest[consumed:]
		offset += consumed
	}

	return nodes, nil
}

///////////////////////////////////////////////////////////////////////////////
// PLACEHOLDER PARSER
///////////////////////////////////////////////////////////////////////////////

// parsePlaceholder parses the expression inside `{{ ... }}`.
func parsePlaceholder(expr string) (*PlaceholderNode, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty placeholder expression")
	}

	parts := strings.Split(expr, "|")
	ph := &PlaceholderNode{
		Name: strings.TrimSpace(parts[0]),
	}
	if ph.Name == "" {
		return nil, errors.New("placeholder has empty name")
	}

	for i := 1; i < len(parts); i++ {
		seg := strings.TrimSpace(parts[i])
		if seg == "" {
			return nil, fmt.Errorf("empty formatter segment")
		}
		name, arg := parseFormatterSegment(seg)
		if name == "" {
			return nil, fmt.Errorf("empty formatter name in segment %q", seg)
		}
		ph.Formatters = append(ph.Formatters, Formatter{
			Name: name,
			Arg:  arg,
		})
	}

	return ph, nil
}

// parseFormatterSegment parses "replace:-:_" etc.
func parseFormatterSegment(seg string) (name, arg string) {
	ff := strings.SplitN(seg, ":", 2)
	name = strings.TrimSpace(ff[0])
	if len(ff) > 1 {
		arg = strings.TrimSpace(ff[1])
	}
	return
}

// ValidateTemplate does a strict validation of a path template:
//  1. parses into AST
//  2. checks every placeholder names one of the allowed variables
//  3. checks every formatter is registered
func ValidateTemplate(tpl string, allowed ...string) error {
	ast, err := ParseTemplate(tpl)
	if err != nil {
		return err
	}

	for _, node := range ast {
		ph, ok := node.(*PlaceholderNode)
		if !ok {
			continue
		}
		if len(allowed) > 0 && !slices.Contains(allowed, ph.Name) {
			return fmt.Errorf("unknown variable %q, expected one of %v", ph.Name, allowed)
		}
		for _, f := range ph.Formatters {
			if _, exists := lookupFormatter(f.Name); !exists {
				return fmt.Errorf("unknown formatter: %s", f.Name)
			}
		}
	}

	return nil
}
