// Package configdoc parses JavaScript/TypeScript configuration files into a
// mutable document addressed by field paths. Mutations are applied as
// byte-range splices on the original text, so everything a mutation does not
// touch is serialized exactly as it was read.
package configdoc

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/migrakit/migrakit/internal/domain"
)

// maxAliasDepth bounds identifier resolution so self-referencing
// declarations cannot loop.
const maxAliasDepth = 8

// Codec implements domain.ConfigCodec.
type Codec struct{}

// New creates a Codec.
func New() *Codec { return &Codec{} }

func (c *Codec) Parse(filename string, src []byte) (domain.ConfigDocument, error) {
	return Parse(filename, src)
}

// Document is a parsed configuration file.
type Document struct {
	filename string
	lang     *sitter.Language
	src      []byte
	tree     *sitter.Tree
	quote    byte
	// named is set when the file has no default export; top-level fields are
	// then named exports.
	named bool
}

// Parse reads src as the config file filename. The grammar is picked from
// the file extension.
func Parse(filename string, src []byte) (*Document, error) {
	d := &Document{
		filename: filename,
		lang:     languageFor(filename),
	}
	if err := d.reparse(src); err != nil {
		if d.tree != nil {
			d.tree.Close()
		}
		return nil, err
	}
	d.quote = d.detectQuote()
	return d, nil
}

func languageFor(filename string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func (d *Document) Filename() string { return d.filename }

// Serialize returns the current source text.
func (d *Document) Serialize() []byte {
	out := make([]byte, len(d.src))
	copy(out, d.src)
	return out
}

func (d *Document) String() string { return string(d.src) }

// reparse replaces the source and rebuilds the syntax tree, then validates
// the export shape.
func (d *Document) reparse(src []byte) error {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(d.lang)

	tree, err := p.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedConfig, d.filename, err)
	}
	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return fmt.Errorf("%w: %s: syntax error near line %d", domain.ErrMalformedConfig, d.filename, line)
	}

	if d.tree != nil {
		d.tree.Close()
	}
	d.tree = tree
	d.src = src

	exp := d.defaultExport()
	switch {
	case exp != nil:
		if obj := d.resolve(exp, 0); obj == nil || obj.Type() != "object" {
			return fmt.Errorf("%w: %s: default export is not an object literal", domain.ErrUnsupportedConfigShape, d.filename)
		}
		d.named = false
	case d.hasCommonJSExport():
		return fmt.Errorf("%w: %s: module.exports is not supported, use export default", domain.ErrUnsupportedConfigShape, d.filename)
	default:
		d.named = true
	}
	return nil
}

func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			return firstErrorLine(c)
		}
	}
	return int(n.StartPoint().Row) + 1
}

func (d *Document) root() *sitter.Node { return d.tree.RootNode() }

// defaultExport returns the expression after `export default`, or nil.
func (d *Document) defaultExport() *sitter.Node {
	root := d.root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "export_statement" || !hasChildOfType(stmt, "default") {
			continue
		}
		if v := stmt.ChildByFieldName("value"); v != nil {
			return v
		}
	}
	return nil
}

func (d *Document) hasCommonJSExport() bool {
	root := d.root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		expr := stmt.NamedChild(0)
		if expr.Type() != "assignment_expression" {
			continue
		}
		left := expr.ChildByFieldName("left")
		if left == nil {
			continue
		}
		target := left.Content(d.src)
		if strings.HasPrefix(target, "module.exports") || strings.HasPrefix(target, "exports.") {
			return true
		}
	}
	return false
}

// rootObject is the object literal behind the default export.
func (d *Document) rootObject() *sitter.Node {
	exp := d.defaultExport()
	if exp == nil {
		return nil
	}
	return d.resolve(exp, 0)
}

// resolve unwraps type assertions, parentheses, config helper calls and
// identifier aliases down to the value node they stand for.
func (d *Document) resolve(n *sitter.Node, depth int) *sitter.Node {
	if n == nil || depth > maxAliasDepth {
		return n
	}
	switch n.Type() {
	case "parenthesized_expression", "satisfies_expression", "as_expression",
		"non_null_expression", "type_assertion":
		if inner := firstExpression(n); inner != nil {
			return d.resolve(inner, depth+1)
		}
	case "call_expression":
		if args := n.ChildByFieldName("arguments"); args != nil {
			if inner := firstExpression(args); inner != nil && d.resolve(inner, depth+1).Type() == "object" {
				return d.resolve(inner, depth+1)
			}
		}
	case "identifier", "shorthand_property_identifier":
		if decl := d.findDeclarator(n.Content(d.src)); decl != nil {
			if v := decl.ChildByFieldName("value"); v != nil {
				return d.resolve(v, depth+1)
			}
		}
	}
	return n
}

func firstExpression(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		return c
	}
	return nil
}

// findDeclarator finds the top-level variable declarator for name.
func (d *Document) findDeclarator(name string) *sitter.Node {
	root := d.root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if decl := declaratorIn(root.NamedChild(i), name, d.src); decl != nil {
			return decl
		}
	}
	return nil
}

func declaratorIn(stmt *sitter.Node, name string, src []byte) *sitter.Node {
	if stmt.Type() == "export_statement" {
		stmt = stmt.ChildByFieldName("declaration")
		if stmt == nil {
			return nil
		}
	}
	if stmt.Type() != "lexical_declaration" && stmt.Type() != "variable_declaration" {
		return nil
	}
	for j := 0; j < int(stmt.NamedChildCount()); j++ {
		decl := stmt.NamedChild(j)
		if decl.Type() != "variable_declarator" {
			continue
		}
		if id := decl.ChildByFieldName("name"); id != nil && id.Content(src) == name {
			return decl
		}
	}
	return nil
}

// namedExport returns the statement and declarator of `export const name = ...`.
func (d *Document) namedExport(name string) (stmt, decl *sitter.Node) {
	root := d.root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		s := root.NamedChild(i)
		if s.Type() != "export_statement" {
			continue
		}
		if dc := declaratorIn(s, name, d.src); dc != nil {
			return s, dc
		}
	}
	return nil, nil
}

// findProperty returns the pair or shorthand property named key in obj.
func (d *Document) findProperty(obj *sitter.Node, key string) *sitter.Node {
	for _, p := range members(obj) {
		if k, ok := d.propertyKey(p); ok && k == key {
			return p
		}
	}
	return nil
}

func (d *Document) propertyKey(p *sitter.Node) (string, bool) {
	switch p.Type() {
	case "shorthand_property_identifier":
		return p.Content(d.src), true
	case "pair":
		k := p.ChildByFieldName("key")
		if k == nil {
			return "", false
		}
		switch k.Type() {
		case "property_identifier", "number":
			return k.Content(d.src), true
		case "string":
			return unquote(k.Content(d.src)), true
		}
	}
	return "", false
}

// propertyValue returns the node holding a property's value.
func propertyValue(p *sitter.Node) *sitter.Node {
	if p.Type() == "pair" {
		return p.ChildByFieldName("value")
	}
	return p
}

// members lists an object's or array's entries, skipping comments and
// punctuation.
func members(container *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(container.NamedChildCount()); i++ {
		c := container.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasChildOfType(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

// lookup returns the value node at path, before alias resolution of the
// final segment.
func (d *Document) lookup(path []string) *sitter.Node {
	if len(path) == 0 {
		return nil
	}
	var cur *sitter.Node
	if d.named {
		_, decl := d.namedExport(path[0])
		if decl == nil {
			return nil
		}
		cur = decl.ChildByFieldName("value")
	} else {
		obj := d.rootObject()
		if obj == nil {
			return nil
		}
		p := d.findProperty(obj, path[0])
		if p == nil {
			return nil
		}
		cur = propertyValue(p)
	}

	for _, seg := range path[1:] {
		obj := d.resolve(cur, 0)
		if obj == nil || obj.Type() != "object" {
			return nil
		}
		p := d.findProperty(obj, seg)
		if p == nil {
			return nil
		}
		cur = propertyValue(p)
	}
	return cur
}

// GetField evaluates the value at path. Non-literal values come back as
// domain.ConfigExpression.
func (d *Document) GetField(path []string) (any, bool) {
	n := d.lookup(path)
	if n == nil {
		return nil, false
	}
	return d.evaluate(n, 0), true
}

