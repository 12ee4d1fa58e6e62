package configdoc

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/migrakit/migrakit/internal/domain"
)

// edit replaces src[start:end] with text.
type edit struct {
	start, end uint32
	text       string
}

// apply splices edits into the source back to front and re-parses. On
// failure the document is left as it was.
func (d *Document) apply(edits ...edit) error {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })

	prev := d.src
	out := make([]byte, len(prev))
	copy(out, prev)
	for _, e := range edits {
		var b []byte
		b = append(b, out[:e.start]...)
		b = append(b, e.text...)
		b = append(b, out[e.end:]...)
		out = b
	}

	if err := d.reparse(out); err != nil {
		if rerr := d.reparse(prev); rerr != nil {
			return errors.Join(err, rerr)
		}
		return fmt.Errorf("rewriting %s: %w", d.filename, err)
	}
	return nil
}

// SetField writes value at path, creating missing intermediate objects.
func (d *Document) SetField(path []string, value any) error {
	if len(path) == 0 {
		return errors.New("empty field path")
	}

	var obj *sitter.Node
	i := 0
	if d.named {
		_, decl := d.namedExport(path[0])
		if decl == nil {
			text, err := d.render(nest(path[1:], value))
			if err != nil {
				return err
			}
			return d.appendStatement(fmt.Sprintf("export const %s = %s;", path[0], text))
		}
		val := decl.ChildByFieldName("value")
		if len(path) == 1 {
			return d.replaceNode(val, value)
		}
		obj = d.resolve(val, 0)
		i = 1
	} else {
		obj = d.rootObject()
	}

	for ; i < len(path); i++ {
		if obj == nil || obj.Type() != "object" {
			return fmt.Errorf("cannot set %s in %s: %s is not an object",
				strings.Join(path, "."), d.filename, strings.Join(path[:i], "."))
		}
		prop := d.findProperty(obj, path[i])
		if prop == nil {
			return d.insertProperty(obj, path[i], nest(path[i+1:], value))
		}
		if i == len(path)-1 {
			if prop.Type() == "shorthand_property_identifier" {
				text, err := d.render(value)
				if err != nil {
					return err
				}
				return d.apply(edit{prop.StartByte(), prop.EndByte(), d.renderKey(path[i]) + ": " + text})
			}
			return d.replaceNode(propertyValue(prop), value)
		}
		obj = d.resolve(propertyValue(prop), 0)
	}
	return nil
}

func nest(path []string, value any) any {
	if len(path) == 0 {
		return value
	}
	return map[string]any{path[0]: nest(path[1:], value)}
}

func (d *Document) replaceNode(n *sitter.Node, value any) error {
	text, err := d.render(value)
	if err != nil {
		return err
	}
	return d.apply(edit{n.StartByte(), n.EndByte(), text})
}

func (d *Document) appendStatement(stmt string) error {
	nl := d.newline()
	end := uint32(len(d.src))
	prefix := ""
	if end > 0 && d.src[end-1] != '\n' {
		prefix = nl
	}
	if end > 0 {
		prefix += nl
	}
	return d.apply(edit{end, end, prefix + stmt + nl})
}

// newline is the document's line terminator.
func (d *Document) newline() string {
	if bytes.Contains(d.src, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

func (d *Document) insertProperty(obj *sitter.Node, key string, value any) error {
	text, err := d.render(value)
	if err != nil {
		return err
	}
	return d.insertMember(obj, d.renderKey(key)+": "+text, true)
}

// insertMember adds entry as the last member of an object or array,
// following the container's existing layout and trailing-comma style.
func (d *Document) insertMember(container *sitter.Node, entry string, padEmpty bool) error {
	nl := d.newline()
	items := members(container)
	if len(items) == 0 {
		open, closing := container.StartByte()+1, container.EndByte()-1
		if container.EndPoint().Row > container.StartPoint().Row {
			inner := d.indentOf(container) + d.indentUnit()
			if strings.TrimSpace(string(d.src[open:closing])) == "" {
				return d.apply(edit{open, closing, nl + inner + entry + "," + nl + d.indentOf(container)})
			}
			return d.apply(edit{open, open, nl + inner + entry + ","})
		}
		if padEmpty {
			if d.src[open] == '}' {
				return d.apply(edit{open, open, " " + entry + " "})
			}
			return d.apply(edit{open, open, " " + entry})
		}
		return d.apply(edit{open, open, entry})
	}

	last := items[len(items)-1]
	comma := trailingComma(container, last)
	multiline := last.StartPoint().Row > container.StartPoint().Row

	switch {
	case multiline && comma != nil:
		at := d.lineCommentEnd(comma.EndByte())
		return d.apply(edit{at, at, nl + d.indentOf(last) + entry + ","})
	case multiline:
		if at := d.lineCommentEnd(last.EndByte()); at != last.EndByte() {
			return d.apply(
				edit{last.EndByte(), last.EndByte(), ","},
				edit{at, at, nl + d.indentOf(last) + entry},
			)
		}
		return d.apply(edit{last.EndByte(), last.EndByte(), "," + nl + d.indentOf(last) + entry})
	case comma != nil:
		return d.apply(edit{comma.EndByte(), comma.EndByte(), " " + entry + ","})
	default:
		return d.apply(edit{last.EndByte(), last.EndByte(), ", " + entry})
	}
}

// lineCommentEnd returns the end of a comment that follows pos on the same
// line, or pos when there is none. The line terminator is not included.
func (d *Document) lineCommentEnd(pos uint32) uint32 {
	p := int(pos)
	for p < len(d.src) && (d.src[p] == ' ' || d.src[p] == '\t') {
		p++
	}
	if p+1 >= len(d.src) || d.src[p] != '/' {
		return pos
	}
	switch d.src[p+1] {
	case '/':
		for p < len(d.src) && d.src[p] != '\n' && d.src[p] != '\r' {
			p++
		}
		return uint32(p)
	case '*':
		rest := d.src[p+2:]
		end := bytes.Index(rest, []byte("*/"))
		if end < 0 || bytes.IndexByte(rest[:end], '\n') >= 0 {
			return pos
		}
		return uint32(p + 2 + end + 2)
	}
	return pos
}

// indentUnit guesses one level of indentation from the document.
func (d *Document) indentUnit() string {
	for _, line := range bytes.Split(d.src, []byte("\n")) {
		switch {
		case len(line) > 0 && line[0] == '\t':
			return "\t"
		case len(line) > 0 && line[0] == ' ':
			n := len(line) - len(bytes.TrimLeft(line, " "))
			if n > 0 && n <= 8 && len(bytes.TrimSpace(line)) > 0 {
				return strings.Repeat(" ", n)
			}
		}
	}
	return "  "
}

// trailingComma returns the comma token directly after item, if any.
func trailingComma(container, item *sitter.Node) *sitter.Node {
	idx := childIndex(container, item)
	for j := idx + 1; j >= 1 && j < int(container.ChildCount()); j++ {
		c := container.Child(j)
		switch c.Type() {
		case ",":
			return c
		case "comment":
			continue
		}
		return nil
	}
	return nil
}

// leadingComma returns the comma token directly before item, if any.
func leadingComma(container, item *sitter.Node) *sitter.Node {
	idx := childIndex(container, item)
	for j := idx - 1; j >= 0; j-- {
		c := container.Child(j)
		switch c.Type() {
		case ",":
			return c
		case "comment":
			continue
		}
		return nil
	}
	return nil
}

func childIndex(container, item *sitter.Node) int {
	for i := 0; i < int(container.ChildCount()); i++ {
		c := container.Child(i)
		if c.StartByte() == item.StartByte() && c.EndByte() == item.EndByte() && c.Type() == item.Type() {
			return i
		}
	}
	return -1
}

func (d *Document) indentOf(n *sitter.Node) string {
	start := lineStart(d.src, n.StartByte())
	end := start
	for end < n.StartByte() && (d.src[end] == ' ' || d.src[end] == '\t') {
		end++
	}
	return string(d.src[start:end])
}

func lineStart(src []byte, pos uint32) uint32 {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// AppendToArrayField appends value to the array at path, creating the array
// when the field is missing. Existing entries are left untouched.
func (d *Document) AppendToArrayField(path []string, value any) error {
	n := d.lookup(path)
	if n == nil {
		return d.SetField(path, []any{value})
	}
	arr := d.resolve(n, 0)
	if arr.Type() != "array" {
		return fmt.Errorf("%w: %s in %s", domain.ErrNotAnArray, strings.Join(path, "."), d.filename)
	}
	text, err := d.render(value)
	if err != nil {
		return err
	}
	return d.insertMember(arr, text, false)
}

// RemoveField deletes the field at path. Parent objects left empty by the
// removal are removed as well. Missing fields are not an error.
func (d *Document) RemoveField(path []string) error {
	if len(path) == 0 {
		return errors.New("empty field path")
	}

	if d.named && len(path) == 1 {
		stmt, _ := d.namedExport(path[0])
		if stmt == nil {
			return nil
		}
		start, end := d.lineSpan(stmt.StartByte(), stmt.EndByte())
		return d.apply(edit{start, end, ""})
	}

	var obj *sitter.Node
	if len(path) == 1 {
		obj = d.rootObject()
	} else {
		parent := d.lookup(path[:len(path)-1])
		if parent == nil {
			return nil
		}
		obj = d.resolve(parent, 0)
	}
	if obj == nil || obj.Type() != "object" {
		return nil
	}
	prop := d.findProperty(obj, path[len(path)-1])
	if prop == nil {
		return nil
	}

	alias := ""
	if v := propertyValue(prop); v != nil && (v.Type() == "identifier" || v.Type() == "shorthand_property_identifier") {
		alias = v.Content(d.src)
	}
	if err := d.apply(d.removalEdits(obj, prop)...); err != nil {
		return err
	}
	if alias != "" {
		if err := d.dropUnusedDeclaration(alias); err != nil {
			return err
		}
	}

	if len(path) > 1 {
		parent := d.lookup(path[:len(path)-1])
		if parent != nil {
			if o := d.resolve(parent, 0); o.Type() == "object" && len(members(o)) == 0 {
				return d.RemoveField(path[:len(path)-1])
			}
		}
	}
	return nil
}

// dropUnusedDeclaration deletes `const name = <literal>;` once nothing else
// in the file refers to name.
func (d *Document) dropUnusedDeclaration(name string) error {
	root := d.root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() == "export_statement" || stmt.NamedChildCount() != 1 {
			continue
		}
		decl := declaratorIn(stmt, name, d.src)
		if decl == nil {
			continue
		}
		if v := decl.ChildByFieldName("value"); v == nil || !literalTypes[v.Type()] {
			return nil
		}
		if d.references(root, name) > 1 {
			return nil
		}
		start, end := d.lineSpan(stmt.StartByte(), stmt.EndByte())
		if start == 0 || d.blankLineEndingAt(start) {
			end = d.skipBlankLine(end)
		}
		return d.apply(edit{start, end, ""})
	}
	return nil
}

var literalTypes = map[string]bool{
	"object": true, "array": true, "string": true, "number": true,
	"true": true, "false": true, "null": true, "undefined": true,
}

// references counts identifier nodes spelling name, declarations included.
func (d *Document) references(n *sitter.Node, name string) int {
	count := 0
	switch n.Type() {
	case "identifier", "shorthand_property_identifier":
		if n.Content(d.src) == name {
			count++
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		count += d.references(n.NamedChild(i), name)
	}
	return count
}

// blankLineEndingAt reports whether the line before the one starting at pos
// is blank.
func (d *Document) blankLineEndingAt(pos uint32) bool {
	if pos == 0 {
		return false
	}
	prev := lineStart(d.src, pos-1)
	return len(bytes.TrimSpace(d.src[prev:pos])) == 0
}

// skipBlankLine steps over one blank line starting at pos.
func (d *Document) skipBlankLine(pos uint32) uint32 {
	p := pos
	for int(p) < len(d.src) && (d.src[p] == ' ' || d.src[p] == '\t' || d.src[p] == '\r') {
		p++
	}
	if int(p) < len(d.src) && d.src[p] == '\n' {
		return p + 1
	}
	return pos
}

// RemoveFromArrayField removes every entry of the array at path for which
// match returns true and reports how many were removed.
func (d *Document) RemoveFromArrayField(path []string, match func(any) bool) (int, error) {
	removed := 0
	for {
		n := d.lookup(path)
		if n == nil {
			return removed, nil
		}
		arr := d.resolve(n, 0)
		if arr.Type() != "array" {
			return removed, fmt.Errorf("%w: %s in %s", domain.ErrNotAnArray, strings.Join(path, "."), d.filename)
		}

		var target *sitter.Node
		for _, el := range members(arr) {
			if match(d.evaluate(el, 0)) {
				target = el
				break
			}
		}
		if target == nil {
			return removed, nil
		}
		if err := d.apply(d.removalEdits(arr, target)...); err != nil {
			return removed, err
		}
		removed++
	}
}

// removalEdits deletes item from container together with its separator.
// An item alone on its line takes the whole line with it.
func (d *Document) removalEdits(container, item *sitter.Node) []edit {
	start, end := item.StartByte(), item.EndByte()
	next := trailingComma(container, item)
	if next != nil {
		end = next.EndByte()
	}
	if e := d.lineCommentEnd(end); e != end && d.ownsLine(start, e) {
		end = e
	}

	if d.ownsLine(start, end) {
		s, e := d.lineSpan(start, end)
		edits := []edit{{s, e, ""}}
		if next == nil {
			// Last entry: drop the separator the previous entry no longer needs.
			if prev := leadingComma(container, item); prev != nil && prev.EndByte() <= s {
				edits = append(edits, edit{prev.StartByte(), prev.EndByte(), ""})
			}
		}
		return edits
	}

	if next != nil {
		for int(end) < len(d.src) && (d.src[end] == ' ' || d.src[end] == '\t') {
			end++
		}
		return []edit{{start, end, ""}}
	}
	if prev := leadingComma(container, item); prev != nil {
		return []edit{{prev.StartByte(), end, ""}}
	}
	for start > container.StartByte()+1 && d.src[start-1] == ' ' {
		start--
	}
	return []edit{{start, end, ""}}
}

// ownsLine reports whether src[start:end] is the only non-blank text on its lines.
func (d *Document) ownsLine(start, end uint32) bool {
	for p := lineStart(d.src, start); p < start; p++ {
		if d.src[p] != ' ' && d.src[p] != '\t' {
			return false
		}
	}
	for p := end; int(p) < len(d.src); p++ {
		switch d.src[p] {
		case ' ', '\t', '\r':
			continue
		case '\n':
			return true
		}
		return false
	}
	return true
}

// lineSpan widens [start, end) to whole lines including the final newline.
func (d *Document) lineSpan(start, end uint32) (uint32, uint32) {
	s := lineStart(d.src, start)
	e := end
	for int(e) < len(d.src) && d.src[e] != '\n' {
		e++
	}
	if int(e) < len(d.src) {
		e++
	}
	return s, e
}
