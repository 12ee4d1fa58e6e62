package configdoc

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/migrakit/migrakit/internal/domain"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// evaluate turns a value node into a Go value: string, float64, bool, nil,
// []any, map[string]any or domain.ConfigExpression.
func (d *Document) evaluate(n *sitter.Node, depth int) any {
	n = d.resolve(n, depth)
	switch n.Type() {
	case "string":
		return unquote(n.Content(d.src))
	case "template_string":
		if !hasChildOfType(n, "template_substitution") {
			raw := n.Content(d.src)
			return raw[1 : len(raw)-1]
		}
	case "number":
		if f, err := strconv.ParseFloat(n.Content(d.src), 64); err == nil {
			return f
		}
	case "true":
		return true
	case "false":
		return false
	case "null", "undefined":
		return nil
	case "array":
		out := []any{}
		for _, el := range members(n) {
			out = append(out, d.evaluate(el, depth+1))
		}
		return out
	case "object":
		out := map[string]any{}
		for _, p := range members(n) {
			k, ok := d.propertyKey(p)
			if !ok {
				continue
			}
			out[k] = d.evaluate(propertyValue(p), depth+1)
		}
		return out
	}
	return domain.ConfigExpression{Source: n.Content(d.src)}
}

// render prints a Go value as JavaScript source using the document's quote style.
func (d *Document) render(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(val, d.quote), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case domain.ConfigExpression:
		return val.Source, nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return d.render(items)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := d.render(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		if len(val) == 0 {
			return "{}", nil
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			s, err := d.render(val[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, d.renderKey(k)+": "+s)
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	}
	return "", fmt.Errorf("cannot render %T as a config value", v)
}

func (d *Document) renderKey(k string) string {
	if identifierRe.MatchString(k) {
		return k
	}
	return quote(k, d.quote)
}

// detectQuote follows the first string literal in the file, defaulting to
// single quotes.
func (d *Document) detectQuote() byte {
	var q byte = '\''
	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.Type() == "string" {
			if c := n.Content(d.src); len(c) > 0 {
				q = c[0]
			}
			return true
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if walk(n.NamedChild(i)) {
				return true
			}
		}
		return false
	}
	walk(d.root())
	return q
}

func quote(s string, q byte) string {
	var b strings.Builder
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case q:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
