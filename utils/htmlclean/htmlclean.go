// Package htmlclean normalizes model-written HTML fragments before they are
// stored and later rendered by the web client.
package htmlclean

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// dropped with everything inside them
var blockedTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true, "embed": true,
	"form": true, "input": true, "button": true, "textarea": true, "select": true,
	"link": true, "meta": true, "base": true, "svg": true, "math": true,
	"head": true, "title": true, "noscript": true,
}

// kept as-is; any other element is unwrapped and its children kept
var allowedTags = map[string]bool{
	"div": true, "p": true, "br": true, "hr": true, "span": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"u": true, "strong": true, "b": true, "em": true, "i": true, "sub": true, "sup": true,
	"ul": true, "ol": true, "li": true,
	"code": true, "pre": true, "blockquote": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
	"a": true,
}

var allowedAttrs = map[string]bool{
	"href": true, "title": true, "colspan": true, "rowspan": true,
}

// Sanitize returns fragment as a single <div> block with unsafe elements and
// attributes removed. Text content is preserved.
func Sanitize(fragment string) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "<div><p>" + html.EscapeString(fragment) + "</p></div>"
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	sanitizeChildren(root)

	target := root
	if only := singleElementChild(root); only != nil && only.Data == "div" {
		target = only
		target.Parent.RemoveChild(target)
	}

	var b strings.Builder
	if err := html.Render(&b, target); err != nil {
		return "<div><p>" + html.EscapeString(fragment) + "</p></div>"
	}
	return b.String()
}

func sanitizeChildren(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling

		switch c.Type {
		case html.CommentNode, html.DoctypeNode:
			parent.RemoveChild(c)
		case html.ElementNode:
			tag := strings.ToLower(c.Data)
			switch {
			case blockedTags[tag]:
				parent.RemoveChild(c)
			case allowedTags[tag]:
				c.Attr = cleanAttrs(c.Attr)
				sanitizeChildren(c)
			default:
				sanitizeChildren(c)
				for gc := c.FirstChild; gc != nil; {
					gnext := gc.NextSibling
					c.RemoveChild(gc)
					parent.InsertBefore(gc, c)
					gc = gnext
				}
				parent.RemoveChild(c)
			}
		}

		c = next
	}
}

func cleanAttrs(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if !allowedAttrs[key] {
			continue
		}
		if key == "href" && !safeURL(a.Val) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func safeURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return !strings.HasPrefix(v, "javascript:") && !strings.HasPrefix(v, "data:") && !strings.HasPrefix(v, "vbscript:")
}

// singleElementChild returns n's only element child when every other child
// is whitespace text.
func singleElementChild(n *html.Node) *html.Node {
	var found *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		case html.ElementNode:
			if found != nil {
				return nil
			}
			found = c
		default:
			return nil
		}
	}
	return found
}
