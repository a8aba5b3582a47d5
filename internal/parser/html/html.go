// Package html reads the metadata an export needs from an HTML document:
// its title and the elements it can capture.
package html

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
}

// Parse parses HTML from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse html")
	}
	return &Document{root: root}, nil
}

// ParseString parses HTML from a string.
func ParseString(content string) (*Document, error) {
	return Parse(strings.NewReader(content))
}

// Title returns the whitespace-normalized text of the first <title>, or "".
func (d *Document) Title() string {
	n := find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Title
	})
	if n == nil {
		return ""
	}
	return normalizeSpace(textOf(n))
}

// Element is an element found in a document.
type Element struct {
	node *html.Node
}

// Tag returns the element name.
func (e Element) Tag() string { return e.node.Data }

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// Text returns the whitespace-normalized text content of the element.
func (e Element) Text() string { return normalizeSpace(textOf(e.node)) }

// Images returns the src of every <img> inside the element.
func (e Element) Images() []string {
	var srcs []string
	walk(e.node, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			if src, ok := (Element{n}).Attr("src"); ok && src != "" {
				srcs = append(srcs, src)
			}
		}
	})
	return srcs
}

// ElementByID returns the element whose id attribute equals id.
func (d *Document) ElementByID(id string) (Element, bool) {
	n := find(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := (Element{n}).Attr("id")
		return ok && v == id
	})
	if n == nil {
		return Element{}, false
	}
	return Element{n}, true
}

// IDs lists the id of every element in document order.
func (d *Document) IDs() []string {
	var ids []string
	walk(d.root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if v, ok := (Element{n}).Attr("id"); ok && v != "" {
			ids = append(ids, v)
		}
	})
	return ids
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, match); m != nil {
			return m
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
