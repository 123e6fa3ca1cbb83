// Package dom provides a small mutable document model over goquery.
//
// A Document stands in for the browser page: it can be queried with CSS
// selectors, mutated, observed for child-list changes and receive
// synthetic click events that bubble to ancestors. A Document is not safe
// for concurrent use; callers serialize access (see the engine package).
package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document with listener and observer support.
type Document struct {
	doc *goquery.Document
	url *url.URL

	listeners map[*html.Node][]Listener
	observers []observer
	nextObs   int
}

type observer struct {
	id int
	fn func([]Mutation)
}

// Mutation records a change to the children of Target.
type Mutation struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

// Parse reads an HTML document. baseURL is used to resolve relative links
// and may be empty.
func Parse(r io.Reader, baseURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	d := &Document{
		doc:       doc,
		listeners: make(map[*html.Node][]Listener),
	}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		d.url = u
		doc.Url = u
	}
	return d, nil
}

// ParseString parses HTML from a string.
func ParseString(s, baseURL string) (*Document, error) {
	return Parse(strings.NewReader(s), baseURL)
}

// URL returns the document address, or nil for documents parsed without one.
func (d *Document) URL() *url.URL {
	return d.url
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	if len(d.doc.Nodes) == 0 {
		return nil
	}
	return d.doc.Nodes[0]
}

// Find runs a selector against the whole document. Invalid selectors
// produce an empty selection.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// First returns the first node matching selector, or nil.
func (d *Document) First(selector string) *html.Node {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			if v, ok := Attr(n, "id"); ok && v == id {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root := d.Root(); root != nil {
		walk(root)
	}
	return found
}

// Within wraps n in a selection so callers can run scoped queries.
func Within(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

// CreateElement returns a new detached element.
func (d *Document) CreateElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// AppendChild appends child to parent, detaching it from any previous
// parent first.
func (d *Document) AppendChild(parent, child *html.Node) {
	if parent == nil || child == nil {
		return
	}
	detach(child)
	parent.AppendChild(child)
	d.notify(Mutation{Target: parent, Added: []*html.Node{child}})
}

// InsertAfter inserts n as the next sibling of ref.
func (d *Document) InsertAfter(ref, n *html.Node) {
	if ref == nil || n == nil || ref.Parent == nil {
		return
	}
	detach(n)
	parent := ref.Parent
	parent.InsertBefore(n, ref.NextSibling)
	d.notify(Mutation{Target: parent, Added: []*html.Node{n}})
}

// Remove detaches n from the tree. Listeners registered on n are kept so
// the node can be reinserted.
func (d *Document) Remove(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	parent := n.Parent
	parent.RemoveChild(n)
	d.notify(Mutation{Target: parent, Removed: []*html.Node{n}})
}

// SetText replaces the children of n with a single text node.
func (d *Document) SetText(n *html.Node, text string) {
	if n == nil {
		return
	}
	var removed []*html.Node
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		removed = append(removed, c)
	}
	t := &html.Node{Type: html.TextNode, Data: text}
	n.AppendChild(t)
	d.notify(Mutation{Target: n, Added: []*html.Node{t}, Removed: removed})
}

// MoveChildren moves every child of from (owned by src) to the end of dst,
// in order. Nodes keep their identity and any listeners registered on
// them in src. It returns the number of nodes moved.
func (d *Document) MoveChildren(dst *html.Node, src *Document, from *html.Node) int {
	if dst == nil || from == nil {
		return 0
	}
	var moved []*html.Node
	for c := from.FirstChild; c != nil; c = from.FirstChild {
		from.RemoveChild(c)
		dst.AppendChild(c)
		if src != nil && src != d {
			d.adopt(src, c)
		}
		moved = append(moved, c)
	}
	if len(moved) == 0 {
		return 0
	}
	if src != nil && src != d {
		src.notify(Mutation{Target: from, Removed: moved})
	}
	d.notify(Mutation{Target: dst, Added: moved})
	return len(moved)
}

// adopt transfers listeners for the subtree rooted at n from src.
func (d *Document) adopt(src *Document, n *html.Node) {
	if ls, ok := src.listeners[n]; ok {
		d.listeners[n] = append(d.listeners[n], ls...)
		delete(src.listeners, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.adopt(src, c)
	}
}

// Hide sets an inline display:none on n. Attribute changes are not
// reported to observers.
func (d *Document) Hide(n *html.Node) {
	if n == nil {
		return
	}
	style, _ := Attr(n, "style")
	style = strings.TrimRight(strings.TrimSpace(style), ";")
	if style == "" {
		SetAttr(n, "style", "display: none")
		return
	}
	SetAttr(n, "style", style+"; display: none")
}

// Visible reports whether n would be laid out: neither it nor any ancestor
// is hidden or has an inline display:none.
func (d *Document) Visible(n *html.Node) bool {
	if n == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if _, ok := Attr(cur, "hidden"); ok {
			return false
		}
		if style, ok := Attr(cur, "style"); ok && hidesElement(style) {
			return false
		}
	}
	return true
}

func hidesElement(style string) bool {
	compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(compact, "display:none")
}

// ResolveURL resolves href against the document URL.
func (d *Document) ResolveURL(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parsing href %q: %w", href, err)
	}
	if d.url == nil {
		return ref.String(), nil
	}
	return d.url.ResolveReference(ref).String(), nil
}

// HTML serializes the document.
func (d *Document) HTML() (string, error) {
	root := d.Root()
	if root == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("rendering HTML: %w", err)
	}
	return buf.String(), nil
}

// Observe registers fn for child-list mutations anywhere in the document.
// The returned function unregisters it.
func (d *Document) Observe(fn func([]Mutation)) (cancel func()) {
	id := d.nextObs
	d.nextObs++
	d.observers = append(d.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) notify(m Mutation) {
	if len(d.observers) == 0 {
		return
	}
	batch := []Mutation{m}
	// Copy so observers may unregister while being notified.
	obs := append([]observer(nil), d.observers...)
	for _, o := range obs {
		o.fn(batch)
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Attr returns the value of an attribute on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute on n.
func SetAttr(n *html.Node, key, val string) {
	if n == nil {
		return
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return Within(n).Text()
}
