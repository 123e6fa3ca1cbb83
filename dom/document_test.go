package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const page = `<!DOCTYPE html>
<html><body>
<div id="center_col">
  <div id="rso"><div class="g" id="r1">one</div><div class="g" id="r2">two</div></div>
</div>
<div id="hidden-wrap" style="color: red; display:none"><a id="inner" href="/x">x</a></div>
<a id="pnnext" href="/search?q=go&amp;start=10">Next</a>
</body></html>`

func mustParse(t *testing.T, s, base string) *Document {
	t.Helper()
	d, err := ParseString(s, base)
	require.NoError(t, err)
	return d
}

func TestQueries(t *testing.T) {
	d := mustParse(t, page, "https://www.google.com/search?q=go")

	assert.NotNil(t, d.ByID("rso"))
	assert.Nil(t, d.ByID("missing"))
	assert.Equal(t, 2, d.Find("#rso .g").Length())
	assert.Nil(t, d.First("#nope"))
	assert.Nil(t, d.First("[[invalid"))

	next := d.First("#pnnext")
	require.NotNil(t, next)
	href, ok := Attr(next, "href")
	require.True(t, ok)
	abs, err := d.ResolveURL(href)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/search?q=go&start=10", abs)
}

func TestVisibleAndHide(t *testing.T) {
	d := mustParse(t, page, "")

	assert.False(t, d.Visible(d.ByID("inner")), "ancestor display:none hides the link")
	assert.True(t, d.Visible(d.ByID("r1")))
	assert.False(t, d.Visible(nil))

	r1 := d.ByID("r1")
	d.Hide(r1)
	assert.False(t, d.Visible(r1))
	style, _ := Attr(r1, "style")
	assert.Equal(t, "display: none", style)

	wrap := d.ByID("hidden-wrap")
	d.Hide(wrap)
	style, _ = Attr(wrap, "style")
	assert.Equal(t, "color: red; display:none; display: none", style)
}

func TestMoveChildrenPreservesIdentityAndOrder(t *testing.T) {
	live := mustParse(t, page, "")
	fetched := mustParse(t, `<div id="rso"><div class="g" id="r3">three</div><div class="g" id="r4">four</div></div>`, "")

	r3 := fetched.ByID("r3")
	clicked := 0
	fetched.AddEventListener(r3, func(*Event) { clicked++ })

	var mutations []Mutation
	live.Observe(func(ms []Mutation) { mutations = append(mutations, ms...) })

	moved := live.MoveChildren(live.ByID("rso"), fetched, fetched.ByID("rso"))
	assert.Equal(t, 2, moved)

	var ids []string
	for c := live.ByID("rso").FirstChild; c != nil; c = c.NextSibling {
		id, _ := Attr(c, "id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids)
	assert.Same(t, r3, live.ByID("r3"))
	assert.Nil(t, fetched.ByID("rso").FirstChild)

	live.Click(r3)
	assert.Equal(t, 1, clicked, "listener travels with the node")
	assert.Equal(t, 0, fetched.Listeners(r3))

	require.Len(t, mutations, 1)
	assert.Len(t, mutations[0].Added, 2)
}

func TestObserversSeeChildListOnly(t *testing.T) {
	d := mustParse(t, page, "")
	count := 0
	cancel := d.Observe(func([]Mutation) { count++ })

	SetAttr(d.ByID("r1"), "target", "_blank")
	d.Hide(d.ByID("r2"))
	assert.Equal(t, 0, count)

	div := d.CreateElement("div")
	d.AppendChild(d.ByID("rso"), div)
	d.SetText(div, "hello")
	d.Remove(div)
	assert.Equal(t, 3, count)

	cancel()
	d.AppendChild(d.ByID("rso"), div)
	assert.Equal(t, 3, count)
}

func TestInsertAfter(t *testing.T) {
	d := mustParse(t, page, "")
	marker := d.CreateElement("p", html.Attribute{Key: "id", Val: "m"})
	d.InsertAfter(d.ByID("r1"), marker)
	assert.Same(t, marker, d.ByID("r1").NextSibling)

	// Nothing happens for detached references.
	d.InsertAfter(d.CreateElement("div"), d.CreateElement("div"))
}

func TestClickBubblesUntilStopped(t *testing.T) {
	d := mustParse(t, page, "")
	var order []string
	d.AddEventListener(d.ByID("rso"), func(*Event) { order = append(order, "rso") })
	d.AddEventListener(d.ByID("center_col"), func(*Event) { order = append(order, "center") })

	d.Click(d.ByID("r1"))
	assert.Equal(t, []string{"rso", "center"}, order)

	order = nil
	d.AddEventListener(d.ByID("r1"), func(e *Event) { e.StopPropagation() })
	ev := d.Click(d.ByID("r1"))
	assert.True(t, ev.Stopped())
	assert.Empty(t, order)
}

func TestHTMLRoundTrip(t *testing.T) {
	d := mustParse(t, page, "")
	d.SetText(d.ByID("r1"), "uno")
	out, err := d.HTML()
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `<div class="g" id="r1">uno</div>`))
	assert.Equal(t, "uno", Text(d.ByID("r1")))
}
