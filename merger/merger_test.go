package merger

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"infiniscroll/dom"
	"infiniscroll/pagination"
	"infiniscroll/sites"
)

const base = "https://www.google.com/search?q=go"

func livePage(t *testing.T) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(`<html><body>
<div id="center_col"><div id="rso"><div class="g" id="p1a">1a</div><div class="g" id="p1b">1b</div></div></div>
<div role="navigation"><table id="nav"><tr><td><a id="pnnext" href="/search?q=go&amp;start=10">Next</a></td></tr></table></div>
</body></html>`, base)
	require.NoError(t, err)
	return d
}

func fetchedPage(t *testing.T, url string, ids []string, next string) *dom.Document {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<html><body><div id="center_col"><div id="rso">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="g" id="%s">%s</div>`, id, id)
	}
	b.WriteString(`</div></div>`)
	if next != "" {
		fmt.Fprintf(&b, `<div role="navigation"><table><tr><td><a id="pnnext" href="%s">Next</a></td></tr></table></div>`, next)
	}
	b.WriteString(`</body></html>`)
	d, err := dom.ParseString(b.String(), url)
	require.NoError(t, err)
	return d
}

// entries lists the live results region as ids, with separators rendered
// as "|<label>".
func entries(d *dom.Document) []string {
	var out []string
	for c := d.ByID("rso").FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if page, ok := dom.Attr(c, "data-page"); ok {
			out = append(out, "|"+page)
			continue
		}
		id, _ := dom.Attr(c, "id")
		out = append(out, id)
	}
	return out
}

func TestMergeAppendsInOrderAndAdvancesPointer(t *testing.T) {
	live := livePage(t)
	st := pagination.NewState(live, sites.Google())
	m := New(sites.Google(), nil)

	url1, _ := st.Next()
	p1 := fetchedPage(t, url1, []string{"p2a", "p2b"}, "/search?q=go&start=20")
	moved := p1.ByID("p2a")
	res := m.Merge(live, p1, url1, st, nil)

	assert.Equal(t, Continued, res.Outcome)
	assert.Equal(t, "2", res.Page)
	assert.Equal(t, 2, res.Moved)
	assert.Equal(t, "https://www.google.com/search?q=go&start=20", res.Next)
	assert.Same(t, moved, live.ByID("p2a"), "nodes are moved, not copied")

	next, ok := st.Next()
	require.True(t, ok)
	assert.Equal(t, res.Next, next)
	href, _ := dom.Attr(live.ByID("pnnext"), "href")
	assert.Equal(t, res.Next, href, "live next link follows the pointer")

	p2 := fetchedPage(t, next, []string{"p3a"}, "/search?q=go&start=30")
	m.Merge(live, p2, next, st, nil)

	assert.Equal(t, []string{"p1a", "p1b", "|2", "p2a", "p2b", "|3", "p3a"}, entries(live))
	assert.Equal(t, 1, live.Find("#rso").Length())
	sep := live.Find("." + SeparatorClass).First()
	assert.Equal(t, "--- page 2 ---", sep.Text())
}

func TestMergeLastPageExhausts(t *testing.T) {
	live := livePage(t)
	profile := sites.Google()
	st := pagination.NewState(live, profile)
	ind := ShowIndicator(live, profile)
	require.NotNil(t, ind.Node())

	url := "https://www.google.com/search?q=go&start=20"
	res := New(profile, nil).Merge(live, fetchedPage(t, url, []string{"p3a"}, ""), url, st, ind)

	assert.Equal(t, Exhausted, res.Outcome)
	assert.True(t, st.Exhausted())
	assert.False(t, live.Visible(live.ByID("nav")), "navigation is hidden")

	assert.True(t, ind.Finished())
	ind.Dismiss()
	assert.Equal(t, EndLabel, dom.Text(live.First("."+IndicatorClass)), "terminal label stays")
}

func TestMergeWithoutState(t *testing.T) {
	profile := sites.Google()
	m := New(profile, nil)

	live := livePage(t)
	url := base + "&start=10"
	res := m.Merge(live, fetchedPage(t, url, []string{"p2a"}, "/search?q=go&start=20"), url, nil, nil)
	assert.Equal(t, Continued, res.Outcome)
	assert.Equal(t, "https://www.google.com/search?q=go&start=20", res.Next)

	live = livePage(t)
	res = m.Merge(live, fetchedPage(t, url, []string{"p2a"}, ""), url, nil, nil)
	assert.Equal(t, Exhausted, res.Outcome)
	assert.Equal(t, []string{"p1a", "p1b", "|2", "p2a"}, entries(live))
}

func TestMergeMissingRegionsIsNoop(t *testing.T) {
	profile := sites.Google()
	m := New(profile, nil)

	live := livePage(t)
	st := pagination.NewState(live, profile)
	before, err := live.HTML()
	require.NoError(t, err)

	empty, err := dom.ParseString(`<html><body><p>Did you mean</p></body></html>`, base)
	require.NoError(t, err)
	res := m.Merge(live, empty, base+"&start=10", st, nil)
	assert.Equal(t, NoContent, res.Outcome)

	after, err := live.HTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, ok := st.Next()
	assert.True(t, ok, "pointer untouched")

	bare, err := dom.ParseString(`<html><body></body></html>`, base)
	require.NoError(t, err)
	res = m.Merge(bare, fetchedPage(t, base, []string{"x"}, ""), base, st, nil)
	assert.Equal(t, NoContent, res.Outcome)
	assert.Equal(t, NoContent, m.Merge(nil, nil, "", st, nil).Outcome)
}

func TestPageLabel(t *testing.T) {
	g := sites.Google()
	tests := map[string]string{
		base + "&start=10": "2",
		base + "&start=20": "3",
		base + "&start=0":  "1",
		base + "&start=15": "2",
		base:               "next",
		base + "&start=ab": "next",
		"%zz":              "next",
	}
	for url, want := range tests {
		assert.Equal(t, want, PageLabel(url, g), url)
	}
}

func TestIndicatorPlacement(t *testing.T) {
	profile := sites.Google()

	noCenter, err := dom.ParseString(`<html><body><div id="wrap"><div id="rso"></div></div></body></html>`, "")
	require.NoError(t, err)
	ind := ShowIndicator(noCenter, profile)
	require.NotNil(t, ind.Node())
	assert.Same(t, ind.Node(), noCenter.ByID("rso").NextSibling)
	ind.Dismiss()
	assert.Nil(t, noCenter.ByID("rso").NextSibling)

	nothing, err := dom.ParseString(`<html><body></body></html>`, "")
	require.NoError(t, err)
	ind = ShowIndicator(nothing, profile)
	assert.Nil(t, ind.Node())
	ind.Finish(EndLabel)
	ind.Dismiss()

	var nilInd *Indicator
	nilInd.Finish(EndLabel)
	nilInd.Dismiss()
	assert.False(t, nilInd.Finished())
}
