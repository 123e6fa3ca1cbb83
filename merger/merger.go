// Package merger splices a fetched results page into the live document.
package merger

import (
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"infiniscroll/dom"
	"infiniscroll/pagination"
	"infiniscroll/sites"
)

// SeparatorClass marks separators inserted between merged pages.
const SeparatorClass = "infiniscroll-separator"

// placeholderPage labels pages whose URL carries no usable offset.
const placeholderPage = "next"

// Outcome classifies a merge.
type Outcome int

const (
	// NoContent means one of the results regions was missing.
	NoContent Outcome = iota
	// Continued means results were merged and another page exists.
	Continued
	// Exhausted means results were merged and this was the last page.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Continued:
		return "continued"
	case Exhausted:
		return "exhausted"
	default:
		return "no-content"
	}
}

// Result describes a merge.
type Result struct {
	Outcome Outcome
	Page    string // separator label
	Moved   int    // nodes moved into the live results region
	Next    string // new pagination pointer, empty when exhausted
}

// Merger reconciles fetched pages into a live document.
type Merger struct {
	profile *sites.Profile
	log     *zap.Logger
}

// New returns a merger for pages laid out like profile.
func New(profile *sites.Profile, log *zap.Logger) *Merger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merger{profile: profile, log: log}
}

// Merge appends a separator and every child of the fetched results region
// to the live results region, then advances or exhausts st. Missing regions
// make it a no-op. st and ind may be nil.
func (m *Merger) Merge(live, fetched *dom.Document, fetchURL string, st *pagination.State, ind *Indicator) Result {
	if live == nil || fetched == nil {
		return Result{Outcome: NoContent}
	}
	dst := live.First(m.profile.Results)
	src := fetched.First(m.profile.Results)
	if dst == nil || src == nil {
		m.log.Debug("nothing to merge",
			zap.String("url", fetchURL),
			zap.Bool("live_region", dst != nil),
			zap.Bool("fetched_region", src != nil))
		return Result{Outcome: NoContent}
	}

	label := PageLabel(fetchURL, m.profile)
	live.AppendChild(dst, m.separator(live, label))
	moved := live.MoveChildren(dst, fetched, src)

	res := Result{Page: label, Moved: moved}
	if next, ok := m.nextPointer(fetched); ok {
		if st != nil {
			st.Set(next)
		}
		if link := live.First(m.profile.NextLink); link != nil {
			dom.SetAttr(link, "href", next)
		}
		res.Outcome = Continued
		res.Next = next
		return res
	}

	if st != nil {
		st.Exhaust()
	}
	if nav := live.First(m.profile.Navigation); nav != nil {
		live.Hide(nav)
	}
	ind.Finish(EndLabel)
	res.Outcome = Exhausted
	return res
}

func (m *Merger) separator(doc *dom.Document, label string) *html.Node {
	n := doc.CreateElement("div",
		html.Attribute{Key: "class", Val: SeparatorClass},
		html.Attribute{Key: "data-page", Val: label},
		html.Attribute{Key: "style", Val: "border-bottom: 1px dashed #dfe1e5; margin: 20px 0; text-align: center; color: #888; font-size: 12px;"},
	)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: fmt.Sprintf("--- page %s ---", label)})
	return n
}

// nextPointer returns the fetched document's next-page URL made absolute.
func (m *Merger) nextPointer(fetched *dom.Document) (string, bool) {
	href, ok := dom.Attr(fetched.First(m.profile.NextLink), "href")
	if !ok || href == "" {
		return "", false
	}
	abs, err := fetched.ResolveURL(href)
	if err != nil {
		m.log.Debug("unusable next link", zap.String("href", href), zap.Error(err))
		return "", false
	}
	return abs, true
}

// PageLabel derives the logical page number of fetchURL from its offset
// parameter: offset/pageSize + 1. URLs without a numeric offset get a
// placeholder label.
func PageLabel(fetchURL string, profile *sites.Profile) string {
	u, err := url.Parse(fetchURL)
	if err != nil || profile.OffsetParam == "" {
		return placeholderPage
	}
	raw := u.Query().Get(profile.OffsetParam)
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return placeholderPage
	}
	size := profile.PageSize
	if size <= 0 {
		size = 10
	}
	return strconv.Itoa(offset/size + 1)
}
