package merger

import (
	"golang.org/x/net/html"

	"infiniscroll/dom"
	"infiniscroll/sites"
)

// Status labels shown by the indicator.
const (
	LoadingLabel = "Loading next page..."
	EndLabel     = "Reached the end of results"
)

// IndicatorClass marks the inline status element.
const IndicatorClass = "infiniscroll-status"

// Indicator is the inline status message shown while a page loads.
type Indicator struct {
	doc  *dom.Document
	node *html.Node
	done bool
}

// ShowIndicator inserts a loading message into the profile's center column,
// or right after the results region when there is no column. It returns
// an indicator with no element when neither exists.
func ShowIndicator(doc *dom.Document, profile *sites.Profile) *Indicator {
	ind := &Indicator{doc: doc}
	n := doc.CreateElement("div",
		html.Attribute{Key: "class", Val: IndicatorClass},
		html.Attribute{Key: "style", Val: "text-align:center; padding: 20px; color: #666; font-size: 14px;"},
	)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: LoadingLabel})

	if center := doc.First(profile.Center); center != nil {
		doc.AppendChild(center, n)
	} else if results := doc.First(profile.Results); results != nil && results.Parent != nil {
		doc.InsertAfter(results, n)
	} else {
		return ind
	}
	ind.node = n
	return ind
}

// Node returns the indicator element, or nil if it was never inserted.
func (i *Indicator) Node() *html.Node {
	if i == nil {
		return nil
	}
	return i.node
}

// Finish leaves the indicator in place with a terminal label.
func (i *Indicator) Finish(label string) {
	if i == nil || i.node == nil {
		return
	}
	i.doc.SetText(i.node, label)
	i.done = true
}

// Finished reports whether the indicator holds a terminal label.
func (i *Indicator) Finished() bool {
	return i != nil && i.done
}

// Dismiss removes the indicator unless it was finished.
func (i *Indicator) Dismiss() {
	if i == nil || i.node == nil || i.done {
		return
	}
	i.doc.Remove(i.node)
	i.node = nil
}
