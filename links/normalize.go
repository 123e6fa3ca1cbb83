// Package links makes outbound search result links open in isolated tabs.
package links

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"infiniscroll/dom"
	"infiniscroll/sites"
)

// Normalizer rewrites result links in place.
type Normalizer struct {
	profile *sites.Profile
	log     *zap.Logger
}

// New returns a normalizer for pages laid out like profile.
func New(profile *sites.Profile, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{profile: profile, log: log}
}

// Run marks every unmarked outbound link in the document's link scopes to
// open in a new tab without an opener, and stops its clicks from reaching
// ancestor handlers. Already marked links no longer match, so Run can be
// repeated freely.
func (n *Normalizer) Run(doc *dom.Document) {
	if doc == nil || len(n.profile.LinkScopes) == 0 {
		return
	}

	count := 0
	doc.Find(n.profile.LinkSelector()).Each(func(_ int, s *goquery.Selection) {
		a := s.Nodes[0]
		if !n.eligible(a) {
			return
		}
		dom.SetAttr(a, "target", "_blank")
		dom.SetAttr(a, "rel", "noopener noreferrer")
		doc.AddEventListener(a, func(e *dom.Event) { e.StopPropagation() })
		count++
	})

	if count > 0 {
		n.log.Debug("normalized links", zap.Int("count", count))
	}
}

func (n *Normalizer) eligible(a *html.Node) bool {
	href, ok := dom.Attr(a, "href")
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	if marker := n.profile.PaginationIDMarker; marker != "" {
		if id, _ := dom.Attr(a, "id"); strings.Contains(id, marker) {
			return false
		}
	}
	return true
}
