// Package pagination tracks the next results page and guards fetches.
package pagination

import (
	"infiniscroll/dom"
	"infiniscroll/sites"
)

// State holds the pagination pointer: the URL of the next results page.
// Once exhausted it never accepts a new pointer.
type State struct {
	next      string
	exhausted bool
}

// NewState initializes the pointer from the document's native next-page
// link, resolved to an absolute URL. A document without one starts with
// no pointer.
func NewState(doc *dom.Document, profile *sites.Profile) *State {
	s := &State{}
	if doc == nil || profile == nil || profile.NextLink == "" {
		return s
	}
	href, ok := dom.Attr(doc.First(profile.NextLink), "href")
	if !ok || href == "" {
		return s
	}
	if abs, err := doc.ResolveURL(href); err == nil {
		s.next = abs
	}
	return s
}

// Next returns the next fetch target.
func (s *State) Next() (string, bool) {
	if s.exhausted || s.next == "" {
		return "", false
	}
	return s.next, true
}

// Set replaces the pointer after a successful merge.
func (s *State) Set(url string) {
	if s.exhausted {
		return
	}
	s.next = url
}

// Exhaust clears the pointer permanently.
func (s *State) Exhaust() {
	s.next = ""
	s.exhausted = true
}

// Exhausted reports whether pagination reached its terminal state.
func (s *State) Exhausted() bool {
	return s.exhausted
}
