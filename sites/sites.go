// Package sites describes the host search pages the engine can attach to.
// A Profile names the structural identifiers the engine relies on in a
// host page; every one of them may be missing at runtime.
package sites

import (
	"net/url"
	"strings"
	"sync"
)

// Profile is a versioned description of a search results page layout.
type Profile struct {
	Name string

	// Hosts lists exact host names served by this layout.
	Hosts []string
	// PathPrefix restricts matching to result pages, e.g. "/search".
	PathPrefix string

	Results    string // results region holding ranked entries
	NextLink   string // native next-page link
	Center     string // column the status indicator is placed in
	Navigation string // pagination navigation block

	// LinkScopes are the regions whose outbound links open in new tabs.
	LinkScopes []string
	// PaginationIDMarker excludes links whose id contains it.
	PaginationIDMarker string

	// MoreCandidates selects elements that may be a "load more" control;
	// MoreLabels is matched against their text.
	MoreCandidates string
	MoreLabels     []string

	OffsetParam string
	PageSize    int
}

// Matches reports whether rawURL is a results page for this profile.
func (p *Profile) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !strings.HasPrefix(u.Path, p.PathPrefix) {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range p.Hosts {
		if host == h {
			return true
		}
	}
	return false
}

// LinkSelector returns the combined selector for links that still need
// to be normalized.
func (p *Profile) LinkSelector() string {
	parts := make([]string, 0, len(p.LinkScopes))
	for _, scope := range p.LinkScopes {
		parts = append(parts, scope+` a[href^="http"]:not([target="_blank"])`)
	}
	return strings.Join(parts, ", ")
}

// Google returns the profile for classic Google web search.
func Google() *Profile {
	return &Profile{
		Name: "google",
		Hosts: []string{
			"www.google.com",
			"www.google.com.hk",
			"www.google.co.jp",
			"www.google.co.uk",
			"www.google.cn",
		},
		PathPrefix:         "/search",
		Results:            "#rso",
		NextLink:           "#pnnext",
		Center:             "#center_col",
		Navigation:         `[role="navigation"] table`,
		LinkScopes:         []string{"#search", "#rso", "#tads", "#bottomads", ".g"},
		PaginationIDMarker: "pn",
		MoreCandidates:     `a, div[role="button"]`,
		MoreLabels:         []string{"More results", "更多结果"},
		OffsetParam:        "start",
		PageSize:           10,
	}
}

var (
	profiles = []*Profile{Google()}
	mu       sync.RWMutex
)

// Register adds a profile to the registry.
// Profiles are checked in registration order.
func Register(p *Profile) {
	mu.Lock()
	defer mu.Unlock()
	profiles = append(profiles, p)
}

// ForURL returns the first profile matching rawURL, or nil.
func ForURL(rawURL string) *Profile {
	mu.RLock()
	defer mu.RUnlock()

	for _, p := range profiles {
		if p.Matches(rawURL) {
			return p
		}
	}
	return nil
}

// Matches returns true if any registered profile matches rawURL.
func Matches(rawURL string) bool {
	return ForURL(rawURL) != nil
}

// Profiles returns the names of all registered profiles.
func Profiles() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}
