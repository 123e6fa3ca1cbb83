// Probe fetches search result pages and reports what the scroll engine
// would see on each: the matching site profile, result entries, the
// next-page pointer and how many links would be rewritten.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"infiniscroll/dom"
	"infiniscroll/fetcher"
	"infiniscroll/merger"
	"infiniscroll/pagination"
	"infiniscroll/sites"
)

var defaultURLs = []string{
	"https://www.google.com/search?q=golang",
	"https://www.google.com/search?q=golang&start=10",
	"https://www.google.co.uk/search?q=goquery",
}

func main() {
	browser := flag.Bool("browser", false, "render pages in headless Chrome")
	host := flag.String("host", "", "treat HOST as a Google-style results site")
	flag.Parse()

	if *host != "" {
		p := sites.Google()
		p.Name = *host
		p.Hosts = []string{*host}
		sites.Register(p)
	}

	opts := fetcher.DefaultOptions()
	opts.UseBrowser = *browser
	f := fetcher.New(opts)

	urls := flag.Args()
	if len(urls) == 0 {
		urls = defaultURLs
	}

	failed := false
	for i, u := range urls {
		if i > 0 {
			fmt.Println(strings.Repeat("=", 80))
		}
		if !probe(context.Background(), f, u) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func probe(ctx context.Context, f fetcher.PageFetcher, u string) bool {
	fmt.Printf("Probing: %s\n", u)

	profile := sites.ForURL(u)
	if profile == nil {
		fmt.Printf("  no site profile (known: %s)\n", strings.Join(sites.Profiles(), ", "))
		return false
	}
	fmt.Printf("  Profile: %s, page %s\n", profile.Name, merger.PageLabel(u, profile))

	doc, err := f.Page(ctx, u)
	if err != nil {
		fmt.Printf("  ERROR: %v\n", err)
		return false
	}

	results := doc.First(profile.Results)
	if results == nil {
		fmt.Printf("  Results: none (%s missing)\n", profile.Results)
	} else {
		n := 0
		for c := results.FirstChild; c != nil; c = c.NextSibling {
			n++
		}
		fmt.Printf("  Results: %d child nodes in %s\n", n, profile.Results)
	}

	st := pagination.NewState(doc, profile)
	if next, ok := st.Next(); ok {
		fmt.Printf("  Next: %s\n", truncate(next, 70))
	} else {
		fmt.Printf("  Next: none\n")
	}
	fmt.Printf("  Navigation: %v\n", doc.First(profile.Navigation) != nil)

	links := doc.Find(profile.LinkSelector())
	fmt.Printf("  Scoped links: %d\n", links.Length())
	for i, n := range links.Nodes {
		if i >= 5 {
			fmt.Printf("    ... and %d more\n", len(links.Nodes)-5)
			break
		}
		href, _ := dom.Attr(n, "href")
		fmt.Printf("    %s\n", truncate(href, 70))
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
