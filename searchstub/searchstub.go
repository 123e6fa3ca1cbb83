// Package searchstub serves a small paginated search results site laid
// out like classic Google results. It backs end-to-end tests and the
// searchstub command.
package searchstub

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
)

// Options sizes the stub result set.
type Options struct {
	Pages   int // number of result pages
	PerPage int // entries per page
}

type entry struct {
	ID    string
	Title string
	URL   string
}

type pageData struct {
	Query   string
	Page    int
	Entries []entry
	Next    string
	Numbers []int
	Empty   bool
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><title>{{.Query}} - Search</title></head>
<body>
<div id="search">
<div id="center_col">
{{- if .Empty}}
<p>Your search did not match any documents.</p>
{{- else}}
<div id="rso">
{{- range .Entries}}
<div class="g" id="{{.ID}}"><a href="{{.URL}}"><h3>{{.Title}}</h3></a></div>
{{- end}}
</div>
{{- end}}
</div>
</div>
{{- if .Numbers}}
<div role="navigation"><table><tr>
{{- range .Numbers}}<td>{{.}}</td>{{end}}
{{- if .Next}}<td><a id="pnnext" href="{{.Next}}">Next</a></td>{{end}}
</tr></table></div>
{{- end}}
</body></html>`))

// Handler returns the stub site. Pages are addressed as
// /search?q=<query>&start=<offset>.
func Handler(opts Options) http.Handler {
	if opts.Pages <= 0 {
		opts.Pages = 3
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		start, err := strconv.Atoi(r.URL.Query().Get("start"))
		if err != nil || start < 0 {
			start = 0
		}

		data := pageData{Query: q, Page: start/opts.PerPage + 1}
		total := opts.Pages * opts.PerPage
		if start >= total {
			data.Empty = true
		} else {
			for i := start; i < start+opts.PerPage && i < total; i++ {
				data.Entries = append(data.Entries, entry{
					ID:    fmt.Sprintf("r%d", i+1),
					Title: fmt.Sprintf("Result %d for %s", i+1, q),
					URL:   fmt.Sprintf("https://example.com/%d", i+1),
				})
			}
			for n := 1; n <= opts.Pages; n++ {
				data.Numbers = append(data.Numbers, n)
			}
			if next := start + opts.PerPage; next < total {
				v := url.Values{"q": {q}, "start": {strconv.Itoa(next)}}
				data.Next = "/search?" + v.Encode()
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTmpl.Execute(w, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return mux
}
