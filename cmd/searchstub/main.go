// Searchstub serves a local paginated results site for trying infiniscroll
// without hitting a real search engine.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"infiniscroll/searchstub"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8089", "listen address")
	pages := flag.Int("pages", 5, "number of result pages")
	perPage := flag.Int("per-page", 10, "results per page")
	flag.Parse()

	fmt.Fprintf(os.Stderr, "serving %d pages on http://%s/search?q=test\n", *pages, *addr)
	handler := searchstub.Handler(searchstub.Options{Pages: *pages, PerPage: *perPage})
	if err := http.ListenAndServe(*addr, handler); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
