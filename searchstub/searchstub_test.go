package searchstub

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, srv *httptest.Server, path string) string {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPages(t *testing.T) {
	srv := httptest.NewServer(Handler(Options{Pages: 2, PerPage: 3}))
	defer srv.Close()

	first := get(t, srv, "/search?q=go")
	assert.Equal(t, 3, strings.Count(first, `class="g"`))
	assert.Contains(t, first, `id="pnnext" href="/search?q=go&amp;start=3"`)

	last := get(t, srv, "/search?q=go&start=3")
	assert.Contains(t, last, `id="r6"`)
	assert.NotContains(t, last, "pnnext")
	assert.Contains(t, last, `role="navigation"`)

	past := get(t, srv, "/search?q=go&start=30")
	assert.NotContains(t, past, `id="rso"`)
}
