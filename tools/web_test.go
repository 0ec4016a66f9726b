package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/m4xw311/pengy/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	doc := `<html><head><style>body{color:red}</style><script>var x = "<b>";</script></head>
<body><h1>Title</h1><p>Fish &amp; chips&nbsp;today</p></body></html>`
	assert.Equal(t, "Title Fish & chips today", ExtractText(doc))
}

func TestWebToolFetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<p>Hello <b>web</b></p>")
		case "/data":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"ok":true}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tool := NewWebTool(srv.Client(), config.Web{MaxChars: 1000, CacheEntries: 8, RequestsPerSecond: 100})
	ctx := context.Background()

	out, err := tool.Execute(ctx, fmt.Sprintf(`{"url":%q}`, srv.URL+"/page"))
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: text/html; charset=utf-8\n\nHello web", out)

	again, err := tool.Execute(ctx, fmt.Sprintf(`{"url":%q}`, srv.URL+"/page"))
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.Equal(t, int32(1), hits.Load())

	out, err = tool.Execute(ctx, fmt.Sprintf(`{"url":%q,"timeout":"5"}`, srv.URL+"/data"))
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: application/json\n\n{\"ok\":true}", out)

	_, err = tool.Execute(ctx, fmt.Sprintf(`{"url":%q}`, srv.URL+"/missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestWebToolValidation(t *testing.T) {
	tool := NewWebTool(nil, config.Web{})
	ctx := context.Background()

	_, err := tool.Execute(ctx, `{"url":"ftp://example.com"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL must start with http:// or https://")

	_, err = tool.Execute(ctx, `{}`)
	assert.Error(t, err)
}

func TestWebToolTruncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "abcdefghij")
	}))
	defer srv.Close()

	tool := NewWebTool(srv.Client(), config.Web{MaxChars: 4})
	out, err := tool.Execute(context.Background(), fmt.Sprintf(`{"url":%q}`, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: text/plain\n\nabcd", out)
}
