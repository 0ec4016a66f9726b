package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	defaultWebTimeout = 30 * time.Second
	webUserAgent      = "Mozilla/5.0 (compatible; pengy/1.0)"
	maxWebBody        = 10 << 20
)

// WebTool fetches a URL and returns its text. Successful responses are
// cached per URL and outgoing requests are rate limited.
type WebTool struct {
	base
	client   *http.Client
	limiter  *rate.Limiter
	cache    *lru.Cache[string, string]
	maxChars int
}

func NewWebTool(client *http.Client, cfg config.Web) *WebTool {
	if client == nil {
		client = http.DefaultClient
	}
	t := &WebTool{
		base: base{def: Definition{
			Name:        "web",
			Description: "Fetch content from a URL using HTTP/HTTPS. HTML pages are reduced to their text. Useful for reading documentation or other online resources.",
			Parameters: []Parameter{
				{Name: "url", Type: "string", Description: "The URL to fetch. Must be a valid HTTP or HTTPS URL."},
				{Name: "timeout", Type: "integer", Description: "Request timeout in seconds (default: 30)."},
			},
			Required: []string{"url"},
		}},
		client:   client,
		maxChars: cfg.MaxChars,
	}
	if cfg.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.CacheEntries > 0 {
		cache, err := lru.New[string, string](cfg.CacheEntries)
		if err == nil {
			t.cache = cache
		}
	}
	return t
}

func (t *WebTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		URL     string  `json:"url"`
		Timeout flexInt `json:"timeout"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.URL == "" {
		return "", errors.Errorf(errors.KindExecution, "Missing required parameter: url")
	}
	if !strings.HasPrefix(in.URL, "http://") && !strings.HasPrefix(in.URL, "https://") {
		return "", errors.Errorf(errors.KindExecution, "Invalid URL: %s. URL must start with http:// or https://", in.URL)
	}
	if t.cache != nil {
		if cached, ok := t.cache.Get(in.URL); ok {
			logger.Debug("web cache hit", "url", in.URL)
			return cached, nil
		}
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "Failed to fetch URL"))
		}
	}

	timeout := defaultWebTimeout
	if in.Timeout.Set && in.Timeout.Value > 0 {
		timeout = time.Duration(in.Timeout.Value) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := t.fetch(ctx, in.URL)
	if err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "Failed to fetch URL"))
	}
	if t.cache != nil {
		t.cache.Add(in.URL, out)
	}
	return out, nil
}

func (t *WebTool) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", webUserAgent)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP error: %s", resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebBody))
	if err != nil {
		return "", err
	}
	text := string(body)
	if strings.Contains(contentType, "text/html") {
		text = ExtractText(text)
	}
	if t.maxChars > 0 {
		if r := []rune(text); len(r) > t.maxChars {
			text = string(r[:t.maxChars])
		}
	}
	return fmt.Sprintf("Content-Type: %s\n\n%s", contentType, text), nil
}

// ExtractText returns the visible text of an HTML document with script and
// style content dropped, entities decoded and whitespace collapsed.
func ExtractText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}
