// Package fetch owns the HTTP transport used by every external lookup:
// a colly-backed client with user-agent rotation, optional round-robin
// proxies, bounded retries and a typed error taxonomy.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"

	"github.com/eantrace/eantrace/config"
)

// Page is the analyzable result of fetching one URL: plain text with markup,
// scripts and styles stripped, plus the document title.
type Page struct {
	URL        string
	StatusCode int
	Title      string
	Text       string
}

// Client issues all outbound requests. Safe for concurrent use.
type Client struct {
	cfg       *config.Config
	metrics   *Metrics
	transport http.RoundTripper
	proxyFunc colly.ProxyFunc

	agentMu  sync.Mutex
	agentIdx int

	retries int64
}

// NewClient builds a client from cfg. Proxies, when configured, are rotated
// round-robin across requests.
func NewClient(cfg *config.Config, metrics *Metrics) (*Client, error) {
	c := &Client{cfg: cfg, metrics: metrics}
	if len(cfg.Proxies) > 0 {
		pf, err := proxy.RoundRobinProxySwitcher(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("configure proxies: %w", err)
		}
		c.proxyFunc = pf
	}
	return c, nil
}

// WithTransport overrides the HTTP transport. Used by tests to inject a mock
// round tripper; overriding disables the proxy switcher.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.transport = rt
}

// Fetch retrieves a URL and reduces it to plain page text.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	status, body, err := c.get(ctx, rawURL, "page")
	if err != nil {
		return nil, err
	}
	return parsePage(rawURL, status, body)
}

// FetchBytes retrieves a URL and returns the raw response body. Used for
// JSON endpoints and for pages parsed by the caller.
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	_, body, err := c.get(ctx, rawURL, "api")
	return body, err
}

// TotalRetries reports how many retry attempts the client has made.
func (c *Client) TotalRetries() int {
	return int(atomic.LoadInt64(&c.retries))
}

func (c *Client) get(ctx context.Context, rawURL, phase string) (int, []byte, error) {
	var status int
	var body []byte

	policy := Policy{
		MaxAttempts: c.cfg.MaxRetries,
		Backoff:     c.cfg.RetryBackoff,
		BackoffMax:  c.cfg.RetryBackoffMax,
		Retryable:   IsTransient,
		OnRetry: func(attempt int, err error) {
			atomic.AddInt64(&c.retries, 1)
			c.metrics.IncRetries()
			slog.Debug("retrying request",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
		},
	}

	err := policy.Do(ctx, func() error {
		s, b, doErr := c.do(ctx, rawURL, phase)
		status, body = s, b
		return doErr
	})
	return status, body, err
}

// do issues a single request attempt on a fresh collector. Each attempt
// rotates the user agent and, when configured, the proxy.
func (c *Client) do(ctx context.Context, rawURL, phase string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	col := c.newCollector()

	var status int
	var body []byte
	var reqErr error

	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", c.nextUserAgent())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", acceptLanguage(c.cfg.Lang))
		r.Headers.Set("Referer", "https://www.google.com/")
	})
	col.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	col.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	c.metrics.IncRequest(phase)
	start := time.Now()
	visitErr := col.Visit(rawURL)
	col.Wait()
	c.metrics.ObserveDuration(time.Since(start))

	if reqErr == nil {
		reqErr = visitErr
	}
	if reqErr != nil {
		classified := Classify(reqErr, status)
		c.metrics.IncError(errorTypeLabel(classified))
		return status, nil, classified
	}
	return status, body, nil
}

func (c *Client) newCollector() *colly.Collector {
	col := colly.NewCollector(colly.AllowURLRevisit())
	col.IgnoreRobotsTxt = true
	col.SetRequestTimeout(c.cfg.Timeout)

	if c.transport != nil {
		col.WithTransport(c.transport)
		return col
	}

	col.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   c.cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	if c.proxyFunc != nil {
		col.SetProxyFunc(c.proxyFunc)
	}
	return col
}

func (c *Client) nextUserAgent() string {
	agents := c.cfg.UserAgents
	if len(agents) == 0 {
		return "eantrace/1.0"
	}
	c.agentMu.Lock()
	defer c.agentMu.Unlock()
	ua := agents[c.agentIdx%len(agents)]
	c.agentIdx++
	return ua
}

func acceptLanguage(lang string) string {
	switch lang {
	case "", "es":
		return "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3"
	default:
		return fmt.Sprintf("%s;q=0.9,en;q=0.5", lang)
	}
}

// parsePage strips scripts, styles and markup; the remaining text keeps one
// phrase per line, mirroring what the analyzers expect.
func parsePage(rawURL string, status int, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	return &Page{
		URL:        rawURL,
		StatusCode: status,
		Title:      title,
		Text:       collapseText(doc.Text()),
	}, nil
}

// collapseText trims every line, splits run-on phrases at double spaces and
// drops blanks.
func collapseText(text string) string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				chunks = append(chunks, p)
			}
		}
	}
	return strings.Join(chunks, "\n")
}
