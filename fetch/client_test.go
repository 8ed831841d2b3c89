package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/eantrace/eantrace/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 1
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, transport *httpmock.MockTransport) *Client {
	t.Helper()
	client, err := NewClient(testConfig(), NewMetrics())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.WithTransport(transport)
	return client
}

func TestFetchStripsMarkup(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/page", htmlResponder(`
		<html>
			<head><title>Producto Retro</title><style>body { color: red }</style></head>
			<body>
				<script>var tracking = 1;</script>
				<h1>Producto Retro</h1>
				<p>EAN 12345678 descatalogado</p>
			</body>
		</html>`))

	client := newTestClient(t, transport)
	page, err := client.Fetch(context.Background(), "http://example.test/page")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if page.Title != "Producto Retro" {
		t.Fatalf("title = %q, want %q", page.Title, "Producto Retro")
	}
	if !strings.Contains(page.Text, "EAN 12345678 descatalogado") {
		t.Fatalf("text lost the body content: %q", page.Text)
	}
	if strings.Contains(page.Text, "tracking") || strings.Contains(page.Text, "color: red") {
		t.Fatalf("script/style content leaked into text: %q", page.Text)
	}
	if strings.Contains(page.Text, "<") {
		t.Fatalf("markup leaked into text: %q", page.Text)
	}
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: 403, expected: "forbidden"},
		{status: 404, expected: "not_found"},
		{status: 429, expected: "rate_limited"},
		{status: 500, expected: "http_status"},
	}

	for _, tt := range tests {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", "http://example.test/err",
			httpmock.NewStringResponder(tt.status, ""))

		client := newTestClient(t, transport)
		_, err := client.Fetch(context.Background(), "http://example.test/err")
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if got := errorTypeLabel(err); got != tt.expected {
			t.Fatalf("status %d: error label = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestFetchBytesReturnsRawBody(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/api",
		httpmock.NewStringResponder(200, `{"status":1}`))

	client := newTestClient(t, transport)
	body, err := client.FetchBytes(context.Background(), "http://example.test/api")
	if err != nil {
		t.Fatalf("fetch bytes: %v", err)
	}
	if string(body) != `{"status":1}` {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchRetriesConnectionFailures(t *testing.T) {
	transport := httpmock.NewMockTransport()
	calls := 0
	transport.RegisterResponder("GET", "http://example.test/flaky",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
			}
			return httpmock.NewStringResponse(200, `ok`), nil
		})

	cfg := testConfig()
	cfg.MaxRetries = 2
	client, err := NewClient(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.WithTransport(transport)

	body, err := client.FetchBytes(context.Background(), "http://example.test/flaky")
	if err != nil {
		t.Fatalf("fetch after retry: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("body = %q, want ok", body)
	}
	if calls != 2 {
		t.Fatalf("transport calls = %d, want 2", calls)
	}
	if client.TotalRetries() != 1 {
		t.Fatalf("retries = %d, want 1", client.TotalRetries())
	}
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client := newTestClient(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.FetchBytes(ctx, "http://example.test/page"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestUserAgentRotation(t *testing.T) {
	cfg := testConfig()
	cfg.UserAgents = []string{"agent-a", "agent-b"}
	client, err := NewClient(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if ua := client.nextUserAgent(); ua != "agent-a" {
		t.Fatalf("first agent = %q", ua)
	}
	if ua := client.nextUserAgent(); ua != "agent-b" {
		t.Fatalf("second agent = %q", ua)
	}
	if ua := client.nextUserAgent(); ua != "agent-a" {
		t.Fatalf("rotation did not wrap, got %q", ua)
	}
}

func TestCollapseText(t *testing.T) {
	in := "  line one  \n\n\t\n   phrase a  phrase b \n"
	want := "line one\nphrase a\nphrase b"
	if got := collapseText(in); got != want {
		t.Fatalf("collapseText = %q, want %q", got, want)
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}
