package source_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"telelingo/internal/source"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example feed</title>
  <link>https://example.com</link>
  <description>Example</description>
  <item>
    <title>Older post</title>
    <link>https://example.com/older</link>
    <pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate>
    <description>Older text.</description>
  </item>
  <item>
    <title>Newest post</title>
    <link>https://example.com/newest</link>
    <pubDate>Tue, 07 Jan 2025 10:00:00 GMT</pubDate>
    <description>&lt;p&gt;Newest &lt;b&gt;text&lt;/b&gt;.&lt;/p&gt;&lt;p&gt;Second paragraph.&lt;/p&gt;</description>
  </item>
</channel>
</rss>`

const htmlPage = `<!doctype html>
<html>
<head>
  <title>Fallback title</title>
  <meta property="og:title" content="Page title">
  <style>body { color: red; }</style>
</head>
<body>
  <nav><p>Home | About</p></nav>
  <article>
    <h1>Heading</h1>
    <p>First   paragraph<br>continues here.</p>
    <script>var x = 1;</script>
    <ul><li><p>Item one</p></li><li>Item two</li></ul>
  </article>
  <footer><p>Copyright</p></footer>
</body>
</html>`

const channelPreview = `<!doctype html>
<html>
<head><meta property="og:title" content="Go News"></head>
<body>
  <div class="tgme_widget_message">
    <div class="tgme_widget_message_text">First post<br>second line</div>
    <a class="tgme_widget_message_date" href="https://t.me/golang_news/1?single"><time datetime="2025-01-06T10:00:00+00:00"></time></a>
  </div>
  <div class="tgme_widget_message">
    <div class="tgme_widget_message_text">Latest post</div>
    <a class="tgme_widget_message_date" href="https://t.me/golang_news/2"><time datetime="2025-01-07T10:00:00+00:00"></time></a>
  </div>
</body>
</html>`

const postEmbed = `<!doctype html>
<html>
<body>
  <div class="tgme_widget_message" data-post="golang_news/7">
    <div class="tgme_widget_message_owner_name">Go News</div>
    <div class="tgme_widget_message_text">Older post</div>
    <a class="tgme_widget_message_date" href="https://t.me/golang_news/7"><time datetime="2024-12-01T10:00:00+00:00"></time></a>
  </div>
</body>
</html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(htmlPage))
	})
	mux.HandleFunc("/s/golang_news", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(channelPreview))
	})
	mux.HandleFunc("/golang_news/7", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("embed") != "1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(postEmbed))
	})
	mux.HandleFunc("/golang_news/8", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><div class="tgme_widget_embed_alert">Post not found</div></body></html>`))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><script>x()</script></body></html>"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestSingleURL(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"HTTPS URL", "https://example.com/a?b=c", "https://example.com/a?b=c", true},
		{"Trimmed", "  http://example.com/post  ", "http://example.com/post", true},
		{"Text around URL", "read https://example.com please", "", false},
		{"Two URLs", "https://a.example https://b.example", "", false},
		{"No scheme", "example.com", "", false},
		{"Empty", "   ", "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := source.SingleURL(test.text)
			if ok != test.wantOK || got != test.want {
				t.Errorf("Expected (%q, %v), got (%q, %v)", test.want, test.wantOK, got, ok)
			}
		})
	}
}

func TestResolveFeedUsesNewestItem(t *testing.T) {
	srv := newServer(t)
	r := source.NewResolver(srv.Client(), slog.Default())

	doc, err := r.Resolve(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "Newest post" {
		t.Fatalf("unexpected title: %q", doc.Title)
	}

	if doc.URL != "https://example.com/newest" {
		t.Fatalf("unexpected URL: %q", doc.URL)
	}

	if doc.Text != "Newest text.\n\nSecond paragraph." {
		t.Fatalf("unexpected text: %q", doc.Text)
	}
}

func TestResolveHTMLExtractsMainText(t *testing.T) {
	srv := newServer(t)
	r := source.NewResolver(srv.Client(), slog.Default())

	doc, err := r.Resolve(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "Page title" {
		t.Fatalf("unexpected title: %q", doc.Title)
	}

	if doc.URL != srv.URL+"/page" {
		t.Fatalf("expected request URL to be kept, got %q", doc.URL)
	}

	want := "Heading\n\nFirst paragraph\ncontinues here.\n\nItem one\n\nItem two"
	if doc.Text != want {
		t.Fatalf("unexpected text:\n%q\nwant\n%q", doc.Text, want)
	}

	for _, unwanted := range []string{"Home", "Copyright", "var x"} {
		if strings.Contains(doc.Text, unwanted) {
			t.Fatalf("expected %q to be stripped from %q", unwanted, doc.Text)
		}
	}
}

func TestResolveWithoutText(t *testing.T) {
	srv := newServer(t)
	r := source.NewResolver(srv.Client(), slog.Default())

	if _, err := r.Resolve(context.Background(), srv.URL+"/empty"); !errors.Is(err, source.ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestResolveUnexpectedStatus(t *testing.T) {
	srv := newServer(t)
	r := source.NewResolver(srv.Client(), slog.Default())

	if _, err := r.Resolve(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestResolveTelegramChannel(t *testing.T) {
	srv := newServer(t)
	r := source.NewResolver(srv.Client(), slog.Default(), source.WithTelegramBaseURL(srv.URL))

	tests := []struct {
		name     string
		url      string
		wantURL  string
		wantText string
	}{
		{"Channel link", "https://t.me/golang_news", "https://t.me/golang_news/2", "Latest post"},
		{"Post link", "https://t.me/golang_news/1", "https://t.me/golang_news/1", "First post\nsecond line"},
		{"Telegram host", "https://telegram.me/golang_news/1", "https://t.me/golang_news/1", "First post\nsecond line"},
		{"Post off preview", "https://t.me/golang_news/7", "https://t.me/golang_news/7", "Older post"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc, err := r.Resolve(context.Background(), test.url)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if doc.URL != test.wantURL || doc.Text != test.wantText || doc.Title != "Go News" {
				t.Errorf("unexpected document: %+v", doc)
			}
		})
	}
}

func TestResolveTelegramMissingPost(t *testing.T) {
	srv := newServer(t)
	r := source.NewResolver(srv.Client(), slog.Default(), source.WithTelegramBaseURL(srv.URL))

	doc, err := r.Resolve(context.Background(), "https://t.me/golang_news/8")
	if !errors.Is(err, source.ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v (%+v)", err, doc)
	}
}
