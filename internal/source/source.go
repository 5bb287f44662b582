// Package source turns a link into plain text: a public Telegram channel
// post, the newest entry of a feed or the main text of an HTML page.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"mvdan.cc/xurls/v2"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	clientTimeout = 20 * time.Second

	maxBodyBytes = 5 << 20

	// MaxDocumentLength caps the resolved text, in characters.
	MaxDocumentLength = 20000
)

var (
	ErrNoText = errors.New("no text is found")

	//nolint:gochecknoglobals // Compiled once.
	whitespaceRe = regexp.MustCompile(`[ \t\r\f\v]+`)
	//nolint:gochecknoglobals // Compiled once.
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

type Document struct {
	URL   string
	Title string
	Text  string
}

type Resolver struct {
	client          *http.Client
	libParser       *gofeed.Parser
	telegramBaseURL string
	log             *slog.Logger
}

type ResolverOption func(*Resolver)

// WithTelegramBaseURL replaces https://t.me when reading channel previews.
func WithTelegramBaseURL(baseURL string) ResolverOption {
	return func(r *Resolver) {
		if baseURL != "" {
			r.telegramBaseURL = baseURL
		}
	}
}

func NewResolver(client *http.Client, log *slog.Logger, opts ...ResolverOption) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: clientTimeout}
	}

	r := &Resolver{
		client:          client,
		libParser:       gofeed.NewParser(),
		telegramBaseURL: DefaultTelegramBaseURL,
		log:             log,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// SingleURL reports whether text consists of exactly one http(s) URL.
func SingleURL(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	httpURLRe, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return "", false
	}

	urls := httpURLRe.FindAllString(text, -1)
	if len(urls) != 1 || urls[0] != text {
		return "", false
	}

	return urls[0], true
}

// Resolve fetches rawURL and extracts its text.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (Document, error) {
	doc, err := r.resolve(ctx, rawURL)
	if err != nil {
		return Document{}, err
	}

	if doc.URL == "" {
		doc.URL = rawURL
	}

	doc.Text = truncate(normalizeText(doc.Text), MaxDocumentLength)
	doc.Title = strings.TrimSpace(doc.Title)

	if doc.Text == "" {
		return Document{}, ErrNoText
	}

	return doc, nil
}

func (r *Resolver) resolve(ctx context.Context, rawURL string) (Document, error) {
	if slug, postID, ok := telegramChannelURL(rawURL); ok {
		return r.fromTelegram(ctx, slug, postID)
	}

	body, contentType, err := r.fetch(ctx, rawURL)
	if err != nil {
		return Document{}, err
	}

	doc, err := r.fromFeed(body)
	if err == nil {
		return doc, nil
	}

	r.log.DebugContext(ctx, "Link is not a feed, parsing as HTML",
		"error", err,
		"url", rawURL,
		"contentType", contentType)

	return fromHTML(body)
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req) //nolint:gosec // User-provided URL is the point.
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			r.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", rawURL)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func (r *Resolver) fromFeed(body []byte) (Document, error) {
	parsed, err := r.libParser.Parse(bytes.NewReader(body))
	if err != nil {
		return Document{}, fmt.Errorf("parse feed: %w", err)
	}

	item := newestItem(parsed.Items)
	if item == nil {
		return Document{}, errors.New("feed has no items")
	}

	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}

	text, err := htmlToText(content)
	if err != nil {
		return Document{}, err
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = strings.TrimSpace(parsed.Title)
	}

	return Document{
		URL:   strings.TrimSpace(item.Link),
		Title: title,
		Text:  text,
	}, nil
}

func newestItem(items []*gofeed.Item) *gofeed.Item {
	var newest *gofeed.Item
	var newestTime time.Time

	for _, item := range items {
		if item == nil {
			continue
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		if newest == nil || published.After(newestTime) {
			newest = item
			newestTime = published
		}
	}

	return newest
}

func fromHTML(body []byte) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Document{}, fmt.Errorf("create document from reader: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	title := strings.TrimSpace(doc.Find("meta[property='og:title']").AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	return Document{Title: title, Text: selectionText(root)}, nil
}

func htmlToText(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	return selectionText(doc.Selection), nil
}

// selectionText joins block-level text with blank lines, falling back to the
// selection's raw text when it has no blocks.
func selectionText(s *goquery.Selection) string {
	s.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})

	var b strings.Builder
	s.Find("p, h1, h2, h3, h4, li, blockquote, pre").Each(func(_ int, block *goquery.Selection) {
		if block.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}

		fragment := strings.TrimSpace(block.Text())
		if fragment == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fragment)
	})

	if b.Len() == 0 {
		return strings.TrimSpace(s.Text())
	}

	return b.String()
}

func normalizeText(text string) string {
	lines := strings.Split(whitespaceRe.ReplaceAllString(text, " "), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	return strings.TrimSpace(blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func truncate(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxChars]))
}
