package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTelegramBaseURL = "https://t.me"

	telegramHost = "t.me"

	minPartsForTelegramPostURL = 2
)

//nolint:gochecknoglobals // Compiled once.
var (
	telegramSlugRe   = regexp.MustCompile(`^\w{5,32}$`)
	telegramPostIDRe = regexp.MustCompile(`^\d+$`)

	telegramHosts = map[string]bool{
		"t.me":            true,
		"www.t.me":        true,
		"telegram.me":     true,
		"www.telegram.me": true,
	}
)

type channelPost struct {
	url       string
	text      string
	published time.Time
}

// telegramChannelURL reports whether raw points at a public Telegram channel
// (t.me/<slug>, t.me/s/<slug>) or one of its posts (t.me/<slug>/<id>).
// telegram.me links are accepted too.
func telegramChannelURL(raw string) (slug string, postID string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !telegramHosts[strings.ToLower(u.Host)] {
		return "", "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if parts[0] == "s" {
		parts = parts[1:]
	}
	if len(parts) == 0 || !telegramSlugRe.MatchString(parts[0]) {
		return "", "", false
	}

	slug = parts[0]
	if len(parts) >= minPartsForTelegramPostURL && telegramPostIDRe.MatchString(parts[1]) {
		postID = parts[1]
	}

	return slug, postID, true
}

func telegramPostURL(slug, postID string) string {
	return fmt.Sprintf("https://%s/%s/%s", telegramHost, slug, postID)
}

// fromTelegram returns the newest post of the channel, or the post postID
// when it is set. A post missing from the preview page is read from its
// embed page; another post is never used in its place.
func (r *Resolver) fromTelegram(ctx context.Context, slug string, postID string) (Document, error) {
	baseURL := strings.TrimRight(r.telegramBaseURL, "/")

	posts, title, err := r.channelPosts(ctx, fmt.Sprintf("%s/s/%s", baseURL, slug), slug)
	if err != nil {
		return Document{}, err
	}

	postURL := ""
	if postID != "" {
		postURL = telegramPostURL(slug, postID)
	}

	post, ok := selectChannelPost(posts, postURL)
	if !ok && postID != "" {
		r.log.DebugContext(ctx, "Post is not on the channel preview, reading embed page",
			"slug", slug,
			"postID", postID)

		var embedTitle string
		posts, embedTitle, err = r.channelPosts(ctx, fmt.Sprintf("%s/%s/%s?embed=1", baseURL, slug, postID), slug)
		if err != nil {
			return Document{}, err
		}

		if title == "" {
			title = embedTitle
		}

		post, ok = selectChannelPost(posts, postURL)
	}

	if !ok {
		return Document{}, ErrNoText
	}

	return Document{URL: post.url, Title: title, Text: post.text}, nil
}

// channelPosts fetches a channel preview or post embed page and parses its
// posts and the channel title.
func (r *Resolver) channelPosts(ctx context.Context, pageURL string, slug string) ([]channelPost, string, error) {
	body, _, err := r.fetch(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create document from reader: %w", err)
	}

	var posts []channelPost
	var errs []error

	doc.Find("a.tgme_widget_message_date").Each(func(_ int, s *goquery.Selection) {
		post, processErr := channelPostFromSelection(s)
		if processErr != nil {
			errs = append(errs, fmt.Errorf("process channel post: %w", processErr))
			return
		}

		posts = append(posts, post)
	})

	if len(errs) > 0 {
		r.log.WarnContext(ctx, "Some channel posts are skipped",
			"error", errors.Join(errs...),
			"slug", slug)
	}

	title := strings.TrimSpace(doc.Find("meta[property='og:title']").AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find(".tgme_channel_info_header_title").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find(".tgme_widget_message_owner_name").First().Text())
	}

	return posts, title, nil
}

// selectChannelPost returns the post with postURL, or the newest post with
// text when postURL is empty.
func selectChannelPost(posts []channelPost, postURL string) (channelPost, bool) {
	var newest channelPost
	found := false

	for _, post := range posts {
		if post.text == "" {
			continue
		}
		if postURL != "" {
			if post.url == postURL {
				return post, true
			}
			continue
		}
		if !found || post.published.After(newest.published) {
			newest = post
			found = true
		}
	}

	return newest, found
}

func channelPostFromSelection(s *goquery.Selection) (channelPost, error) {
	href, ok := s.Attr("href")
	if !ok || href == "" {
		return channelPost{}, errors.New("href empty")
	}

	var text strings.Builder
	message := s.ParentsFiltered(".tgme_widget_message").First()
	message.Find(".tgme_widget_message_text, .tgme_widget_message_caption").Each(
		func(_ int, inner *goquery.Selection) {
			inner.Find("br").Each(func(_ int, br *goquery.Selection) {
				br.ReplaceWithHtml("\n")
			})

			fragment := strings.TrimSpace(inner.Text())
			if fragment == "" {
				return
			}
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(fragment)
		},
	)

	var published time.Time
	if datetime := strings.TrimSpace(s.Find("time").AttrOr("datetime", "")); datetime != "" {
		parsed, err := time.Parse(time.RFC3339, datetime)
		if err != nil {
			return channelPost{}, fmt.Errorf("parse datetime: %w", err)
		}
		published = parsed
	}

	return channelPost{
		url:       canonicalPostURL(href),
		text:      strings.TrimSpace(text.String()),
		published: published,
	}, nil
}

// canonicalPostURL drops the query and fragment of a post link.
func canonicalPostURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
