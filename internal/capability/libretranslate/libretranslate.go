// Package libretranslate backs the detector and translator capabilities with
// a self-hosted LibreTranslate server. It has no summarizer.
package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"telelingo/internal/capability"
)

const (
	DefaultURL     = "http://localhost:5000"
	DefaultTimeout = 2 * time.Minute

	maxErrorBodyBytes = 4096
)

type Config struct {
	BaseURL string
	APIKey  string
	// HTTPClient overrides the default client with DefaultTimeout.
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		log:        log,
	}
}

// Provider returns the registry of capabilities served by the client.
func (c *Client) Provider() capability.Provider {
	return capability.Registry{
		DetectorFactory:   detectorFactory{client: c},
		TranslatorFactory: translatorFactory{client: c},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type detectRequest struct {
	Q      string `json:"q"`
	APIKey string `json:"api_key,omitempty"`
}

type detectResponse struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

type languageResponse struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

// Languages returns the codes the server supports.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	var languages []languageResponse
	if err := c.do(ctx, http.MethodGet, "/languages", nil, &languages); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(languages))
	for _, lang := range languages {
		codes = append(codes, lang.Code)
	}

	return codes, nil
}

// Detect returns guesses with confidence scaled from 0..100 to 0..1.
func (c *Client) Detect(ctx context.Context, text string) ([]capability.Detection, error) {
	var resp []detectResponse
	if err := c.do(ctx, http.MethodPost, "/detect", detectRequest{Q: text, APIKey: c.apiKey}, &resp); err != nil {
		return nil, err
	}

	detections := make([]capability.Detection, 0, len(resp))
	for _, d := range resp {
		detections = append(detections, capability.Detection{
			Language:   d.Language,
			Confidence: min(max(d.Confidence/100, 0), 1),
		})
	}

	return detections, nil
}

func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	req := translateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: c.apiKey,
	}

	var resp translateResponse
	if err := c.do(ctx, http.MethodPost, "/translate", req, &resp); err != nil {
		return "", err
	}

	return resp.TranslatedText, nil
}

func (c *Client) do(ctx context.Context, method string, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			c.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"path", path)
		}
	}()

	c.log.DebugContext(ctx, "LibreTranslate request is completed",
		"path", path,
		"statusCode", resp.StatusCode,
		"durationMs", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

type detectorFactory struct {
	client *Client
}

func (f detectorFactory) Capabilities(ctx context.Context) (capability.LanguageDetectorCapabilities, error) {
	codes, err := f.client.Languages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}

	return capability.NewLanguageSet(codes...), nil
}

func (f detectorFactory) Create(context.Context) (capability.LanguageDetector, error) {
	return f.client, nil
}

type translatorFactory struct {
	client *Client
}

// Create checks the pair against the server's languages before returning a
// session bound to it.
func (f translatorFactory) Create(
	ctx context.Context,
	opts capability.TranslatorOptions,
) (capability.Translator, error) {
	if opts.SourceLanguage == "" || opts.TargetLanguage == "" {
		return nil, errors.New("source and target languages are required")
	}

	codes, err := f.client.Languages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}

	supported := capability.NewLanguageSet(codes...)
	for _, code := range []string{opts.SourceLanguage, opts.TargetLanguage} {
		if !supported.LanguageAvailable(code) {
			return nil, fmt.Errorf("language %q is not supported", code)
		}
	}

	return &session{
		client: f.client,
		source: opts.SourceLanguage,
		target: opts.TargetLanguage,
	}, nil
}

type session struct {
	client *Client
	source string
	target string
}

func (s *session) SourceLanguage() string { return s.source }
func (s *session) TargetLanguage() string { return s.target }

func (s *session) Translate(ctx context.Context, text string) (string, error) {
	return s.client.Translate(ctx, text, s.source, s.target)
}
