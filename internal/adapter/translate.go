package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"telelingo/internal/capability"
	"telelingo/internal/metrics"
)

const (
	OperationTranslate = "translate"

	sessionCreateTimeout = time.Minute
)

type Translation struct {
	gateway *capability.Gateway
	cache   *SessionCache
	group   singleflight.Group
	now     func() time.Time
	log     *slog.Logger
}

type TranslationOption func(*Translation)

// WithSessionCache replaces the default single-entry session cache.
func WithSessionCache(cache *SessionCache) TranslationOption {
	return func(t *Translation) {
		if cache != nil {
			t.cache = cache
		}
	}
}

func WithClock(now func() time.Time) TranslationOption {
	return func(t *Translation) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTranslation(
	gateway *capability.Gateway,
	log *slog.Logger,
	opts ...TranslationOption,
) *Translation {
	t := &Translation{
		gateway: gateway,
		cache:   NewSessionCache(1, 0),
		now:     time.Now,
		log:     log,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Translate translates text with a session for the (source, target) pair,
// reusing a cached session when one exists. Unlike detection and
// summarization, failures are returned to the caller.
func (t *Translation) Translate(
	ctx context.Context,
	text string,
	sourceLanguage string,
	targetLanguage string,
) (string, error) {
	start := time.Now()

	translated, err := t.translate(ctx, text, sourceLanguage, targetLanguage)

	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	metrics.ObserveCall(OperationTranslate, string(status), len(text), time.Since(start))

	return translated, err
}

func (t *Translation) translate(
	ctx context.Context,
	text string,
	sourceLanguage string,
	targetLanguage string,
) (string, error) {
	session, err := t.session(ctx, sourceLanguage, targetLanguage)
	if err != nil {
		return "", err
	}

	translated, err := session.Translate(ctx, text)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to translate",
			"error", err,
			"sourceLanguage", sourceLanguage,
			"targetLanguage", targetLanguage,
			"textLength", len(text))

		return "", fmt.Errorf("translate text: %w", err)
	}

	return translated, nil
}

// session returns a session for the pair. Concurrent callers missing the
// cache for the same pair share a single creation, which is detached from
// any one caller's cancellation; each caller still stops waiting when its
// own ctx is done.
func (t *Translation) session(
	ctx context.Context,
	sourceLanguage string,
	targetLanguage string,
) (capability.Translator, error) {
	key := SessionKey{Source: sourceLanguage, Target: targetLanguage}

	if session, ok := t.cache.Get(key, t.now()); ok {
		return session, nil
	}

	ch := t.group.DoChan(key.String(), func() (any, error) {
		if session, ok := t.cache.Get(key, t.now()); ok {
			return session, nil
		}

		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCreateTimeout)
		defer cancel()

		return t.CreateSession(createCtx, sourceLanguage, targetLanguage)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for translation session: %w", ctx.Err())
	}

	if res.Err != nil {
		return nil, res.Err
	}

	session, ok := res.Val.(capability.Translator)
	if !ok || session == nil {
		return nil, ErrSessionNotReady
	}

	return session, nil
}

// CreateSession creates a session for the pair and stores it in the cache,
// replacing the least recently used session when the cache is full.
func (t *Translation) CreateSession(
	ctx context.Context,
	sourceLanguage string,
	targetLanguage string,
) (capability.Translator, error) {
	factory, ok := t.gateway.Translator()
	if !ok {
		t.log.ErrorContext(ctx, "Translator is not available",
			"sourceLanguage", sourceLanguage,
			"targetLanguage", targetLanguage)

		return nil, ErrCapabilityUnavailable
	}

	session, err := factory.Create(ctx, capability.TranslatorOptions{
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
	})
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to create translation session",
			"error", err,
			"sourceLanguage", sourceLanguage,
			"targetLanguage", targetLanguage)

		return nil, fmt.Errorf("create translator: %w", err)
	}

	if session == nil {
		t.log.ErrorContext(ctx, "Translation session is missing after creation",
			"sourceLanguage", sourceLanguage,
			"targetLanguage", targetLanguage)

		return nil, ErrSessionNotReady
	}

	if session.SourceLanguage() != sourceLanguage || session.TargetLanguage() != targetLanguage {
		return nil, fmt.Errorf("%w: session is for %s->%s, requested %s->%s",
			ErrSessionNotReady,
			session.SourceLanguage(),
			session.TargetLanguage(),
			sourceLanguage,
			targetLanguage)
	}

	t.cache.Put(SessionKey{Source: sourceLanguage, Target: targetLanguage}, session, t.now())

	metrics.IncSessionsCreated()
	metrics.SetSessionsCached(t.cache.Len())

	t.log.DebugContext(ctx, "Translation session is created",
		"sourceLanguage", sourceLanguage,
		"targetLanguage", targetLanguage,
		"cachedSessions", t.cache.Len())

	return session, nil
}

// EvictIdleSessions drops sessions idle past the cache TTL.
func (t *Translation) EvictIdleSessions(ctx context.Context) int {
	evicted := t.cache.EvictIdle(t.now())
	metrics.SetSessionsCached(t.cache.Len())

	if evicted > 0 {
		t.log.InfoContext(ctx, "Idle translation sessions are evicted",
			"evicted", evicted,
			"cachedSessions", t.cache.Len())
	}

	return evicted
}

// CachedPairs returns the cached language pairs, most recently used first.
func (t *Translation) CachedPairs() []SessionKey {
	return t.cache.Keys()
}
