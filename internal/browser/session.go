package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendradar/config"
	"trendradar/logger"
	apperrors "trendradar/pkg/errors"
)

// EngineFactory builds a browser engine for one session
type EngineFactory func(config.Config) (Engine, error)

// Manager owns browser-session lifecycle: acquisition, disguise posture,
// pacing, and guaranteed teardown.
type Manager struct {
	cfg     config.Config
	factory EngineFactory
	log     *logger.Logger
}

// NewManager creates a session manager backed by the ChromeDB engine
func NewManager(cfg config.Config) *Manager {
	return NewManagerWithFactory(cfg, func(c config.Config) (Engine, error) {
		return NewChromeEngine(c)
	})
}

// NewManagerWithFactory creates a session manager with a custom engine
// factory. Tests use this to substitute a stub engine.
func NewManagerWithFactory(cfg config.Config, factory EngineFactory) *Manager {
	return &Manager{
		cfg:     cfg,
		factory: factory,
		log:     logger.ForSession(),
	}
}

// WithSession acquires a browser session, runs fn with it, and tears the
// session down on every exit path including panic and context cancellation.
func (m *Manager) WithSession(ctx context.Context, platform string, fn func(*Session) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewSession(platform, "context cancelled before session start", err)
	}

	engine, err := m.factory(m.cfg)
	if err != nil {
		return apperrors.NewSession(platform, "failed to acquire browser session", err)
	}
	defer func() {
		if closeErr := engine.Close(); closeErr != nil {
			m.log.Warn().Err(closeErr).Str("platform", platform).Msg("Session teardown failed")
		}
	}()

	session := &Session{
		engine:   engine,
		cfg:      m.cfg,
		platform: platform,
		log:      m.log.WithField("platform", platform),
	}
	return fn(session)
}

// Session is one live browser session scoped to a single source run
type Session struct {
	engine   Engine
	cfg      config.Config
	platform string
	log      *logger.Logger
}

// Fetch navigates to a URL and returns the rendered page source. A
// randomized delay is applied both before and after navigation to reduce
// request-rate fingerprinting.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	if err := sleepContext(ctx, s.cfg.RandomDelay()); err != nil {
		return "", err
	}

	if err := s.engine.Navigate(ctx, url); err != nil {
		return "", apperrors.NewNetwork(s.platform, fmt.Sprintf("failed to fetch %s", url), err)
	}

	if err := sleepContext(ctx, s.cfg.RandomDelay()); err != nil {
		return "", err
	}

	return s.engine.PageSource(ctx)
}

// WaitForAny polls until the first of the given CSS selectors is present in
// the page source. Unioning selectors lets an adapter tolerate multiple
// known page layouts. Returns the page source on success and a fetch-timeout
// error if none appear within the configured selector timeout.
func (s *Session) WaitForAny(ctx context.Context, selectors []string) (string, error) {
	deadline := time.Now().Add(s.cfg.SelectorTimeout)

	for {
		html, err := s.engine.PageSource(ctx)
		if err == nil {
			doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
			if parseErr == nil {
				for _, sel := range selectors {
					if doc.Find(sel).Length() > 0 {
						return html, nil
					}
				}
			}
		}

		if time.Now().After(deadline) {
			return "", apperrors.NewFetchTimeout(s.platform,
				fmt.Sprintf("none of the selectors appeared: %v", selectors), nil)
		}
		if err := sleepContext(ctx, 500*time.Millisecond); err != nil {
			return "", err
		}
	}
}

// CurrentURL returns the final URL of the last navigation
func (s *Session) CurrentURL() string {
	return s.engine.CurrentURL()
}

// CaptureArtifacts persists the page source and a screenshot to the data
// directory for postmortem. Capture failures are logged, never propagated.
func (s *Session) CaptureArtifacts(ctx context.Context, url string) {
	dir := filepath.Join(s.cfg.DataDir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Warn().Err(err).Msg("Failed to create debug artifact directory")
		return
	}

	base := fmt.Sprintf("%s_%d", safeName(url), time.Now().Unix())

	if html, err := s.engine.PageSource(ctx); err == nil {
		path := filepath.Join(dir, base+".html")
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			s.log.Warn().Err(err).Msg("Failed to save debug HTML")
		} else {
			s.log.Info().Str("path", path).Msg("Saved debug HTML")
		}
	}

	if png, err := s.engine.Screenshot(ctx); err == nil {
		path := filepath.Join(dir, base+".png")
		if err := os.WriteFile(path, png, 0o644); err != nil {
			s.log.Warn().Err(err).Msg("Failed to save debug screenshot")
		} else {
			s.log.Info().Str("path", path).Msg("Saved debug screenshot")
		}
	} else {
		s.log.Debug().Err(err).Msg("Screenshot capture unavailable")
	}
}

// safeName converts a URL into a filesystem-safe artifact prefix
func safeName(url string) string {
	name := strings.ReplaceAll(url, "://", "_")
	name = strings.ReplaceAll(name, "/", "_")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// sleepContext sleeps for d or until the context is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
