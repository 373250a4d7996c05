package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"trendradar/config"
	"trendradar/helpers"
	"trendradar/logger"
)

// userAgents is the fixed disguise pool; one is chosen uniformly per session.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Engine is the browser-automation collaborator. The pipeline only consumes
// navigation, rendered page source and failure screenshots from it.
type Engine interface {
	// Navigate loads a URL and renders it
	Navigate(ctx context.Context, url string) error

	// PageSource returns the rendered HTML of the last navigated page
	PageSource(ctx context.Context) (string, error)

	// CurrentURL returns the final URL after redirects
	CurrentURL() string

	// Screenshot captures the last navigated page as PNG bytes
	Screenshot(ctx context.Context) ([]byte, error)

	// Close tears the browser session down
	Close() error
}

// ChromeEngine implements Engine against a ChromeDB (browserless) instance
type ChromeEngine struct {
	addr        string
	client      *http.Client
	fallback    *http.Client
	userAgent   string
	proxyURL    string
	headless    bool
	pageTimeout time.Duration
	log         *logger.Logger

	// rendered state of the last navigation
	lastHTML string
	lastURL  string
}

// NewChromeEngine creates a browser engine client with a randomized
// user-agent and the configured disguise posture. A configured proxy is
// applied to both the rendered path (browser launch options) and the direct
// HTTP fallback.
func NewChromeEngine(cfg config.Config) (*ChromeEngine, error) {
	if cfg.ChromeAddr == "" {
		return nil, fmt.Errorf("browser engine address is empty")
	}
	var fallback *http.Client
	if cfg.ProxyURL != "" {
		var err error
		fallback, err = helpers.NewProxyClient(cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
	}
	return &ChromeEngine{
		addr:        strings.TrimSuffix(cfg.ChromeAddr, "/"),
		client:      &http.Client{Timeout: cfg.PageLoadTimeout + 15*time.Second},
		fallback:    fallback,
		userAgent:   userAgents[mathrand.Intn(len(userAgents))],
		proxyURL:    cfg.ProxyURL,
		headless:    cfg.Headless,
		pageTimeout: cfg.PageLoadTimeout,
		log:         logger.ForSession(),
	}, nil
}

// launchQuery builds the browserless launch-options query parameter. Empty
// when the defaults (headless, no proxy) are in effect.
func (e *ChromeEngine) launchQuery() string {
	if e.proxyURL == "" && e.headless {
		return ""
	}
	opts := map[string]interface{}{"headless": e.headless}
	if e.proxyURL != "" {
		opts["args"] = []string{"--proxy-server=" + e.proxyURL}
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return ""
	}
	return "launch=" + neturl.QueryEscape(string(data))
}

// endpoint joins the engine address, path and launch options
func (e *ChromeEngine) endpoint(path string) string {
	if q := e.launchQuery(); q != "" {
		return e.addr + path + "?" + q
	}
	return e.addr + path
}

// pageScript is the function the engine runs per navigation. It applies the
// user-agent override, disables the webdriver fingerprint marker, and
// returns the rendered content together with the final URL.
const pageScript = `module.exports = async ({ page, context }) => {
	await page.setViewport({ width: 1280, height: 800 });
	await page.setUserAgent(context.userAgent);
	await page.evaluateOnNewDocument(() => {
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	});
	const response = await page.goto(context.url, {
		waitUntil: 'domcontentloaded',
		timeout: context.timeoutMs,
	});
	if (!response) {
		throw new Error('no response from page');
	}
	return { content: await page.content(), url: page.url(), status: response.status() };
}`

type functionResult struct {
	Content string `json:"content"`
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Data    *struct {
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"data"`
}

// Navigate loads the URL through the engine. When the engine is unreachable
// it falls back to a direct HTTP fetch with browser-like headers, which still
// yields usable HTML for server-rendered pages.
func (e *ChromeEngine) Navigate(ctx context.Context, url string) error {
	html, finalURL, err := e.fetchRendered(ctx, url)
	if err != nil {
		e.log.Debug().Err(err).Str("url", url).Msg("Engine fetch failed, trying direct HTTP")
		body, directErr := e.fetchDirect(url)
		if directErr != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			return fmt.Errorf("navigate %s: %w", url, readErr)
		}
		html, finalURL = string(data), url
	}

	if !strings.Contains(html, "<html") && !strings.Contains(html, "<body") {
		return fmt.Errorf("navigate %s: response is not HTML (%d bytes)", url, len(html))
	}

	e.lastHTML = html
	e.lastURL = finalURL
	return nil
}

// fetchDirect is the plain-HTTP fallback, routed through the configured
// proxy when one is set.
func (e *ChromeEngine) fetchDirect(url string) (io.Reader, error) {
	if e.fallback != nil {
		return helpers.FetchWithClient(e.fallback, url)
	}
	return helpers.FetchWithRandomHeaders(url)
}

// fetchRendered asks ChromeDB to render the page
func (e *ChromeEngine) fetchRendered(ctx context.Context, url string) (string, string, error) {
	payload := map[string]interface{}{
		"code": pageScript,
		"context": map[string]interface{}{
			"url":       url,
			"userAgent": e.userAgent,
			"timeoutMs": e.pageTimeout.Milliseconds(),
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("marshal function payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint("/function"), bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("create function request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read engine response: %w", err)
	}

	var result functionResult
	if err := json.Unmarshal(body, &result); err == nil {
		if result.Content != "" {
			return result.Content, nonEmpty(result.URL, url), nil
		}
		if result.Data != nil && result.Data.Content != "" {
			return result.Data.Content, nonEmpty(result.Data.URL, url), nil
		}
	}

	// Some engine versions return the HTML directly.
	if strings.Contains(string(body), "<html") {
		return string(body), url, nil
	}

	return "", "", fmt.Errorf("engine response contained no HTML (%d bytes)", len(body))
}

// PageSource returns the rendered HTML of the last navigated page
func (e *ChromeEngine) PageSource(_ context.Context) (string, error) {
	if e.lastHTML == "" {
		return "", fmt.Errorf("no page has been navigated")
	}
	return e.lastHTML, nil
}

// CurrentURL returns the final URL of the last navigation
func (e *ChromeEngine) CurrentURL() string {
	return e.lastURL
}

// Screenshot captures the last navigated page via the engine
func (e *ChromeEngine) Screenshot(ctx context.Context) ([]byte, error) {
	if e.lastURL == "" {
		return nil, fmt.Errorf("no page has been navigated")
	}

	payload := map[string]interface{}{
		"url": e.lastURL,
		"options": map[string]interface{}{
			"type":     "png",
			"fullPage": false,
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal screenshot payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint("/screenshot"), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create screenshot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screenshot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screenshot returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Close tears the session down. The engine is stateless per request, so only
// local state is dropped.
func (e *ChromeEngine) Close() error {
	e.lastHTML = ""
	e.lastURL = ""
	return nil
}

func nonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
