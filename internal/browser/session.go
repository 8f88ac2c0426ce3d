package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"campscout/internal/config"
	"campscout/internal/llm"
)

var errClosed = errors.New("session is closed")

// WaitCondition selects the navigation wait strategy.
type WaitCondition string

const (
	WaitLoad        WaitCondition = "load"
	WaitNetworkIdle WaitCondition = "networkidle"
)

// Session wraps one browser page for the life of a single unit of work.
// Every loop that opens a Session must close it on all exit paths.
type Session struct {
	browser     *rod.Browser
	page        *rod.Page
	extractor   llm.Client
	navTimeout  time.Duration
	settleDelay time.Duration
}

// Open connects to the configured browser (or launches a local one) and
// creates a blank page. The extractor powers the AI Extract facility and
// may be nil for loops that only need navigation and eval.
func Open(ctx context.Context, cfg config.BrowserConfig, extractor llm.Client) (*Session, error) {
	browser := rod.New().Context(ctx)
	if cfg.ControlURL != "" {
		browser = browser.ControlURL(cfg.ControlURL)
	}
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser connect: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("browser page: %w", err)
	}

	navTimeout := time.Duration(cfg.NavTimeoutMs) * time.Millisecond
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	settle := time.Duration(cfg.SettleDelayMs) * time.Millisecond
	if settle <= 0 {
		settle = 3 * time.Second
	}

	return &Session{
		browser:     browser,
		page:        page,
		extractor:   extractor,
		navTimeout:  navTimeout,
		settleDelay: settle,
	}, nil
}

// Close tears down the page and the browser connection. Safe to call
// more than once.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
}

// Page exposes the underlying page for packages that install event hooks.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Goto navigates and waits for the requested condition within the
// session's navigation timeout.
func (s *Session) Goto(targetURL string, wait WaitCondition) error {
	if s.page == nil {
		return errClosed
	}

	page := s.page.Timeout(s.navTimeout)

	if wait == WaitNetworkIdle {
		waitNav := page.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
		if err := page.Navigate(targetURL); err != nil {
			return err
		}
		waitNav()
		return nil
	}

	if err := page.Navigate(targetURL); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Settle sleeps the configured post-load delay for late hydration.
func (s *Session) Settle() {
	time.Sleep(s.settleDelay)
}

// WaitForTimeout sleeps for the given duration without touching the page.
func (s *Session) WaitForTimeout(d time.Duration) {
	time.Sleep(d)
}

// Eval runs a JS expression in the page and decodes the result into out.
// The expression must be a function literal per rod conventions.
func (s *Session) Eval(js string, out any) error {
	if s.page == nil {
		return errClosed
	}
	res, err := s.page.Eval(js)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(res.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// HTML returns the rendered document, including JS-built DOM.
func (s *Session) HTML() (string, error) {
	if s.page == nil {
		return "", errClosed
	}
	return s.page.HTML()
}

// Title returns the current document title.
func (s *Session) Title() (string, error) {
	var title string
	if err := s.Eval(`() => document.title`, &title); err != nil {
		return "", err
	}
	return title, nil
}

// maxExtractContent caps how much page content is sent to the model.
const maxExtractContent = 40_000

// Extract renders the page to markdown and asks the configured LLM to
// pull the requested fields, decoding the result into out via JSON.
func (s *Session) Extract(ctx context.Context, instruction string, fields []llm.FieldSpec, out any) error {
	if s.extractor == nil {
		return errors.New("no extractor configured for this session")
	}

	html, err := s.HTML()
	if err != nil {
		return err
	}

	pageURL := s.currentURL()
	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}

	converter := htmlmd.NewConverter(host, true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		// Fall back to raw HTML when conversion fails; the model copes.
		markdown = html
	}
	if len(markdown) > maxExtractContent {
		markdown = markdown[:maxExtractContent]
	}

	res, err := s.extractor.ExtractFields(ctx, llm.ExtractRequest{
		URL:         pageURL,
		Content:     markdown,
		Instruction: instruction,
		Fields:      fields,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(res.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *Session) currentURL() string {
	var u string
	if err := s.Eval(`() => window.location.href`, &u); err != nil {
		return ""
	}
	return strings.TrimSpace(u)
}
