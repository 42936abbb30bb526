package portal

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/reytechinc/scprs-backend/pkg/config"
	pkgerrors "github.com/reytechinc/scprs-backend/pkg/errors"
	"github.com/reytechinc/scprs-backend/pkg/logger"
	"github.com/reytechinc/scprs-backend/pkg/metrics"
)

const responseBodyLimit = 8 << 20 // PeopleSoft pages run large but bounded

// Session owns one stateful conversation with the portal: the opaque token,
// the state counter, and the last response body. The remote silently desyncs
// if two requests overlap, so every round trip serializes under one mutex.
// Construct once and inject; reset through Reset, never by rebuilding
// globals.
type Session struct {
	httpClient     *http.Client
	baseURL        string
	searchPath     string
	userAgent      string
	loadTimeout    time.Duration
	searchTimeout  time.Duration
	probeTimeout   time.Duration
	initAttempts   int
	reloadAttempts int
	logg           *logger.Logger
	metrics        *metrics.PortalMetrics

	mu            sync.Mutex
	token         string
	initialized   bool
	lastBody      string
	lastRespSig   [sha256.Size]byte
	lastInputSig  [sha256.Size]byte
	haveLastInput bool
}

// Option configures optional session behavior.
type Option func(*Session)

// WithHTTPClient overrides the default HTTP client (used by tests to point
// at a fake portal).
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured portal base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *Session) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			s.baseURL = trimmed
		}
	}
}

// NewSession builds a portal session from configuration.
func NewSession(cfg config.PortalConfig, logg *logger.Logger, met *metrics.PortalMetrics, opts ...Option) (*Session, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "portal base URL is required")
	}
	if strings.TrimSpace(cfg.SearchPath) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "portal search path is required")
	}

	s := &Session{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		searchPath:     cfg.SearchPath,
		userAgent:      cfg.UserAgent,
		loadTimeout:    cfg.LoadTimeout,
		searchTimeout:  cfg.SearchTimeout,
		probeTimeout:   cfg.ProbeTimeout,
		initAttempts:   cfg.InitAttempts,
		reloadAttempts: cfg.ReloadAttempts,
		logg:           logg,
		metrics:        met,
	}
	if s.initAttempts <= 0 {
		s.initAttempts = 3
	}
	if s.reloadAttempts <= 0 {
		s.reloadAttempts = 2
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("building cookie jar: %w", err)
		}
		s.httpClient = &http.Client{Jar: jar}
	}

	return s, nil
}

// Initialize establishes the conversation. It fails closed when the session
// markers never appear.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

// Reset discards the conversation; the next call reinitializes.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.token = ""
	s.initialized = false
	s.lastBody = ""
	s.haveLastInput = false
	s.lastRespSig = [sha256.Size]byte{}
	s.lastInputSig = [sha256.Size]byte{}
}

func (s *Session) initLocked(ctx context.Context) error {
	backoff := retry.WithMaxRetries(uint64(s.initAttempts-1), retry.NewFibonacci(500*time.Millisecond))
	var page string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, err := s.loadLanding(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !pageHasFormMarkers(body) {
			return retry.RetryableError(fmt.Errorf("landing page has no session markers"))
		}
		page = body
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "portal landing page unavailable")
	}

	token := extractToken(page)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "portal landing page carries no session token")
	}

	s.token = token
	s.lastBody = page
	s.initialized = true
	if s.logg != nil {
		s.logg.Info(ctx, "portal session initialized")
	}
	return nil
}

// ensureFreshLocked reloads the landing page before a transition; tokens
// expire across navigations. Falls back to the last known body when the
// reload never succeeds.
func (s *Session) ensureFreshLocked(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.reloadAttempts; attempt++ {
		body, err := s.loadLanding(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if token := extractToken(body); token != "" {
			s.token = token
		}
		s.lastBody = body
		return body, nil
	}
	if s.lastBody != "" {
		if s.logg != nil {
			s.logg.Warn(ctx, "landing reload failed, reusing last known page")
		}
		return s.lastBody, nil
	}
	return "", pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "portal page reload failed")
}

// Search posts the criteria and parses the results page. A byte-identical
// response to a different query is a desync, not an empty result: the
// session forces one reinitialization and retries once before giving up.
func (s *Session) Search(ctx context.Context, criteria SearchCriteria) (*ResultsPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		if err := s.initLocked(ctx); err != nil {
			return nil, err
		}
	}

	page, err := s.doSearchLocked(ctx, criteria)
	if err != nil {
		return nil, err
	}

	inputSig := criteriaSignature(criteria)
	bodySig := sha256.Sum256([]byte(page))

	if s.haveLastInput && inputSig != s.lastInputSig && bodySig == s.lastRespSig {
		s.metrics.IncDesyncReinit()
		if s.logg != nil {
			s.logg.Warn(ctx, "identical page for differing query, forcing session reinitialization")
		}
		s.resetLocked()
		if err := s.initLocked(ctx); err != nil {
			return nil, err
		}
		retryPage, err := s.doSearchLocked(ctx, criteria)
		if err != nil {
			return nil, err
		}
		retrySig := sha256.Sum256([]byte(retryPage))
		s.remember(inputSig, retrySig, retryPage)
		if retrySig == bodySig {
			return nil, pkgerrors.New(pkgerrors.CodeDesync, "portal kept returning the stale page after reinitialization")
		}
		page = retryPage
	} else {
		s.remember(inputSig, bodySig, page)
	}

	rows, err := parseResults(ctx, s.logg, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "results page not parseable")
	}
	return &ResultsPage{Rows: rows, HTML: page}, nil
}

func (s *Session) remember(inputSig, bodySig [sha256.Size]byte, page string) {
	s.lastInputSig = inputSig
	s.haveLastInput = true
	s.lastRespSig = bodySig
	s.lastBody = page
}

func (s *Session) doSearchLocked(ctx context.Context, criteria SearchCriteria) (string, error) {
	fresh, err := s.ensureFreshLocked(ctx)
	if err != nil {
		return "", err
	}

	form := buildForm(ctx, s.logg, fresh, s.token, actionSearch, criteria.values())
	body, err := s.postForm(ctx, "search", form)
	if err != nil {
		return "", err
	}
	if token := extractToken(body); token != "" {
		s.token = token
	}
	return body, nil
}

// Detail simulates clicking a result row's PO hyperlink. The criteria the
// server echoed into the results page are copied forward unmodified.
func (s *Session) Detail(ctx context.Context, page *ResultsPage, row SearchResultRow) (*PODetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page == nil || page.HTML == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "results page is required for a drill-down")
	}
	action := row.ClickAction
	if action == "" {
		action = linkID(poLinkPrefix, row.RowIndex)
	}

	form := buildForm(ctx, s.logg, page.HTML, s.token, action, echoedCriteria(page.HTML))
	body, err := s.postForm(ctx, "detail", form)
	if err != nil {
		return nil, err
	}
	if token := extractToken(body); token != "" {
		s.token = token
	}

	detail, err := parseDetail(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "detail page not parseable")
	}
	return detail, nil
}

// Probe checks reachability without touching session state beyond cookies.
func (s *Session) Probe(ctx context.Context) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	body, err := s.loadLanding(probeCtx)
	if err != nil {
		return false, fmt.Sprintf("portal unreachable: %v", err)
	}
	if !pageHasFormMarkers(body) {
		return false, "portal reachable but search form not present"
	}
	if extractToken(body) == "" {
		return true, "connected, session token missing"
	}
	return true, "connected, session token found"
}

func (s *Session) searchURL() string {
	return s.baseURL + s.searchPath
}

func (s *Session) loadLanding(ctx context.Context) (string, error) {
	loadCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(loadCtx, http.MethodGet, s.searchURL()+"?&", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	s.metrics.ObserveRoundTrip("load", time.Since(start))
	if err != nil {
		s.metrics.IncRoundTrip("load", "error")
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		s.metrics.IncRoundTrip("load", "error")
		return "", err
	}
	s.metrics.IncRoundTrip("load", "ok")
	return string(body), nil
}

func (s *Session) postForm(ctx context.Context, kind string, form url.Values) (string, error) {
	postCtx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(postCtx, http.MethodPost, s.searchURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	s.metrics.ObserveRoundTrip(kind, time.Since(start))
	if err != nil {
		s.metrics.IncRoundTrip(kind, "error")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "portal request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.metrics.IncRoundTrip(kind, "error")
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("portal returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		s.metrics.IncRoundTrip(kind, "error")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "portal response unreadable")
	}
	s.metrics.IncRoundTrip(kind, "ok")
	return string(body), nil
}

func criteriaSignature(criteria SearchCriteria) [sha256.Size]byte {
	values := criteria.values()
	parts := make([]string, 0, len(criteriaFields))
	for _, field := range criteriaFields {
		parts = append(parts, field+"="+values[field])
	}
	return sha256.Sum256([]byte(strings.Join(parts, "&")))
}
