// Package riot is a rate-limited client for the Riot gameplay API (ACCOUNT-V1,
// MATCH-V5 and LEAGUE-V4).
package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pable/rift-rewind/internal/metrics"
	"github.com/pable/rift-rewind/internal/model"
)

const (
	// Dev-key limits are 20/s and 100/2min; stay under both.
	DefaultPerSecond = 15
	DefaultPer2Min   = 90

	pageSize = 100
	maxPages = 50
)

// RankedQueues are the queue ids listed for a rewind: solo/duo, flex and clash.
var RankedQueues = []int{420, 440, 700}

var (
	ErrNotFound  = errors.New("riot: not found")
	ErrForbidden = errors.New("riot: forbidden (check the API key)")
)

// RateLimitError is returned for HTTP 429.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("riot: rate limited, retry after %s", e.Wait)
}

// RetryAfter exposes the server hint to retry.Policy.
func (e *RateLimitError) RetryAfter() time.Duration { return e.Wait }

// StatusError is any other non-200 response.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("riot: GET %s: HTTP %d", e.Path, e.Code)
}

// Client talks to the regional and platform hosts. All requests share two
// token buckets, one per second and one per two minutes; callers block in
// Wait rather than being rejected.
type Client struct {
	apiKey    string
	http      *http.Client
	baseURL   func(host string) string
	perSecond *rate.Limiter
	perWindow *rate.Limiter
}

type Option func(*Client)

// WithBaseURL sends every request to u regardless of routing host.
func WithBaseURL(u string) Option {
	u = strings.TrimRight(u, "/")
	return func(c *Client) { c.baseURL = func(string) string { return u } }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLimits overrides the per-second and per-two-minute budgets. Zero
// disables the corresponding limiter.
func WithLimits(perSecond, per2Min int) Option {
	return func(c *Client) {
		c.perSecond = newLimiter(float64(perSecond), perSecond)
		c.perWindow = newLimiter(float64(per2Min)/120, per2Min)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func newLimiter(r float64, burst int) *rate.Limiter {
	if burst <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(r), burst)
}

// NewClient returns a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: func(host string) string { return "https://" + host + ".api.riotgames.com" },
	}
	WithLimits(DefaultPerSecond, DefaultPer2Min)(c)
	for _, o := range opts {
		o(c)
	}
	return c
}

// get performs a rate-limited GET against host and JSON-decodes the body into out.
func (c *Client) get(ctx context.Context, host, endpoint, path string, out any) error {
	if err := c.perWindow.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limit: %w", err)
	}
	if err := c.perSecond.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(host)+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RiotLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RiotRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.RiotRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("GET %s: %w", path, ErrForbidden)
	case http.StatusTooManyRequests:
		wait := 10 * time.Second
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s >= 0 {
			wait = time.Duration(s) * time.Second
		}
		log.Warn().Str("endpoint", endpoint).Dur("retryAfter", wait).Msg("riot rate limited")
		return &RateLimitError{Wait: wait}
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Path: path}
	}
}

// LookupAccount resolves a Riot ID to its account via the regional host of
// the identity's platform.
func (c *Client) LookupAccount(ctx context.Context, id model.Identity) (*Account, error) {
	regional := id.Regional()
	if regional == "" {
		return nil, fmt.Errorf("unknown platform %q", id.Region)
	}
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(id.Name), url.PathEscape(id.Tag))
	var a Account
	if err := c.get(ctx, regional, "account", path, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListMatchRefs returns every ranked match id for puuid since the given time
// (zero means no lower bound). Pages of 100 are requested per queue until a
// short or empty page; ids are deduplicated keeping first-seen order.
func (c *Client) ListMatchRefs(ctx context.Context, puuid, platform string, since time.Time) ([]string, error) {
	regional := model.PlatformToRegional[platform]
	if regional == "" {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	seen := make(map[string]bool)
	var refs []string
	for _, queue := range RankedQueues {
		for page := 0; page < maxPages; page++ {
			q := url.Values{}
			q.Set("queue", strconv.Itoa(queue))
			q.Set("start", strconv.Itoa(page*pageSize))
			q.Set("count", strconv.Itoa(pageSize))
			if !since.IsZero() {
				q.Set("startTime", strconv.FormatInt(since.Unix(), 10))
			}
			path := "/lol/match/v5/matches/by-puuid/" + url.PathEscape(puuid) + "/ids?" + q.Encode()

			var ids []string
			if err := c.get(ctx, regional, "match-ids", path, &ids); err != nil {
				return nil, fmt.Errorf("list queue %d page %d: %w", queue, page, err)
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					refs = append(refs, id)
				}
			}
			if len(ids) < pageSize {
				break
			}
		}
	}
	return refs, nil
}

// FetchMatchDetail returns the MATCH-V5 body for ref.
func (c *Client) FetchMatchDetail(ctx context.Context, platform, ref string) (*model.MatchRecord, error) {
	regional := model.PlatformToRegional[platform]
	if regional == "" {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	var m model.MatchRecord
	if err := c.get(ctx, regional, "match", "/lol/match/v5/matches/"+url.PathEscape(ref), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LeagueEntries returns the ranked standings for puuid on its platform host.
func (c *Client) LeagueEntries(ctx context.Context, puuid, platform string) ([]model.LeagueEntry, error) {
	if _, ok := model.PlatformToRegional[platform]; !ok {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	var out []model.LeagueEntry
	if err := c.get(ctx, platform, "league", "/lol/league/v4/entries/by-puuid/"+url.PathEscape(puuid), &out); err != nil {
		return nil, err
	}
	return out, nil
}
