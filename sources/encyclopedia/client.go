// Package encyclopedia implements a search source backed by a MediaWiki
// search API such as Wikipedia's.
package encyclopedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
	"golang.org/x/time/rate"
)

const (
	DefaultID        = "encyclopedia"
	DefaultEndpoint  = "https://en.wikipedia.org/w/api.php"
	DefaultRateLimit = 5.0 // requests per second
	defaultUserAgent = "attest/1.0 (retrieval pipeline)"
	maxResponseBytes = 4 << 20
	maxLimit         = 50
)

var (
	// ErrUnexpectedStatus indicates a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrInvalidEndpoint indicates an unparsable endpoint URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// Client searches a MediaWiki installation.
type Client struct {
	id         string
	endpoint   *url.URL
	pageBase   string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

var _ sources.Adapter = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithID sets the source id. Defaults to "encyclopedia".
func WithID(id string) Option {
	return func(c *Client) { c.id = id }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit bounds outgoing requests per second. Zero or less disables
// the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the api.php endpoint. An empty endpoint
// selects English Wikipedia.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		id:         DefaultID,
		endpoint:   u,
		pageBase:   u.Scheme + "://" + u.Host + "/?curid=",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "encyclopedia", "source", c.id)
	return c, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Kind() sources.Kind {
	return sources.KindEncyclopedic
}

type searchResponse struct {
	Query struct {
		Search []searchHit `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

type searchHit struct {
	Title     string `json:"title"`
	PageID    int64  `json:"pageid"`
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp"`
}

// Search queries the full-text search API. Raw scores are derived from
// rank: 1 - rank/n.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*core.RawResult, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []*core.RawResult{}, nil
	}
	limit = min(limit, maxLimit)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")
	u := *c.endpoint
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("search api error %s: %s", body.Error.Code, body.Error.Info)
	}

	hits := body.Query.Search
	if len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]*core.RawResult, 0, len(hits))
	for rank, hit := range hits {
		r := &core.RawResult{
			SourceID:   c.id,
			DocumentID: "wiki:" + strconv.FormatInt(hit.PageID, 10),
			RawScore:   1 - float64(rank)/float64(len(hits)),
			Title:      hit.Title,
			Content:    StripHTML(hit.Snippet),
			URL:        c.pageBase + strconv.FormatInt(hit.PageID, 10),
		}
		if t, err := time.Parse(time.RFC3339, hit.Timestamp); err == nil {
			r.Timestamp = t
		}
		results = append(results, r)
	}
	c.logger.Debug("search complete", "query", query, "hits", len(results))
	return results, nil
}

// StripHTML returns the text content of an HTML fragment with whitespace
// collapsed.
func StripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
