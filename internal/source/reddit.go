// Package source pulls raw posts from Reddit.
package source

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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/Veraticus/soothsayer/internal/model"
)

// Reddit endpoints.
const (
	PublicBaseURL = "https://www.reddit.com"
	OAuthBaseURL  = "https://oauth.reddit.com"
	TokenURL      = "https://www.reddit.com/api/v1/access_token"
	permalinkHost = "https://reddit.com"
	maxListing    = 100
)

// ErrNoSubreddits is returned when a crawl has nothing to read.
var ErrNoSubreddits = errors.New("no subreddits configured")

// Options configures a Reddit client.
type Options struct {
	HTTPClient      *http.Client
	ClientID        string
	ClientSecret    string
	UserAgent       string
	BaseURL         string
	TokenURL        string
	Retry           common.RetryOptions
	RequestInterval time.Duration
}

// Reddit reads submissions and comment trees. It is safe for sequential use.
type Reddit struct {
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	baseURL   string
	userAgent string
	retry     common.RetryOptions
}

// NewReddit creates a client. With ClientID and ClientSecret set it
// authenticates with the client-credentials grant against the OAuth host;
// otherwise it reads the public JSON endpoints.
func NewReddit(ctx context.Context, opts Options, logger *slog.Logger) *Reddit {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	baseURL := opts.BaseURL
	if opts.ClientID != "" && opts.ClientSecret != "" {
		tokenURL := opts.TokenURL
		if tokenURL == "" {
			tokenURL = TokenURL
		}
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		httpClient = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, httpClient))
		if baseURL == "" {
			baseURL = OAuthBaseURL
		}
	}
	if baseURL == "" {
		baseURL = PublicBaseURL
	}

	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.InitialDelay <= 0 {
		retry.InitialDelay = time.Second
	}

	return &Reddit{
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: opts.UserAgent,
		retry:     retry,
	}
}

// Crawl returns the newest limit submissions of each subreddit followed by
// every comment beneath them, breadth-first.
func (r *Reddit) Crawl(ctx context.Context, subreddits []string, limit int) ([]model.RawPost, error) {
	if len(subreddits) == 0 {
		return nil, ErrNoSubreddits
	}

	var posts []model.RawPost
	for _, sub := range subreddits {
		sub = strings.TrimPrefix(strings.TrimSpace(sub), "r/")
		if sub == "" {
			continue
		}

		r.logger.Info("Crawling subreddit", "subreddit", sub, "limit", limit)
		submissions, err := r.NewSubmissions(ctx, sub, limit)
		if err != nil {
			return posts, err
		}

		for _, s := range submissions {
			posts = append(posts, s)
			comments, err := r.Comments(ctx, s.ID)
			if err != nil {
				return posts, err
			}
			posts = append(posts, comments...)
		}
		r.logger.Debug("Subreddit crawled", "subreddit", sub, "submissions", len(submissions), "total_posts", len(posts))
	}
	return posts, nil
}

// NewSubmissions lists the newest submissions of subreddit, following
// pagination until limit posts are collected or the listing ends.
func (r *Reddit) NewSubmissions(ctx context.Context, subreddit string, limit int) ([]model.RawPost, error) {
	if limit <= 0 {
		limit = 25
	}

	var (
		posts []model.RawPost
		after string
	)
	for len(posts) < limit {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(min(limit-len(posts), maxListing)))
		q.Set("raw_json", "1")
		if after != "" {
			q.Set("after", after)
		}

		var page listing
		if err := r.get(ctx, "/r/"+url.PathEscape(subreddit)+"/new.json", q, &page); err != nil {
			return posts, fmt.Errorf("failed to list r/%s: %w", subreddit, err)
		}

		for _, child := range page.Data.Children {
			if child.Kind != "t3" {
				continue
			}
			var s submission
			if err := json.Unmarshal(child.Data, &s); err != nil {
				return posts, fmt.Errorf("failed to decode submission: %w", err)
			}
			posts = append(posts, s.post())
			if len(posts) == limit {
				break
			}
		}

		after = page.Data.After
		if after == "" || len(page.Data.Children) == 0 {
			break
		}
	}
	return posts, nil
}

// Comments returns every loaded comment under a submission. Collapsed
// "more" stubs are not expanded.
func (r *Reddit) Comments(ctx context.Context, submissionID string) ([]model.RawPost, error) {
	q := url.Values{}
	q.Set("raw_json", "1")

	var pages []listing
	if err := r.get(ctx, "/comments/"+url.PathEscape(submissionID)+".json", q, &pages); err != nil {
		return nil, fmt.Errorf("failed to fetch comments for %s: %w", submissionID, err)
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var posts []model.RawPost
	queue := pages[1].Data.Children
	for len(queue) > 0 {
		child := queue[0]
		queue = queue[1:]
		if child.Kind != "t1" {
			continue
		}

		var c comment
		if err := json.Unmarshal(child.Data, &c); err != nil {
			return posts, fmt.Errorf("failed to decode comment: %w", err)
		}
		posts = append(posts, c.post())

		replies, err := c.replies()
		if err != nil {
			return posts, err
		}
		queue = append(queue, replies...)
	}
	return posts, nil
}

func (r *Reddit) get(ctx context.Context, path string, q url.Values, dst any) error {
	endpoint := r.baseURL + path + "?" + q.Encode()

	return common.WithRetry(ctx, func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		req.Header.Set("Accept", "application/json")
		if r.userAgent != "" {
			req.Header.Set("User-Agent", r.userAgent)
		}

		resp, err := r.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return &common.RetryableError{Err: ctx.Err(), Retryable: false}
			}
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return statusError(resp.StatusCode, strings.TrimSpace(string(body)))
		}

		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to decode response: %w", err), Retryable: false}
		}
		return nil
	}, r.retry)
}

func statusError(code int, body string) error {
	err := fmt.Errorf("reddit returned status %d: %s", code, body)
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case code >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

type listing struct {
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type submission struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	URL        string  `json:"url"`
	CreatedUTC float64 `json:"created_utc"`
	Score      int     `json:"score"`
}

func (s submission) post() model.RawPost {
	return model.RawPost{
		ID:        s.ID,
		Author:    s.Author,
		Text:      s.Title + " " + s.Selftext,
		CreatedAt: unixTime(s.CreatedUTC),
		Score:     s.Score,
		SourceURL: s.URL,
		Kind:      model.KindSubmission,
	}
}

type comment struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Permalink  string          `json:"permalink"`
	Replies    json.RawMessage `json:"replies"`
	CreatedUTC float64         `json:"created_utc"`
	Score      int             `json:"score"`
}

func (c comment) post() model.RawPost {
	return model.RawPost{
		ID:        c.ID,
		Author:    c.Author,
		Text:      c.Body,
		CreatedAt: unixTime(c.CreatedUTC),
		Score:     c.Score,
		SourceURL: permalinkHost + c.Permalink,
		Kind:      model.KindComment,
	}
}

// replies decodes the nested listing; Reddit sends "" when there are none.
func (c comment) replies() ([]thing, error) {
	raw := strings.TrimSpace(string(c.Replies))
	if raw == "" || raw == `""` || raw == "null" {
		return nil, nil
	}
	var l listing
	if err := json.Unmarshal(c.Replies, &l); err != nil {
		return nil, fmt.Errorf("failed to decode replies of %s: %w", c.ID, err)
	}
	return l.Data.Children, nil
}

func unixTime(sec float64) time.Time {
	whole := int64(sec)
	return time.Unix(whole, int64((sec-float64(whole))*float64(time.Second))).UTC()
}
