package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/Veraticus/soothsayer/internal/model"
)

func submissionThing(id, title, body string) map[string]any {
	return map[string]any{
		"kind": "t3",
		"data": map[string]any{
			"id": id, "author": "op_" + id, "title": title, "selftext": body,
			"url": "https://reddit.com/r/stocks/" + id, "created_utc": 1700000000.0, "score": 12,
		},
	}
}

func commentThing(id, body string, replies any) map[string]any {
	return map[string]any{
		"kind": "t1",
		"data": map[string]any{
			"id": id, "author": "user_" + id, "body": body,
			"permalink": "/r/stocks/comments/x/" + id + "/", "created_utc": 1700000100.5,
			"score": 3, "replies": replies,
		},
	}
}

func listingOf(after string, children ...map[string]any) map[string]any {
	if children == nil {
		children = []map[string]any{}
	}
	return map[string]any{"kind": "Listing", "data": map[string]any{"after": after, "children": children}}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/r/stocks/new.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("after") {
		case "":
			writeJSON(t, w, listingOf("t3_s2",
				submissionThing("s1", "Mark my words", "AAPL to 300"),
				submissionThing("s2", "Daily thread", ""),
			))
		case "t3_s2":
			writeJSON(t, w, listingOf("", submissionThing("s3", "Third", "body")))
		default:
			http.Error(w, "bad cursor", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/comments/s1.json", func(w http.ResponseWriter, _ *http.Request) {
		nested := listingOf("", commentThing("c3", "I bet that it will", ""))
		writeJSON(t, w, []any{
			listingOf("", submissionThing("s1", "Mark my words", "AAPL to 300")),
			listingOf("",
				commentThing("c1", "top one", nested),
				commentThing("c2", "top two", ""),
				map[string]any{"kind": "more", "data": map[string]any{"count": 10}},
			),
		})
	})
	mux.HandleFunc("/comments/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []any{listingOf(""), listingOf("")})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestReddit_Crawl(t *testing.T) {
	srv := newTestServer(t)
	client := NewReddit(context.Background(), Options{BaseURL: srv.URL, UserAgent: "test-agent"}, common.DiscardLogger())

	posts, err := client.Crawl(context.Background(), []string{"r/stocks"}, 3)
	require.NoError(t, err)

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"s1", "c1", "c2", "c3", "s2", "s3"}, ids)

	s1 := posts[0]
	assert.Equal(t, model.KindSubmission, s1.Kind)
	assert.Equal(t, "Mark my words AAPL to 300", s1.Text)
	assert.Equal(t, "op_s1", s1.Author)
	assert.Equal(t, 12, s1.Score)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), s1.CreatedAt)

	c1 := posts[1]
	assert.Equal(t, model.KindComment, c1.Kind)
	assert.Equal(t, "https://reddit.com/r/stocks/comments/x/c1/", c1.SourceURL)
	assert.Equal(t, "top one", c1.Text)
	assert.Equal(t, int64(1700000100), c1.CreatedAt.Unix())

	assert.Equal(t, "Daily thread ", posts[4].Text)
}

func TestReddit_NewSubmissionsRespectsLimit(t *testing.T) {
	srv := newTestServer(t)
	client := NewReddit(context.Background(), Options{BaseURL: srv.URL}, common.DiscardLogger())

	posts, err := client.NewSubmissions(context.Background(), "stocks", 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "s1", posts[0].ID)
}

func TestReddit_CrawlWithoutSubreddits(t *testing.T) {
	client := NewReddit(context.Background(), Options{}, common.DiscardLogger())
	_, err := client.Crawl(context.Background(), nil, 10)
	assert.ErrorIs(t, err, ErrNoSubreddits)
}

func TestReddit_SendsUserAgent(t *testing.T) {
	var agent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		writeJSON(t, w, listingOf(""))
	}))
	defer srv.Close()

	client := NewReddit(context.Background(), Options{BaseURL: srv.URL, UserAgent: "go:soothsayer:test"}, common.DiscardLogger())
	_, err := client.NewSubmissions(context.Background(), "stocks", 5)
	require.NoError(t, err)
	assert.Equal(t, "go:soothsayer:test", agent.Load())
}

func TestReddit_ClientCredentials(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		writeJSON(t, w, map[string]any{"access_token": "tok", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/r/stocks/new.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, listingOf("", submissionThing("s1", "title", "body")))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewReddit(context.Background(), Options{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/api/v1/access_token",
	}, common.DiscardLogger())

	for range 2 {
		posts, err := client.NewSubmissions(context.Background(), "stocks", 5)
		require.NoError(t, err)
		require.Len(t, posts, 1)
	}
	assert.Equal(t, int32(1), tokenCalls.Load(), "token is cached between requests")
}

func TestReddit_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		writeJSON(t, w, listingOf("", submissionThing("s1", "t", "b")))
	}))
	defer srv.Close()

	client := NewReddit(context.Background(), Options{
		BaseURL: srv.URL,
		Retry:   common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}, common.DiscardLogger())

	posts, err := client.NewSubmissions(context.Background(), "stocks", 5)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestReddit_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "private subreddit", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewReddit(context.Background(), Options{
		BaseURL: srv.URL,
		Retry:   common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond},
	}, common.DiscardLogger())

	_, err := client.NewSubmissions(context.Background(), "secret", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestReddit_CanceledContext(t *testing.T) {
	srv := newTestServer(t)
	client := NewReddit(context.Background(), Options{BaseURL: srv.URL, RequestInterval: time.Hour}, common.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.NewSubmissions(ctx, "stocks", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnixTime(t *testing.T) {
	got := unixTime(1700000000.25)
	assert.Equal(t, int64(1700000000), got.Unix())
	assert.Equal(t, 250*time.Millisecond, time.Duration(got.Nanosecond()))
	assert.Equal(t, time.UTC, got.Location())
}
