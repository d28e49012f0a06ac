package fetcher_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"rss_aggregator/internal/fetcher"

	"github.com/stretchr/testify/require"
)

const rssBody = `<rss version="2.0"><channel><title>Test Feed</title></channel></rss>`

func proxyResponse(contents string) []byte {
	body, _ := json.Marshal(map[string]any{
		"contents": contents,
		"status": map[string]any{
			"url":          "https://example.com/rss",
			"content_type": "application/rss+xml; charset=utf-8",
			"http_code":    200,
		},
	})
	return body
}

func TestFetch(t *testing.T) {
	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		expected string
		status   int
		wantErr  bool
	}{
		{
			name: "unwraps contents",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write(proxyResponse(rssBody))
			},
			expected: rssBody,
		},
		{
			name: "proxy error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			status:  http.StatusNotFound,
			wantErr: true,
		},
		{
			name: "broken envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>not json</html>"))
			},
			wantErr: true,
		},
		{
			name: "target error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"contents":"","status":{"http_code":404}}`))
			},
			status:  http.StatusNotFound,
			wantErr: true,
		},
		{
			name: "html target is not a transport error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":{"content_type":"text/html; charset=utf-8"}}`))
			},
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			f, err := fetcher.New(server.URL)
			require.NoError(t, err)

			result, err := f.Fetch(context.Background(), "https://example.com/rss")
			if !tc.wantErr {
				require.NoError(t, err)
				require.Equal(t, tc.expected, result)
				return
			}

			var terr *fetcher.TransportError
			require.True(t, errors.As(err, &terr), "expected *TransportError, got %T", err)
			require.Equal(t, "https://example.com/rss", terr.URL)
			require.Equal(t, tc.status, terr.Status)
		})
	}
}

func TestFetch_ProxyRequest(t *testing.T) {
	var gotPath, gotURL, gotCache string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotURL = r.URL.Query().Get("url")
		gotCache = r.URL.Query().Get("disableCache")
		w.Write(proxyResponse(rssBody))
	}))
	defer server.Close()

	f, err := fetcher.New(server.URL + "/")
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "https://ru.hexlet.io/lessons.rss?a=1&b=2")
	require.NoError(t, err)
	require.Equal(t, "/get", gotPath)
	require.Equal(t, "https://ru.hexlet.io/lessons.rss?a=1&b=2", gotURL)
	require.Equal(t, "true", gotCache)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(proxyResponse(rssBody))
	}))
	defer server.Close()

	f, err := fetcher.New(server.URL, fetcher.WithRetries(2, time.Millisecond))
	require.NoError(t, err)

	result, err := f.Fetch(context.Background(), "https://example.com/rss")
	require.NoError(t, err)
	require.Equal(t, rssBody, result)
	require.Equal(t, int32(3), hits.Load())
}

func TestFetch_GivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f, err := fetcher.New(server.URL, fetcher.WithRetries(1, time.Millisecond))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "https://example.com/rss")
	var terr *fetcher.TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, http.StatusServiceUnavailable, terr.Status)
	require.Equal(t, int32(2), hits.Load())
}

func TestFetch_ClientErrorsAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	f, err := fetcher.New(server.URL, fetcher.WithRetries(3, time.Millisecond))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "https://example.com/rss")
	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestFetch_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(proxyResponse(rssBody))
	}))
	defer server.Close()

	f, err := fetcher.New(server.URL, fetcher.WithRateLimit(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Fetch(ctx, "https://example.com/rss")
	var terr *fetcher.TransportError
	require.ErrorAs(t, err, &terr)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidProxy(t *testing.T) {
	_, err := fetcher.New("not a proxy")
	require.Error(t, err)
}
