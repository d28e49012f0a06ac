package worker_test

import (
	"context"
	"errors"
	"testing"

	"rss_aggregator/internal/fetcher"
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/parser"
	"rss_aggregator/internal/worker"

	"github.com/stretchr/testify/require"
)

type stubFetcher func(ctx context.Context, url string) (string, error)

func (f stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name  string
		fetch stubFetcher
		check func(t *testing.T, ch *models.Channel, err error)
	}{
		{
			name: "valid rss",
			fetch: func(ctx context.Context, url string) (string, error) {
				return `<rss><channel><title>Test Feed</title><item><title>Test Title</title><link>http://example.com/test</link></item></channel></rss>`, nil
			},
			check: func(t *testing.T, ch *models.Channel, err error) {
				require.NoError(t, err)
				require.Equal(t, "Test Feed", ch.Title)
				require.Len(t, ch.Items, 1)
				require.Equal(t, "http://example.com/test", ch.Items[0].Link)
			},
		},
		{
			name: "transport error",
			fetch: func(ctx context.Context, url string) (string, error) {
				return "", &fetcher.TransportError{URL: url, Status: 502}
			},
			check: func(t *testing.T, ch *models.Channel, err error) {
				var terr *fetcher.TransportError
				require.True(t, errors.As(err, &terr))
				require.Nil(t, ch)
			},
		},
		{
			name: "not rss",
			fetch: func(ctx context.Context, url string) (string, error) {
				return "<html><body>hello</body></html>", nil
			},
			check: func(t *testing.T, ch *models.Channel, err error) {
				var perr *parser.ParseError
				require.True(t, errors.As(err, &perr))
				require.Nil(t, ch)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := worker.NewWorker(tc.fetch, nil)
			ch, err := w.Load(context.Background(), "https://example.com/rss")
			tc.check(t, ch, err)
		})
	}
}

func TestLoad_CustomParser(t *testing.T) {
	var gotRaw string
	w := worker.NewWorker(
		stubFetcher(func(ctx context.Context, url string) (string, error) { return "raw", nil }),
		func(raw string) (*models.Channel, error) {
			gotRaw = raw
			return &models.Channel{Title: "custom"}, nil
		},
	)

	ch, err := w.Load(context.Background(), "https://example.com/rss")
	require.NoError(t, err)
	require.Equal(t, "custom", ch.Title)
	require.Equal(t, "raw", gotRaw)
}
