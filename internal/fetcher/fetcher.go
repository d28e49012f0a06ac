package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rss_aggregator/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Ответ прокси больше этого размера считается ошибкой.
const maxResponseSize = 10 << 20

// TransportError описывает неудачную загрузку ленты через прокси.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// envelope - ответ прокси allorigins: исходный документ лежит в contents.
type envelope struct {
	Contents string `json:"contents"`
	Status   struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		HTTPCode    int    `json:"http_code"`
	} `json:"status"`
}

// Fetcher загружает документы через прокси, обходящий CORS.
type Fetcher struct {
	proxy         *url.URL
	client        *http.Client
	limiter       *rate.Limiter
	retries       uint64
	retryInterval time.Duration
	log           *logger.Entry
}

type Option func(*Fetcher)

// WithTimeout задаёт таймаут одного запроса к прокси.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithRetries задаёт число повторов после первой неудачной попытки.
func WithRetries(n int, interval time.Duration) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.retries = uint64(n)
		}
		f.retryInterval = interval
	}
}

// WithRateLimit ограничивает частоту запросов к прокси. perSecond <= 0 снимает ограничение.
func WithRateLimit(perSecond float64) Option {
	return func(f *Fetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New создаёт Fetcher для прокси по адресу proxyURL.
func New(proxyURL string, opts ...Option) (*Fetcher, error) {
	proxy, err := url.ParseRequestURI(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}

	f := &Fetcher{
		proxy:         proxy,
		client:        &http.Client{Timeout: 10 * time.Second},
		retryInterval: 500 * time.Millisecond,
		log:           logger.Component("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ProxyURL возвращает адрес запроса к прокси для target.
func (f *Fetcher) ProxyURL(target string) string {
	u := *f.proxy
	u.Path = strings.TrimRight(u.Path, "/") + "/get"
	q := url.Values{}
	q.Set("url", target)
	q.Set("disableCache", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch загружает документ по адресу target и возвращает его содержимое из конверта прокси.
// Все ошибки возвращаются как *TransportError.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	log := f.log.WithField("url", target)

	var contents string
	operation := func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		c, err := f.fetchOnce(ctx, target)
		if err != nil {
			return err
		}
		contents = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		log.WithError(err).Debugf("Retrying in %s", next)
	})
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			return "", terr
		}
		return "", &TransportError{URL: target, Err: err}
	}
	return contents, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ProxyURL(target), nil)
	if err != nil {
		return "", backoff.Permanent(&TransportError{URL: target, Err: err})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		terr := &TransportError{URL: target, Status: resp.StatusCode}
		if isPermanent(resp.StatusCode) {
			return "", backoff.Permanent(terr)
		}
		return "", terr
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&env); err != nil {
		return "", backoff.Permanent(&TransportError{URL: target, Err: fmt.Errorf("decode proxy response: %w", err)})
	}
	if env.Status.HTTPCode >= http.StatusBadRequest {
		return "", backoff.Permanent(&TransportError{URL: target, Status: env.Status.HTTPCode})
	}
	return env.Contents, nil
}

func isPermanent(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
