// Package aggregator добавляет ленты через форму и периодически опрашивает их,
// добавляя в состояние только публикации, которых там ещё нет.
package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rss_aggregator/internal/ids"
	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/metrics"
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/store"
)

const defaultInterval = 5 * time.Second

// Loader загружает и разбирает ленту по URL.
type Loader interface {
	Load(ctx context.Context, url string) (*models.Channel, error)
}

// LoaderFunc позволяет использовать функцию как Loader.
type LoaderFunc func(ctx context.Context, url string) (*models.Channel, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (*models.Channel, error) {
	return f(ctx, url)
}

type Aggregator struct {
	store    *store.Store
	loader   Loader
	ids      ids.Generator
	interval time.Duration
	workers  int
	metrics  *metrics.Metrics
	onCycle  func(CycleResult)
	log      *logger.Entry

	submitMu sync.Mutex

	mu    sync.Mutex
	ctx   context.Context
	armed atomic.Bool
}

type Option func(*Aggregator)

// WithInterval задаёт паузу между циклами опроса.
func WithInterval(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithWorkers ограничивает число одновременных загрузок в цикле. 0 - без ограничения.
func WithWorkers(n int) Option {
	return func(a *Aggregator) { a.workers = n }
}

func WithIDs(gen ids.Generator) Option {
	return func(a *Aggregator) { a.ids = gen }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// OnCycle задаёт функцию, которая вызывается после каждого цикла фонового опроса.
func OnCycle(fn func(CycleResult)) Option {
	return func(a *Aggregator) { a.onCycle = fn }
}

// New создаёт агрегатор поверх состояния st.
func New(st *store.Store, loader Loader, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:    st,
		loader:   loader,
		ids:      ids.UUID{},
		interval: defaultInterval,
		log:      logger.Component("poller"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start задаёт контекст жизни фонового опроса. Если ленты уже есть, опрос запускается сразу,
// иначе - после первого успешного добавления ленты.
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	if len(a.store.Feeds()) > 0 {
		a.Arm()
	}
}

// Arm запускает цикл опроса. Повторные вызовы ничего не делают: цепочка таймеров всегда одна.
// До вызова Start опрос не запускается.
func (a *Aggregator) Arm() bool {
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()

	if ctx == nil {
		return false
	}
	if !a.armed.CompareAndSwap(false, true) {
		return false
	}
	go a.poll(ctx)
	return true
}

// Armed сообщает, запущен ли цикл опроса.
func (a *Aggregator) Armed() bool {
	return a.armed.Load()
}

func (a *Aggregator) newPost(feedID string, item models.Item) models.Post {
	return models.Post{
		ID:          a.ids.NextID(),
		FeedID:      feedID,
		Title:       item.Title,
		Description: item.Description,
		Link:        item.Link,
	}
}
