package worker

import (
	"context"

	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/parser"
)

// Fetcher загружает сырой документ ленты по её URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ParseFunc разбирает сырой документ ленты.
type ParseFunc func(raw string) (*models.Channel, error)

// Worker загружает и разбирает одну ленту.
type Worker struct {
	fetcher Fetcher
	parse   ParseFunc
}

// NewWorker создаёт Worker. Если parse == nil, используется parser.Parse.
func NewWorker(fetcher Fetcher, parse ParseFunc) *Worker {
	if parse == nil {
		parse = parser.Parse
	}
	return &Worker{fetcher: fetcher, parse: parse}
}

// Load загружает ленту по url и возвращает разобранный канал.
// Ошибка загрузки и ошибка разбора возвращаются без изменений, чтобы их можно было различить.
func (w *Worker) Load(ctx context.Context, url string) (*models.Channel, error) {
	log := logger.Log.WithField("url", url)

	log.Debug("Fetching RSS feed")
	raw, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Debugf("Fetch failed: %v", err)
		return nil, err
	}

	channel, err := w.parse(raw)
	if err != nil {
		log.Debugf("Parse failed: %v", err)
		return nil, err
	}

	log.WithField("items_count", len(channel.Items)).Debug("Loaded RSS feed")
	return channel, nil
}
