package aggregator

import (
	"context"
	"time"

	"rss_aggregator/internal/logger"
	"rss_aggregator/internal/models"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// FeedFailure - лента, которую не удалось загрузить или разобрать в цикле.
type FeedFailure struct {
	Feed models.Feed
	Kind Kind
	Err  error
}

// CycleResult - итог одного цикла опроса. Added перечислены в порядке слияния:
// по порядку лент в снимке, внутри ленты - по порядку элементов.
type CycleResult struct {
	Feeds  int
	Failed []FeedFailure
	Added  []models.Post
}

func (a *Aggregator) poll(ctx context.Context) {
	log := a.log.WithField("interval", a.interval.String())
	log.Info("Polling started")

	timer := time.NewTimer(a.interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			result := a.RunCycle(ctx)
			if a.onCycle != nil {
				a.onCycle(result)
			}
			// следующий цикл планируется только после слияния текущего
			timer.Reset(a.interval)

		case <-ctx.Done():
			log.Info("Stopping poller by context")
			return
		}
	}
}

// RunCycle загружает все известные ленты одновременно, находит новые публикации
// и добавляет их в состояние одной операцией. Ошибка одной ленты не мешает остальным.
func (a *Aggregator) RunCycle(ctx context.Context) CycleResult {
	started := time.Now()
	feeds := a.store.Feeds()

	channels := make([]*models.Channel, len(feeds))
	errs := make([]error, len(feeds))

	var g errgroup.Group
	if a.workers > 0 {
		g.SetLimit(a.workers)
	}
	for i, feed := range feeds {
		g.Go(func() error {
			channels[i], errs[i] = a.loader.Load(ctx, feed.URL)
			return nil
		})
	}
	_ = g.Wait()

	result := CycleResult{Feeds: len(feeds)}
	for i, err := range errs {
		if err == nil {
			continue
		}
		kind := Classify(err)
		result.Failed = append(result.Failed, FeedFailure{Feed: feeds[i], Kind: kind, Err: err})
		a.log.WithFields(logger.Fields{
			"url":  feeds[i].URL,
			"kind": kind,
		}).Warnf("Failed to update feed: %v", err)
		if a.metrics != nil {
			a.metrics.FeedFailures.WithLabelValues(string(kind)).Inc()
		}
	}

	result.Added = a.store.CommitPosts(func(existing []models.Post) []models.Post {
		seen := contentSet(existing)
		var fresh []models.Post
		for i, feed := range feeds {
			if channels[i] == nil {
				continue
			}
			for _, item := range diffInto(seen, channels[i].Items) {
				fresh = append(fresh, a.newPost(feed.ID, item))
			}
		}
		return fresh
	})

	if a.metrics != nil {
		a.metrics.Cycles.Inc()
		a.metrics.CycleDuration.Observe(time.Since(started).Seconds())
		a.metrics.NewPosts.Add(float64(len(result.Added)))
	}
	a.log.WithFields(logger.Fields{
		"feeds":  result.Feeds,
		"failed": len(result.Failed),
		"added":  len(result.Added),
	}).Debug("Poll cycle completed")

	return result
}

// Diff возвращает элементы items, кортежа содержимого которых нет среди existing.
// Повторы внутри items тоже отбрасываются. Порядок элементов сохраняется.
func Diff(existing []models.Post, items []models.Item) []models.Item {
	return diffInto(contentSet(existing), items)
}

func contentSet(posts []models.Post) map[models.Content]struct{} {
	return lo.SliceToMap(posts, func(p models.Post) (models.Content, struct{}) {
		return p.Content(), struct{}{}
	})
}

// diffInto отбирает новые элементы и добавляет их кортежи в seen.
func diffInto(seen map[models.Content]struct{}, items []models.Item) []models.Item {
	var fresh []models.Item
	for _, item := range items {
		key := item.Content()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, item)
	}
	return fresh
}
